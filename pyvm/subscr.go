package pyvm

import (
	"slices"
)

// Index converts v to an int the way sequence indexing does.
func (e *Engine) Index(v Value) (int64, bool, error) {
	switch v := v.(type) {
	case Int:
		return int64(v), true, nil
	case Bool:
		n, _ := asInt64(v)
		return n, true, nil
	case *BigInt:
		return 0, true, NewError(IndexErrorClass, "cannot fit 'int' into an index-sized integer")
	}
	if m, ok := e.userSpecial(v, "__index__"); ok {
		ret, err := e.call(m, nil, nil)
		if err != nil {
			return 0, true, err
		}
		n, ok := asInt64(ret)
		if !ok {
			return 0, true, NewError(TypeErrorClass, "__index__ returned non-int (type %s)", TypeName(ret))
		}
		return n, true, nil
	}
	return 0, false, nil
}

func (e *Engine) sequenceIndex(kind string, key Value, length int) (int, error) {
	n, ok, err := e.Index(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewError(TypeErrorClass, "%s indices must be integers or slices, not %s", kind, TypeName(key))
	}
	if n < 0 {
		n += int64(length)
	}
	if n < 0 || n >= int64(length) {
		return 0, NewError(IndexErrorClass, "%s index out of range", kind)
	}
	return int(n), nil
}

// indices resolves a slice against a sequence length.
func (e *Engine) indices(s *Slice, length int) (start, stop, step int, err error) {
	get := func(v Value, def int) (int, bool, error) {
		if v == nil || v == None {
			return def, false, nil
		}
		n, ok, err := e.Index(v)
		if err != nil {
			return 0, true, err
		}
		if !ok {
			return 0, true, NewError(TypeErrorClass, "slice indices must be integers or None or have an __index__ method")
		}
		return int(max(min(n, 1<<62), -(1 << 62))), true, nil
	}
	step, _, err = get(s.Step, 1)
	if err != nil {
		return
	}
	if step == 0 {
		err = NewError(ValueErrorClass, "slice step cannot be zero")
		return
	}
	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}
	adjust := func(v Value, def int) (int, error) {
		n, given, err := get(v, def)
		if err != nil || !given {
			return n, err
		}
		if n < 0 {
			n += length
			if n < lower {
				n = lower
			}
		} else if n > upper {
			n = upper
		}
		return n, nil
	}
	defStart, defStop := lower, upper
	if step < 0 {
		defStart, defStop = upper, lower
	}
	if start, err = adjust(s.Start, defStart); err != nil {
		return
	}
	stop, err = adjust(s.Stop, defStop)
	return
}

func sliceLength(start, stop, step int) int {
	if step > 0 {
		if start >= stop {
			return 0
		}
		return (stop - start + step - 1) / step
	}
	if start <= stop {
		return 0
	}
	return (start - stop - step - 1) / -step
}

func sliceSelect[T any](items []T, start, stop, step int) []T {
	n := sliceLength(start, stop, step)
	ret := make([]T, 0, n)
	for i := range n {
		ret = append(ret, items[start+i*step])
	}
	return ret
}

// GetItem is v[key].
func (e *Engine) GetItem(v, key Value) (Value, error) {
	if m, ok := e.userSpecial(v, "__getitem__"); ok {
		return e.call(m, []Value{key}, nil)
	}
	if c, ok := v.(*Class); ok && !c.builtin {
		if m, _, ok := c.Lookup("__class_getitem__"); ok {
			return e.call(e.bind(m, nil, c), []Value{key}, nil)
		}
	}
	s, isSlice := key.(*Slice)
	switch x := v.(type) {
	case Str:
		runes := []rune(string(x))
		if isSlice {
			start, stop, step, err := e.indices(s, len(runes))
			if err != nil {
				return nil, err
			}
			return Str(string(sliceSelect(runes, start, stop, step))), nil
		}
		i, err := e.sequenceIndex("string", key, len(runes))
		if err != nil {
			return nil, err
		}
		return Str(string(runes[i])), nil
	case Bytes:
		if isSlice {
			start, stop, step, err := e.indices(s, len(x))
			if err != nil {
				return nil, err
			}
			return Bytes(sliceSelect(x, start, stop, step)), nil
		}
		i, err := e.sequenceIndex("byte", key, len(x))
		if err != nil {
			return nil, err
		}
		return Int(x[i]), nil
	case Tuple:
		if isSlice {
			start, stop, step, err := e.indices(s, len(x))
			if err != nil {
				return nil, err
			}
			return Tuple(sliceSelect(x, start, stop, step)), nil
		}
		i, err := e.sequenceIndex("tuple", key, len(x))
		if err != nil {
			return nil, err
		}
		return x[i], nil
	case *List:
		if isSlice {
			start, stop, step, err := e.indices(s, len(x.Items))
			if err != nil {
				return nil, err
			}
			return NewList(sliceSelect(x.Items, start, stop, step)...), nil
		}
		i, err := e.sequenceIndex("list", key, len(x.Items))
		if err != nil {
			return nil, err
		}
		return x.Items[i], nil
	case *Range:
		n := int(x.Len())
		if isSlice {
			start, stop, step, err := e.indices(s, n)
			if err != nil {
				return nil, err
			}
			return &Range{
				Start: x.At(int64(start)),
				Stop:  x.At(int64(stop)),
				Step:  x.Step * int64(step),
			}, nil
		}
		i, err := e.sequenceIndex("range object", key, n)
		if err != nil {
			return nil, err
		}
		return Int(x.At(int64(i))), nil
	case *Dict:
		val, ok, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newException(KeyErrorClass, key)
		}
		return val, nil
	}
	if _, ok := v.(*Class); ok {
		return nil, NewError(TypeErrorClass, "'type' object is not subscriptable")
	}
	return nil, NewError(TypeErrorClass, "'%s' object is not subscriptable", TypeName(v))
}

// SetItem is v[key] = val.
func (e *Engine) SetItem(v, key, val Value) error {
	if m, ok := e.userSpecial(v, "__setitem__"); ok {
		_, err := e.call(m, []Value{key, val}, nil)
		return err
	}
	switch x := v.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			return e.setListSlice(x, s, val)
		}
		i, err := e.sequenceIndex("list", key, len(x.Items))
		if err != nil {
			if pe := (*PyError)(nil); asPyError(err, &pe) && pe.Matches(IndexErrorClass) {
				return NewError(IndexErrorClass, "list assignment index out of range")
			}
			return err
		}
		x.Items[i] = val
		return nil
	case *Dict:
		return x.Set(key, val)
	}
	return NewError(TypeErrorClass, "'%s' object does not support item assignment", TypeName(v))
}

func (e *Engine) setListSlice(l *List, s *Slice, val Value) error {
	items, err := e.ToSlice(val)
	if err != nil {
		var pe *PyError
		if asPyError(err, &pe) && pe.Matches(TypeErrorClass) {
			return NewError(TypeErrorClass, "can only assign an iterable")
		}
		return err
	}
	start, stop, step, err := e.indices(s, len(l.Items))
	if err != nil {
		return err
	}
	if step == 1 {
		stop = max(stop, start)
		l.Items = slices.Concat(l.Items[:start], items, l.Items[stop:])
		return nil
	}
	n := sliceLength(start, stop, step)
	if n != len(items) {
		return NewError(ValueErrorClass, "attempt to assign sequence of size %d to extended slice of size %d", len(items), n)
	}
	for i, item := range items {
		l.Items[start+i*step] = item
	}
	return nil
}

// DelItem is del v[key].
func (e *Engine) DelItem(v, key Value) error {
	if m, ok := e.userSpecial(v, "__delitem__"); ok {
		_, err := e.call(m, []Value{key}, nil)
		return err
	}
	switch x := v.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			start, stop, step, err := e.indices(s, len(x.Items))
			if err != nil {
				return err
			}
			if step < 0 {
				n := sliceLength(start, stop, step)
				start, step = start+(n-1)*step, -step
				stop = start + n*step
			}
			n := sliceLength(start, stop, step)
			if n == 0 {
				return nil
			}
			kept := x.Items[:0:0]
			for i, item := range x.Items {
				if i >= start && i < start+n*step && (i-start)%step == 0 {
					continue
				}
				kept = append(kept, item)
			}
			x.Items = kept
			return nil
		}
		i, err := e.sequenceIndex("list", key, len(x.Items))
		if err != nil {
			if pe := (*PyError)(nil); asPyError(err, &pe) && pe.Matches(IndexErrorClass) {
				return NewError(IndexErrorClass, "list assignment index out of range")
			}
			return err
		}
		x.Items = slices.Delete(x.Items, i, i+1)
		return nil
	case *Dict:
		_, ok, err := x.Delete(key)
		if err != nil {
			return err
		}
		if !ok {
			return newException(KeyErrorClass, key)
		}
		return nil
	}
	return NewError(TypeErrorClass, "'%s' object doesn't support item deletion", TypeName(v))
}
