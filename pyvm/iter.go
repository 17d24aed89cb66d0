package pyvm

import (
	"strings"
)

func sliceIterator(name string, items func() []Value) *Iterator {
	i := 0
	return &Iterator{
		Name: name,
		Next: func() (Value, bool, error) {
			s := items()
			if i >= len(s) {
				i = len(s) + 1
				return nil, false, nil
			}
			v := s[i]
			i++
			return v, true, nil
		},
	}
}

type dictView uint8

const (
	dictKeys dictView = iota
	dictValues
	dictItems
)

// dictIterator fails when the dict gains or loses keys while iterating.
func dictIterator(d *Dict, view dictView) *Iterator {
	version := d.version()
	i := 0
	name := [...]string{"dict_keyiterator", "dict_valueiterator", "dict_itemiterator"}[view]
	return &Iterator{
		Name: name,
		Next: func() (Value, bool, error) {
			if d.version() != version {
				return nil, false, NewError(RuntimeErrorClass, "dictionary changed size during iteration")
			}
			for i < len(d.entries) {
				entry := d.entries[i]
				i++
				if entry.deleted {
					continue
				}
				switch view {
				case dictValues:
					return entry.Value, true, nil
				case dictItems:
					return Tuple{entry.Key, entry.Value}, true, nil
				}
				return entry.Key, true, nil
			}
			return nil, false, nil
		},
	}
}

func setIterator(s *Set) *Iterator {
	items := s.Items()
	size := s.Len()
	i := 0
	return &Iterator{
		Name: "set_iterator",
		Next: func() (Value, bool, error) {
			if s.Len() != size {
				return nil, false, NewError(RuntimeErrorClass, "Set changed size during iteration")
			}
			if i >= len(items) {
				return nil, false, nil
			}
			v := items[i]
			i++
			return v, true, nil
		},
	}
}

// Iter is iter(v).
func (e *Engine) Iter(v Value) (Value, error) {
	switch v := v.(type) {
	case *Iterator, *Generator:
		return v, nil
	case Str:
		runes := []rune(string(v))
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = Str(string(r))
		}
		return sliceIterator("str_iterator", func() []Value { return items }), nil
	case Bytes:
		items := make([]Value, len(v))
		for i, b := range v {
			items[i] = Int(b)
		}
		return sliceIterator("bytes_iterator", func() []Value { return items }), nil
	case Tuple:
		return sliceIterator("tuple_iterator", func() []Value { return v }), nil
	case *List:
		return sliceIterator("list_iterator", func() []Value { return v.Items }), nil
	case *Dict:
		return dictIterator(v, dictKeys), nil
	case *Set:
		return setIterator(v), nil
	case *Range:
		return v.iterator(), nil
	}
	if m, ok := e.userSpecial(v, "__iter__"); ok {
		it, err := e.call(m, nil, nil)
		if err != nil {
			return nil, err
		}
		if !e.isIterator(it) {
			return nil, NewError(TypeErrorClass, "iter() returned non-iterator of type '%s'", TypeName(it))
		}
		return it, nil
	}
	if _, ok := e.userSpecial(v, "__getitem__"); ok {
		return e.sequenceIterator(v), nil
	}
	return nil, NewError(TypeErrorClass, "'%s' object is not iterable", TypeName(v))
}

func (e *Engine) isIterator(v Value) bool {
	switch v.(type) {
	case *Iterator, *Generator:
		return true
	}
	_, ok := e.nextMethod(v)
	return ok
}

func (e *Engine) nextMethod(v Value) (Value, bool) {
	if m, ok := e.userSpecial(v, "__next__"); ok {
		return m, true
	}
	return e.userSpecial(v, "next")
}

// sequenceIterator drives the old __getitem__ protocol until IndexError.
func (e *Engine) sequenceIterator(v Value) *Iterator {
	i := 0
	done := false
	return &Iterator{
		Name: "iterator",
		Next: func() (Value, bool, error) {
			if done {
				return nil, false, nil
			}
			item, err := e.GetItem(v, Int(i))
			if err != nil {
				var pe *PyError
				if asPyError(err, &pe) && (pe.Matches(IndexErrorClass) || pe.Matches(StopIterationClass)) {
					done = true
					return nil, false, nil
				}
				return nil, false, err
			}
			i++
			return item, true, nil
		},
	}
}

// Next advances an iterator; ok is false on exhaustion.
func (e *Engine) Next(it Value) (Value, bool, error) {
	switch it := it.(type) {
	case *Iterator:
		return it.Next()
	case *Generator:
		v, err := e.Send(it, None)
		if err != nil {
			if _, ok := StopIterationValue(err); ok {
				return nil, false, nil
			}
			return nil, false, err
		}
		return v, true, nil
	}
	m, ok := e.nextMethod(it)
	if !ok {
		return nil, false, NewError(TypeErrorClass, "'%s' object is not an iterator", TypeName(it))
	}
	v, err := e.call(m, nil, nil)
	if err != nil {
		if _, ok := StopIterationValue(err); ok {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// ToSlice collects the items of an iterable.
func (e *Engine) ToSlice(v Value) ([]Value, error) {
	switch v := v.(type) {
	case Tuple:
		return append([]Value(nil), v...), nil
	case *List:
		return append([]Value(nil), v.Items...), nil
	}
	it, err := e.Iter(v)
	if err != nil {
		return nil, err
	}
	var ret []Value
	for {
		item, ok, err := e.Next(it)
		if err != nil {
			return nil, err
		}
		if !ok {
			return ret, nil
		}
		ret = append(ret, item)
	}
}

// Contains is item in container.
func (e *Engine) Contains(container, item Value) (bool, error) {
	if m, ok := e.userSpecial(container, "__contains__"); ok {
		ret, err := e.call(m, []Value{item}, nil)
		if err != nil {
			return false, err
		}
		return e.Truth(ret)
	}
	switch c := container.(type) {
	case Str:
		s, ok := item.(Str)
		if !ok {
			return false, NewError(TypeErrorClass, "'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(string(c), string(s)), nil
	case Bytes:
		switch x := item.(type) {
		case Int:
			return x >= 0 && x < 256 && strings.IndexByte(string(c), byte(x)) >= 0, nil
		case Bytes:
			return strings.Contains(string(c), string(x)), nil
		}
		return false, NewError(TypeErrorClass, "a bytes-like object is required, not '%s'", TypeName(item))
	case Tuple:
		return e.seqContains(c, item)
	case *List:
		return e.seqContains(c.Items, item)
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	case *Set:
		return c.Contains(item)
	case *Range:
		if n, ok := asInt64(item); ok {
			return c.Contains(n), nil
		}
	}
	it, err := e.Iter(container)
	if err != nil {
		var pe *PyError
		if asPyError(err, &pe) && pe.Matches(TypeErrorClass) {
			return false, NewError(TypeErrorClass, "argument of type '%s' is not iterable", TypeName(container))
		}
		return false, err
	}
	for {
		v, ok, err := e.Next(it)
		if err != nil || !ok {
			return false, err
		}
		eq, err := e.Equal(v, item)
		if err != nil || eq {
			return eq, err
		}
	}
}

func (e *Engine) seqContains(items []Value, item Value) (bool, error) {
	for i := 0; i < len(items); i++ {
		eq, err := e.Equal(items[i], item)
		if err != nil || eq {
			return eq, err
		}
	}
	return false, nil
}
