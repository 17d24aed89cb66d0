package pyvm

import (
	"slices"
)

func init() {
	defineNew(TupleClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("tuple", args, kwargs, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return Tuple{}, nil
		}
		if t, ok := args[0].(Tuple); ok {
			return t, nil
		}
		items, err := e.ToSlice(args[0])
		return Tuple(items), err
	})
	defineMethod(TupleClass, "index", func(e *Engine, self Tuple, args []Value, kwargs *Dict) (Value, error) {
		return e.seqIndex("tuple", self, args, kwargs)
	})
	defineMethod(TupleClass, "count", func(e *Engine, self Tuple, args []Value, kwargs *Dict) (Value, error) {
		return e.seqCount(self, args, kwargs)
	})

	defineNew(ListClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("list", args, kwargs, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return NewList(), nil
		}
		items, err := e.ToSlice(args[0])
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	})
	listMethods := map[string]func(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error){
		"append":  listAppend,
		"extend":  listExtend,
		"insert":  listInsert,
		"pop":     listPop,
		"remove":  listRemove,
		"clear":   listClear,
		"copy":    listCopy,
		"reverse": listReverse,
		"sort":    listSort,
		"index": func(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
			return e.seqIndex("list", self.Items, args, kwargs)
		},
		"count": func(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
			return e.seqCount(self.Items, args, kwargs)
		},
	}
	for name, fn := range listMethods {
		defineMethod(ListClass, name, fn)
	}

	defineNew(DictClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		d := NewDict()
		if err := e.dictUpdate("dict", d, args, kwargs); err != nil {
			return nil, err
		}
		return d, nil
	})
	dictMethods := map[string]func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error){
		"keys":       dictListing(dictKeys),
		"values":     dictListing(dictValues),
		"items":      dictListing(dictItems),
		"iterkeys":   dictIterating(dictKeys),
		"itervalues": dictIterating(dictValues),
		"iteritems":  dictIterating(dictItems),
		"get":        dictGet,
		"setdefault": dictSetdefault,
		"pop":        dictPop,
		"popitem":    dictPopitem,
		"has_key":    dictHasKey,
		"update": func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
			return None, e.dictUpdate("update", self, args, kwargs)
		},
		"clear": func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
			self.Clear()
			return None, argCount("clear", args, kwargs, 0, 0)
		},
		"copy": func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
			return self.Copy(), argCount("copy", args, kwargs, 0, 0)
		},
	}
	for name, fn := range dictMethods {
		defineMethod(DictClass, name, fn)
	}
	DictClass.Dict.SetStr("fromkeys", &ClassMethod{
		Func: NewBuiltin("fromkeys", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount("fromkeys", args, kwargs, 2, 3); err != nil {
				return nil, err
			}
			keys, err := e.ToSlice(args[1])
			if err != nil {
				return nil, err
			}
			var value Value = None
			if len(args) == 3 {
				value = args[2]
			}
			d := NewDict()
			for _, k := range keys {
				if err := d.Set(k, value); err != nil {
					return nil, err
				}
			}
			return d, nil
		}),
	})

	for _, cls := range []*Class{SetClass, FrozenSetClass} {
		frozen := cls == FrozenSetClass
		defineNew(cls, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount(cls.Name, args, kwargs, 0, 1); err != nil {
				return nil, err
			}
			var items []Value
			if len(args) == 1 {
				var err error
				if items, err = e.ToSlice(args[0]); err != nil {
					return nil, err
				}
			}
			s, err := NewSet(items...)
			if err != nil {
				return nil, err
			}
			s.Frozen = frozen
			return s, nil
		})
		for name, fn := range setAlgebra {
			defineMethod(cls, name, fn)
		}
		for name, fn := range setPredicates {
			defineMethod(cls, name, fn)
		}
		defineMethod(cls, "copy", func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
			return self.copySet(self.Frozen), argCount("copy", args, kwargs, 0, 0)
		})
	}
	for name, fn := range setMutators {
		defineMethod(SetClass, name, fn)
	}

	defineNew(RangeClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		r, err := newRange(e, args, kwargs)
		if err != nil || !e.py2() {
			return r, err
		}
		// 2.x range builds a list; xrange keeps the lazy form.
		items, err := e.ToSlice(r)
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	})
	defineMethod(RangeClass, "index", func(e *Engine, self *Range, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("index", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		if n, ok := asInt64(args[0]); ok && self.Contains(n) {
			return Int((n - self.Start) / self.Step), nil
		}
		return nil, NewError(ValueErrorClass, "%s is not in range", reprSimple(args[0]))
	})
	defineMethod(RangeClass, "count", func(e *Engine, self *Range, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("count", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		if n, ok := asInt64(args[0]); ok && self.Contains(n) {
			return Int(1), nil
		}
		return Int(0), nil
	})

	defineNew(SliceClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("slice", args, kwargs, 1, 3); err != nil {
			return nil, err
		}
		s := &Slice{Start: None, Stop: None, Step: None}
		switch len(args) {
		case 1:
			s.Stop = args[0]
		case 2:
			s.Start, s.Stop = args[0], args[1]
		case 3:
			s.Start, s.Stop, s.Step = args[0], args[1], args[2]
		}
		return s, nil
	})
	defineMethod(SliceClass, "indices", func(e *Engine, self *Slice, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("indices", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		n, err := intArg("indices", args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, NewError(ValueErrorClass, "length should not be negative")
		}
		start, stop, step, err := e.indices(self, int(n))
		if err != nil {
			return nil, err
		}
		return Tuple{Int(start), Int(stop), Int(step)}, nil
	})
}

func newRange(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("range", args, kwargs, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, arg := range args {
		n, ok, err := e.Index(arg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(TypeErrorClass, "'%s' object cannot be interpreted as an integer", TypeName(arg))
		}
		bounds[i] = n
	}
	r := &Range{Step: 1}
	switch len(bounds) {
	case 1:
		r.Stop = bounds[0]
	case 2:
		r.Start, r.Stop = bounds[0], bounds[1]
	case 3:
		r.Start, r.Stop, r.Step = bounds[0], bounds[1], bounds[2]
	}
	if r.Step == 0 {
		return nil, NewError(ValueErrorClass, "range() arg 3 must not be zero")
	}
	return r, nil
}

func (e *Engine) seqIndex(kind string, items []Value, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("index", args, kwargs, 1, 3); err != nil {
		return nil, err
	}
	start, stop := 0, len(items)
	if len(args) > 1 {
		var err error
		start, stop, _, err = e.indices(&Slice{Start: args[1], Stop: argOr(args, 2, None)}, len(items))
		if err != nil {
			return nil, err
		}
	}
	for i := start; i < stop; i++ {
		eq, err := e.Equal(items[i], args[0])
		if err != nil {
			return nil, err
		}
		if eq {
			return Int(i), nil
		}
	}
	if kind == "list" {
		s, err := e.Repr(args[0])
		if err != nil {
			return nil, err
		}
		return nil, NewError(ValueErrorClass, "%s is not in list", s)
	}
	return nil, NewError(ValueErrorClass, "tuple.index(x): x not in tuple")
}

func argOr(args []Value, i int, def Value) Value {
	if i < len(args) {
		return args[i]
	}
	return def
}

func (e *Engine) seqCount(items []Value, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("count", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n := 0
	for _, item := range items {
		eq, err := e.Equal(item, args[0])
		if err != nil {
			return nil, err
		}
		if eq {
			n++
		}
	}
	return Int(n), nil
}

func listAppend(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("append", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	self.Append(args[0])
	return None, nil
}

func listExtend(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("extend", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	items, err := e.ToSlice(args[0])
	if err != nil {
		return nil, err
	}
	self.Items = append(self.Items, items...)
	return None, nil
}

func listInsert(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("insert", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	i, err := intArg("insert", args[0])
	if err != nil {
		return nil, err
	}
	n := int64(len(self.Items))
	if i < 0 {
		i = max(i+n, 0)
	}
	i = min(i, n)
	self.Items = slices.Insert(self.Items, int(i), args[1])
	return None, nil
}

func listPop(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("pop", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(self.Items) == 0 {
		return nil, NewError(IndexErrorClass, "pop from empty list")
	}
	i := int64(len(self.Items) - 1)
	if len(args) == 1 {
		var err error
		if i, err = intArg("pop", args[0]); err != nil {
			return nil, err
		}
		if i < 0 {
			i += int64(len(self.Items))
		}
		if i < 0 || i >= int64(len(self.Items)) {
			return nil, NewError(IndexErrorClass, "pop index out of range")
		}
	}
	v := self.Items[i]
	self.Items = slices.Delete(self.Items, int(i), int(i)+1)
	return v, nil
}

func listRemove(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("remove", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	for i, item := range self.Items {
		eq, err := e.Equal(item, args[0])
		if err != nil {
			return nil, err
		}
		if eq {
			self.Items = slices.Delete(self.Items, i, i+1)
			return None, nil
		}
	}
	return nil, NewError(ValueErrorClass, "list.remove(x): x not in list")
}

func listClear(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	self.Items = nil
	return None, argCount("clear", args, kwargs, 0, 0)
}

func listCopy(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	return NewList(slices.Clone(self.Items)...), argCount("copy", args, kwargs, 0, 0)
}

func listReverse(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	slices.Reverse(self.Items)
	return None, argCount("reverse", args, kwargs, 0, 0)
}

func listSort(e *Engine, self *List, args []Value, kwargs *Dict) (Value, error) {
	if len(args) > 0 {
		return nil, NewError(TypeErrorClass, "sort() takes no positional arguments")
	}
	opts, err := unpackArgs("sort", nil, kwargs, 0, "key", "reverse")
	if err != nil {
		return nil, err
	}
	reverse := false
	if opts[1] != nil {
		if reverse, err = e.Truth(opts[1]); err != nil {
			return nil, err
		}
	}
	return None, e.sortValues(self.Items, opts[0], reverse)
}

// dictUpdate merges a mapping or an iterable of pairs, then kwargs, into d.
func (e *Engine) dictUpdate(fname string, d *Dict, args []Value, kwargs *Dict) error {
	if len(args) > 1 {
		return NewError(TypeErrorClass, "%s expected at most 1 argument, got %d", fname, len(args))
	}
	if len(args) == 1 {
		items, ok, err := e.mappingItems(args[0])
		if err != nil {
			return err
		}
		if !ok {
			seq, err := e.ToSlice(args[0])
			if err != nil {
				return err
			}
			for i, elem := range seq {
				pair, err := e.ToSlice(elem)
				if err != nil {
					return NewError(TypeErrorClass, "cannot convert dictionary update sequence element #%d to a sequence", i)
				}
				if len(pair) != 2 {
					return NewError(ValueErrorClass, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
				}
				items = append(items, [2]Value{pair[0], pair[1]})
			}
		}
		for _, kv := range items {
			if err := d.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
	}
	for k, v := range kwargs.All() {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// dictListing returns keys, values or items as a list.
func dictListing(view dictView) func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	return func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("keys", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		items, err := e.ToSlice(dictIterator(self, view))
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	}
}

func dictIterating(view dictView) func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	return func(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
		return dictIterator(self, view), argCount("iterkeys", args, kwargs, 0, 0)
	}
}

func dictGet(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("get", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	v, ok, err := self.Get(args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		return argOr(args, 1, None), nil
	}
	return v, nil
}

func dictSetdefault(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("setdefault", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	v, ok, err := self.Get(args[0])
	if err != nil || ok {
		return v, err
	}
	def := argOr(args, 1, None)
	return def, self.Set(args[0], def)
}

func dictPop(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("pop", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	v, ok, err := self.Delete(args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, newException(KeyErrorClass, args[0])
	}
	return v, nil
}

func dictPopitem(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("popitem", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	keys := self.Keys()
	if len(keys) == 0 {
		return nil, NewError(KeyErrorClass, "popitem(): dictionary is empty")
	}
	k := keys[len(keys)-1]
	v, _, err := self.Delete(k)
	return Tuple{k, v}, err
}

func dictHasKey(e *Engine, self *Dict, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("has_key", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	_, ok, err := self.Get(args[0])
	return Bool(ok), err
}

type setMethod = func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error)

// setOperands converts each argument to a set.
func (e *Engine) setOperands(args []Value) ([]*Set, error) {
	sets := make([]*Set, len(args))
	for i, arg := range args {
		if s, ok := arg.(*Set); ok {
			sets[i] = s
			continue
		}
		items, err := e.ToSlice(arg)
		if err != nil {
			return nil, err
		}
		if sets[i], err = NewSet(items...); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

func setFold(name string, op func(a, b *Set) *Set) setMethod {
	return func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		others, err := e.setOperands(args)
		if err != nil {
			return nil, err
		}
		ret := self.copySet(self.Frozen)
		for _, o := range others {
			ret = op(ret, o)
		}
		ret.Frozen = self.Frozen
		return ret, nil
	}
}

var setAlgebra = map[string]setMethod{
	"union":                setFold("union", (*Set).union),
	"intersection":         setFold("intersection", (*Set).intersection),
	"difference":           setFold("difference", (*Set).difference),
	"symmetric_difference": setFold("symmetric_difference", (*Set).symmetricDifference),
}

func setRelation(name string, test func(self, other *Set) bool) setMethod {
	return func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		others, err := e.setOperands(args)
		if err != nil {
			return nil, err
		}
		return Bool(test(self, others[0])), nil
	}
}

var setPredicates = map[string]setMethod{
	"issubset": setRelation("issubset", (*Set).isSubset),
	"issuperset": setRelation("issuperset", func(self, other *Set) bool {
		return other.isSubset(self)
	}),
	"isdisjoint": setRelation("isdisjoint", func(self, other *Set) bool {
		return self.intersection(other).Len() == 0
	}),
}

// setInPlace replaces the contents of self with the fold of its arguments.
func setInPlace(name string, op func(a, b *Set) *Set) setMethod {
	fold := setFold(name, op)
	return func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		ret, err := fold(e, self, args, kwargs)
		if err != nil {
			return nil, err
		}
		self.d = ret.(*Set).d
		return None, nil
	}
}

var setMutators = map[string]setMethod{
	"update":                      setInPlace("update", (*Set).union),
	"intersection_update":         setInPlace("intersection_update", (*Set).intersection),
	"difference_update":           setInPlace("difference_update", (*Set).difference),
	"symmetric_difference_update": setInPlace("symmetric_difference_update", (*Set).symmetricDifference),
	"add": func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("add", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		return None, self.Add(args[0])
	},
	"discard": func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("discard", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		_, err := self.Remove(args[0])
		return None, err
	},
	"remove": func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("remove", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		ok, err := self.Remove(args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newException(KeyErrorClass, args[0])
		}
		return None, nil
	},
	"pop": func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("pop", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		items := self.Items()
		if len(items) == 0 {
			return nil, NewError(KeyErrorClass, "pop from an empty set")
		}
		_, err := self.Remove(items[0])
		return items[0], err
	},
	"clear": func(e *Engine, self *Set, args []Value, kwargs *Dict) (Value, error) {
		self.d.Clear()
		return None, argCount("clear", args, kwargs, 0, 0)
	},
}
