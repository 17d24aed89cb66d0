package pyvm

import (
	"slices"
	"strings"
)

// callableName names a callable in argument errors, as in "f()".
func callableName(v Value) string {
	switch fn := v.(type) {
	case *Function:
		return fn.Qualname + "()"
	case *Builtin:
		return fn.Name + "()"
	case *BoundMethod:
		return callableName(fn.Func)
	case *Class:
		return fn.Name + "()"
	}
	return TypeName(v) + " object"
}

// mappingItems lists the pairs of a dict or of an object with keys() and __getitem__.
func (e *Engine) mappingItems(v Value) ([][2]Value, bool, error) {
	if d, ok := v.(*Dict); ok {
		var ret [][2]Value
		for k, val := range d.All() {
			ret = append(ret, [2]Value{k, val})
		}
		return ret, true, nil
	}
	keysFn, ok := e.userSpecial(v, "keys")
	if !ok {
		return nil, false, nil
	}
	keys, err := e.call(keysFn, nil, nil)
	if err != nil {
		return nil, true, err
	}
	ks, err := e.ToSlice(keys)
	if err != nil {
		return nil, true, err
	}
	ret := make([][2]Value, 0, len(ks))
	for _, k := range ks {
		val, err := e.GetItem(v, k)
		if err != nil {
			return nil, true, err
		}
		ret = append(ret, [2]Value{k, val})
	}
	return ret, true, nil
}

// yieldFrom sends v to receiver; done is true when receiver finished with result.
func (e *Engine) yieldFrom(receiver, v Value) (out Value, done bool, err error) {
	switch r := receiver.(type) {
	case *Generator:
		out, err = e.Send(r, v)
	case *Iterator:
		if v != None {
			return nil, false, attributeError(receiver, "send")
		}
		var more bool
		out, more, err = r.Next()
		if err == nil && !more {
			return None, true, nil
		}
	default:
		var method Value
		if v == None {
			var ok bool
			method, ok = e.nextMethod(receiver)
			if !ok {
				return nil, false, NewError(TypeErrorClass, "'%s' object is not an iterator", TypeName(receiver))
			}
			out, err = e.call(method, nil, nil)
		} else if method, err = e.GetAttr(receiver, "send"); err == nil {
			out, err = e.call(method, []Value{v}, nil)
		}
	}
	if err != nil {
		if value, ok := StopIterationValue(err); ok {
			return value, true, nil
		}
		return nil, false, err
	}
	return out, false, nil
}

func (e *Engine) raiseVarargs(f *Frame, n int) (Why, error) {
	var cause Value
	switch n {
	case 0:
		handled := e.handled(f)
		if handled.IsZero() {
			return WhyNone, NewError(RuntimeErrorClass, "No active exception to reraise")
		}
		f.Raised = handled
		return WhyReraise, nil
	case 2:
		cause = f.Pop()
	}
	pe, err := e.makeException(f.Pop(), nil)
	if err != nil {
		return WhyNone, err
	}
	if cause != nil {
		inst := pe.Exception.Value.(*Instance)
		switch c := cause.(type) {
		case NoneType:
		case *Class:
			if !c.IsSubclass(BaseExceptionClass) {
				return WhyNone, NewError(TypeErrorClass, "exception causes must derive from BaseException")
			}
			ce, err := e.makeException(c, nil)
			if err != nil {
				return WhyNone, err
			}
			cause = ce.Exception.Value
		default:
			if !isException(cause) {
				return WhyNone, NewError(TypeErrorClass, "exception causes must derive from BaseException")
			}
		}
		inst.Dict.SetStr("__cause__", cause)
		inst.Dict.SetStr("__suppress_context__", True)
	}
	return WhyNone, pe
}

// withExit picks the exit callable of a with block out of the stack, leaving the exception slots in place.
// It returns the exception type seen, or None when the block exited normally.
func (f *Frame) withExit() (exit, exc, val, tb Value, err error) {
	exc = f.Top()
	val, tb = None, None
	switch tag := exc.(type) {
	case nil, NoneType:
		f.Pop()
		exit = f.Top()
		f.setTop(exc)
		exc = None
	case Why:
		f.Pop()
		if tag == WhyReturn || tag == WhyContinue {
			exit = f.Peek(2)
			f.setPeek(2, f.Top())
		} else {
			exit = f.Top()
		}
		f.setTop(tag)
		exc = None
	case *Class:
		val = f.Peek(2)
		tb = f.Peek(3)
		exit = f.Peek(7)
		f.setPeek(7, f.Peek(6))
		f.setPeek(6, f.Peek(5))
		f.setPeek(5, f.Peek(4))
		f.setPeek(4, nil)
		if len(f.Blocks) == 0 || f.Blocks[len(f.Blocks)-1].Kind != BlockExceptHandler {
			return nil, nil, nil, nil, internalf(ErrBlockUnderflow, "with cleanup outside an except handler")
		}
		f.Blocks[len(f.Blocks)-1].Level--
	default:
		return nil, nil, nil, nil, internalf(ErrBadOperand, "with cleanup on %s", TypeName(exc))
	}
	return
}

// endFinally36 is END_FINALLY for 3.6 and 3.7.
func (e *Engine) endFinally36(f *Frame, status Value) (Why, error) {
	switch s := status.(type) {
	case NoneType:
		return WhyNone, nil
	case Why:
		if s == WhyReturn || s == WhyContinue {
			f.ReturnValue = f.Pop()
		}
		if s == WhySilenced {
			b := f.popBlock()
			if b.Kind != BlockExceptHandler {
				return WhyNone, internalf(ErrBlockUnderflow, "popped %s block, want ExceptHandler", b.Kind)
			}
			f.unwindExceptHandler(b, WhyNone)
			return WhyNone, nil
		}
		return s, nil
	case *Class:
		val := f.Pop()
		tb := f.Pop()
		f.Raised = exceptionFromStack(tb, val, s)
		return WhyReraise, nil
	}
	return WhyNone, internalf(ErrBadOperand, "'finally' pops bad exception %s", TypeName(status))
}

func py3Fragment() fragment {
	return fragment{
		name: "py3",
		handlers: map[string]Handler{
			"DUP_TOP_TWO": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(f.Peek(2), f.Peek(1))
				return WhyNone, nil
			},
			"BINARY_MATRIX_MULTIPLY":  binaryHandler("@"),
			"INPLACE_MATRIX_MULTIPLY": inplaceHandler("@"),

			"RAISE_VARARGS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return e.raiseVarargs(f, in.Arg)
			},

			"GET_YIELD_FROM_ITER": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if _, ok := f.Top().(*Generator); ok {
					return WhyNone, nil
				}
				it, err := e.Iter(f.Top())
				if err != nil {
					return WhyNone, err
				}
				f.setTop(it)
				return WhyNone, nil
			},
			"YIELD_FROM": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if f.Generator == nil {
					return WhyNone, internalf(ErrBadOperand, "yield from outside a generator")
				}
				v := f.Pop()
				receiver := f.Top()
				out, done, err := e.yieldFrom(receiver, v)
				if err != nil {
					f.Generator.delegate = nil
					return WhyNone, err
				}
				if done {
					f.Generator.delegate = nil
					f.setTop(out)
					return WhyNone, nil
				}
				f.Generator.delegate = receiver
				f.ReturnValue = out
				f.Jump(in.Offset)
				return WhyYield, nil
			},

			"LOAD_BUILD_CLASS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v, ok := f.Builtins.GetStr("__build_class__")
				if !ok {
					return WhyNone, NewError(NameErrorClass, "__build_class__ not found")
				}
				f.Push(v)
				return WhyNone, nil
			},

			"SETUP_ANNOTATIONS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				if _, ok := locals.GetStr("__annotations__"); !ok {
					locals.SetStr("__annotations__", NewDict())
				}
				return WhyNone, nil
			},

			"WITH_CLEANUP_START": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				exit, exc, val, tb, err := f.withExit()
				if err != nil {
					return WhyNone, err
				}
				res, err := e.call(exit, []Value{exc, val, tb}, nil)
				if err != nil {
					return WhyNone, err
				}
				f.Push(exc, res)
				return WhyNone, nil
			},
			"WITH_CLEANUP_FINISH": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				res := f.Pop()
				exc := f.Pop()
				if exc == None {
					return WhyNone, nil
				}
				silenced, err := e.Truth(res)
				if err != nil || !silenced {
					return WhyNone, err
				}
				if !f.Behavior.Dialect.Traits.FinallyCalls {
					f.Push(WhySilenced)
					return WhyNone, nil
				}
				b := f.popBlock()
				if b.Kind != BlockExceptHandler {
					return WhyNone, internalf(ErrBlockUnderflow, "popped %s block, want ExceptHandler", b.Kind)
				}
				f.unwindExceptHandler(b, WhyNone)
				f.Push(nil)
				return WhyNone, nil
			},

			"POP_EXCEPT": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				b := f.popBlock()
				if b.Kind != BlockExceptHandler {
					return WhyNone, internalf(ErrBlockUnderflow, "popped block is not an except handler")
				}
				f.unwindExceptHandler(b, WhyNone)
				return WhyNone, nil
			},

			"UNPACK_EX": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				before, after := in.Arg&0xff, in.Arg>>8
				seq := f.Pop()
				items, err := e.ToSlice(seq)
				if err != nil {
					var pe *PyError
					if asPyError(err, &pe) && pe.Matches(TypeErrorClass) {
						return WhyNone, NewError(TypeErrorClass, "cannot unpack non-iterable %s object", TypeName(seq))
					}
					return WhyNone, err
				}
				if len(items) < before+after {
					return WhyNone, NewError(ValueErrorClass, "not enough values to unpack (expected at least %d, got %d)", before+after, len(items))
				}
				for i := len(items) - 1; i >= len(items)-after; i-- {
					f.Push(items[i])
				}
				f.Push(NewList(slices.Clone(items[before : len(items)-after])...))
				for i := before - 1; i >= 0; i-- {
					f.Push(items[i])
				}
				return WhyNone, nil
			},

			"DELETE_DEREF": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				cell := f.Cells[in.Arg]
				if cell.Value == nil {
					return WhyNone, derefError(f, in.Arg)
				}
				cell.Value = nil
				return WhyNone, nil
			},
			"LOAD_CLASSDEREF": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if f.Locals != nil {
					if v, ok := f.Locals.GetStr(in.Name); ok {
						f.Push(v)
						return WhyNone, nil
					}
				}
				v := f.Cells[in.Arg].Value
				if v == nil {
					return WhyNone, derefError(f, in.Arg)
				}
				f.Push(v)
				return WhyNone, nil
			},

			"BUILD_MAP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				items := f.Popn(2 * in.Arg)
				d := NewDict()
				for i := 0; i < len(items); i += 2 {
					if err := d.Set(items[i], items[i+1]); err != nil {
						return WhyNone, err
					}
				}
				f.Push(d)
				return WhyNone, nil
			},
			"BUILD_CONST_KEY_MAP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				keys, ok := f.Pop().(Tuple)
				if !ok || len(keys) != in.Arg {
					return WhyNone, internalf(ErrBadOperand, "bad BUILD_CONST_KEY_MAP keys argument")
				}
				values := f.Popn(in.Arg)
				d := NewDict()
				for i, k := range keys {
					if err := d.Set(k, values[i]); err != nil {
						return WhyNone, err
					}
				}
				f.Push(d)
				return WhyNone, nil
			},

			"BUILD_TUPLE_UNPACK": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				items, err := e.concatIterables(f, in.Arg, false)
				if err != nil {
					return WhyNone, err
				}
				f.Push(Tuple(items))
				return WhyNone, nil
			},
			"BUILD_TUPLE_UNPACK_WITH_CALL": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				items, err := e.concatIterables(f, in.Arg, true)
				if err != nil {
					return WhyNone, err
				}
				f.Push(Tuple(items))
				return WhyNone, nil
			},
			"BUILD_LIST_UNPACK": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				items, err := e.concatIterables(f, in.Arg, false)
				if err != nil {
					return WhyNone, err
				}
				f.Push(NewList(items...))
				return WhyNone, nil
			},
			"BUILD_SET_UNPACK": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				items, err := e.concatIterables(f, in.Arg, false)
				if err != nil {
					return WhyNone, err
				}
				s, err := NewSet(items...)
				if err != nil {
					return WhyNone, err
				}
				f.Push(s)
				return WhyNone, nil
			},
			"BUILD_MAP_UNPACK": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				d, err := e.mergeMappings(f, in.Arg, false)
				if err != nil {
					return WhyNone, err
				}
				f.Push(d)
				return WhyNone, nil
			},
			"BUILD_MAP_UNPACK_WITH_CALL": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				d, err := e.mergeMappings(f, in.Arg, true)
				if err != nil {
					return WhyNone, err
				}
				f.Push(d)
				return WhyNone, nil
			},

			"FORMAT_VALUE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				spec := ""
				if in.Arg&0x4 != 0 {
					s, ok := f.Pop().(Str)
					if !ok {
						return WhyNone, internalf(ErrBadOperand, "format spec is not a string")
					}
					spec = string(s)
				}
				v := f.Pop()
				var s string
				var err error
				switch in.Arg & 0x3 {
				case 1:
					s, err = e.Str(v)
					v = Str(s)
				case 2:
					s, err = e.Repr(v)
					v = Str(s)
				case 3:
					s, err = e.Ascii(v)
					v = Str(s)
				}
				if err != nil {
					return WhyNone, err
				}
				if str, ok := v.(Str); ok && spec == "" {
					f.Push(str)
					return WhyNone, nil
				}
				s, err = e.Format(v, spec)
				if err != nil {
					return WhyNone, err
				}
				f.Push(Str(s))
				return WhyNone, nil
			},
			"BUILD_STRING": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				var b strings.Builder
				for _, v := range f.Popn(in.Arg) {
					s, ok := v.(Str)
					if !ok {
						return WhyNone, internalf(ErrBadOperand, "BUILD_STRING of %s", TypeName(v))
					}
					b.WriteString(string(s))
				}
				f.Push(Str(b.String()))
				return WhyNone, nil
			},
		},
	}
}

// concatIterables pops n iterables and chains their items.
func (e *Engine) concatIterables(f *Frame, n int, forCall bool) ([]Value, error) {
	var fn Value
	if forCall {
		fn = f.Peek(n + 1)
	}
	var items []Value
	for _, v := range f.Popn(n) {
		vs, err := e.ToSlice(v)
		if err != nil {
			var pe *PyError
			if forCall && asPyError(err, &pe) && pe.Matches(TypeErrorClass) && !e.isIterable(v) {
				return nil, NewError(TypeErrorClass, "%s argument after * must be an iterable, not %s", callableName(fn), TypeName(v))
			}
			return nil, err
		}
		items = append(items, vs...)
	}
	return items, nil
}

func (e *Engine) isIterable(v Value) bool {
	switch v.(type) {
	case Str, Bytes, Tuple, *List, *Dict, *Set, *Range, *Iterator, *Generator:
		return true
	}
	if _, ok := e.userSpecial(v, "__iter__"); ok {
		return true
	}
	_, ok := e.userSpecial(v, "__getitem__")
	return ok
}

// mergeMappings pops n mappings into one dict.
// For calls, duplicate keys are an error and the callable sits below the positional arguments.
func (e *Engine) mergeMappings(f *Frame, n int, forCall bool) (*Dict, error) {
	var fn Value
	if forCall {
		fn = f.Peek(n + 2)
	}
	d := NewDict()
	for _, v := range f.Popn(n) {
		pairs, ok, err := e.mappingItems(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			if forCall {
				return nil, NewError(TypeErrorClass, "%s argument after ** must be a mapping, not %s", callableName(fn), TypeName(v))
			}
			return nil, NewError(TypeErrorClass, "'%s' object is not a mapping", TypeName(v))
		}
		for _, kv := range pairs {
			if forCall {
				key, isStr := kv[0].(Str)
				if !isStr {
					return nil, NewError(TypeErrorClass, "%s keywords must be strings", callableName(fn))
				}
				if _, dup := d.GetStr(string(key)); dup {
					return nil, NewError(TypeErrorClass, "%s got multiple values for keyword argument '%s'", callableName(fn), key)
				}
			}
			if err := d.Set(kv[0], kv[1]); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// endFinally36Fragment is the 3.6 and 3.7 finally protocol driven by why tags.
func endFinally36Fragment() fragment {
	return fragment{
		name: "end finally 3.6",
		handlers: map[string]Handler{
			"END_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return e.endFinally36(f, f.Pop())
			},
		},
	}
}

func annotation36Fragment() fragment {
	return fragment{
		name: "annotation 3.6",
		handlers: map[string]Handler{
			"STORE_ANNOTATION": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				ann, ok := locals.GetStr("__annotations__")
				if !ok {
					return WhyNone, NewError(NameErrorClass, "__annotations__ not found")
				}
				return WhyNone, e.SetItem(ann, Str(in.Name), f.Pop())
			},
		},
	}
}
