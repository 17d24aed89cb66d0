package pyvm

import (
	"fmt"
	"unicode"
)

func (e *Engine) softspace(stream Value) bool {
	if stream == nil || stream == None {
		return e.stdoutSoftspace
	}
	v, err := e.GetAttr(stream, "softspace")
	if err != nil {
		return false
	}
	truth, _ := e.Truth(v)
	return truth
}

func (e *Engine) setSoftspace(stream Value, on bool) {
	if stream == nil || stream == None {
		e.stdoutSoftspace = on
		return
	}
	var v Value = Int(0)
	if on {
		v = Int(1)
	}
	_ = e.SetAttr(stream, "softspace", v)
}

func (e *Engine) printWrite(stream Value, s string) error {
	if stream == nil || stream == None {
		_, err := fmt.Fprint(e.stdout, s)
		return err
	}
	write, err := e.GetAttr(stream, "write")
	if err != nil {
		return err
	}
	_, err = e.call(write, []Value{Str(s)}, nil)
	return err
}

func (e *Engine) printItem(stream, v Value) error {
	if e.softspace(stream) {
		if err := e.printWrite(stream, " "); err != nil {
			return err
		}
	}
	s, err := e.Str(v)
	if err != nil {
		return err
	}
	if err := e.printWrite(stream, s); err != nil {
		return err
	}
	on := true
	if str, ok := v.(Str); ok && len(str) > 0 {
		last := rune(str[len(str)-1])
		if unicode.IsSpace(last) && last != ' ' {
			on = false
		}
	}
	e.setSoftspace(stream, on)
	return nil
}

func (e *Engine) printNewline(stream Value) error {
	if err := e.printWrite(stream, "\n"); err != nil {
		return err
	}
	e.setSoftspace(stream, false)
	return nil
}

// legacyCall is CALL_FUNCTION and its variants with 2.x argument packing.
func legacyCall(varargs, varkw bool) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		var kwExtra, argsExtra Value
		if varkw {
			kwExtra = f.Pop()
		}
		if varargs {
			argsExtra = f.Pop()
		}
		na, nk := in.Arg&0xff, (in.Arg>>8)&0xff
		pairs := f.Popn(2 * nk)
		args := f.Popn(na)
		fn := f.Pop()

		var kwargs *Dict
		if nk > 0 || varkw {
			kwargs = NewDict()
		}
		for i := 0; i < len(pairs); i += 2 {
			if err := kwargs.Set(pairs[i], pairs[i+1]); err != nil {
				return WhyNone, err
			}
		}
		if varargs {
			if !e.isIterable(argsExtra) {
				return WhyNone, NewError(TypeErrorClass, "%s argument after * must be a sequence, not %s", callableName(fn), TypeName(argsExtra))
			}
			extra, err := e.ToSlice(argsExtra)
			if err != nil {
				return WhyNone, err
			}
			args = append(args, extra...)
		}
		if varkw {
			items, ok, err := e.mappingItems(kwExtra)
			if err != nil {
				return WhyNone, err
			}
			if !ok {
				return WhyNone, NewError(TypeErrorClass, "%s argument after ** must be a mapping, not %s", callableName(fn), TypeName(kwExtra))
			}
			for _, kv := range items {
				key, isStr := kv[0].(Str)
				if !isStr {
					return WhyNone, NewError(TypeErrorClass, "%s keywords must be strings", callableName(fn))
				}
				if _, dup := kwargs.GetStr(string(key)); dup {
					return WhyNone, NewError(TypeErrorClass, "%s got multiple values for keyword argument '%s'", callableName(fn), key)
				}
				kwargs.SetStr(string(key), kv[1])
			}
		}
		return WhyNone, e.pushCall(f, fn, args, kwargs)
	}
}

func legacyMakeFunction(closure bool) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		code, err := codeOperand(f.Pop())
		if err != nil {
			return WhyNone, err
		}
		fn := NewFunction(code, f.Globals)
		if closure {
			cells, err := closureCells(f.Pop())
			if err != nil {
				return WhyNone, err
			}
			fn.Closure = cells
		}
		if in.Arg > 0 {
			fn.Defaults = Tuple(f.Popn(in.Arg))
		}
		f.Push(fn)
		return WhyNone, nil
	}
}

// sliceOperands pops the bounds of a SLICE+n family opcode.
func sliceOperands(f *Frame, variant int) *Slice {
	s := &Slice{
		Start: None,
		Stop:  None,
		Step:  None,
	}
	if variant&2 != 0 {
		s.Stop = f.Pop()
	}
	if variant&1 != 0 {
		s.Start = f.Pop()
	}
	return s
}

func (e *Engine) raise27(f *Frame, n int) (Why, error) {
	if n == 0 {
		handled := e.handled(f)
		if handled.IsZero() {
			return WhyNone, NewError(TypeErrorClass, "exceptions must be old-style classes or derived from BaseException, not NoneType")
		}
		f.Raised = handled
		return WhyReraise, nil
	}
	var val, tb Value = None, None
	if n == 3 {
		tb = f.Pop()
	}
	if n >= 2 {
		val = f.Pop()
	}
	typ := f.Pop()
	for {
		t, ok := typ.(Tuple)
		if !ok || len(t) == 0 {
			break
		}
		typ = t[0]
	}
	if !isExceptionClass(typ) && !isException(typ) {
		return WhyNone, NewError(TypeErrorClass, "exceptions must be old-style classes or derived from BaseException, not %s", TypeName(typ))
	}
	pe, err := e.makeException(typ, val)
	if err != nil {
		return WhyNone, err
	}
	switch t := tb.(type) {
	case NoneType:
	case *Traceback:
		pe.Exception.Traceback = t
		if inst, ok := pe.Exception.Value.(*Instance); ok {
			inst.Dict.SetStr("__traceback__", t)
		}
	default:
		return WhyNone, NewError(TypeErrorClass, "raise: arg 3 must be a traceback or None")
	}
	return WhyNone, pe
}

func py27Fragment() fragment {
	handlers := map[string]Handler{
		"STOP_CODE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			return WhyNone, internalf(ErrUnknownOpcode, "STOP_CODE executed")
		},
		"UNARY_CONVERT": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			s, err := e.Repr(f.Top())
			if err != nil {
				return WhyNone, err
			}
			f.setTop(Str(s))
			return WhyNone, nil
		},
		"BINARY_DIVIDE":  binaryHandler("div"),
		"INPLACE_DIVIDE": inplaceHandler("div"),

		"BUILD_MAP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			f.Push(NewDict())
			return WhyNone, nil
		},
		"STORE_MAP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			key := f.Pop()
			value := f.Pop()
			d, ok := f.Top().(*Dict)
			if !ok {
				return WhyNone, internalf(ErrBadOperand, "STORE_MAP to %s", TypeName(f.Top()))
			}
			return WhyNone, d.Set(key, value)
		},
		"DUP_TOPX": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			if in.Arg < 1 || in.Arg > 5 {
				return WhyNone, internalf(ErrBadOperand, "invalid argument to DUP_TOPX (bytecode corruption?)")
			}
			f.Push(f.Stack[len(f.Stack)-in.Arg:]...)
			return WhyNone, nil
		},

		"PRINT_ITEM": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			return WhyNone, e.printItem(nil, f.Pop())
		},
		"PRINT_ITEM_TO": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			stream := f.Pop()
			return WhyNone, e.printItem(stream, f.Pop())
		},
		"PRINT_NEWLINE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			return WhyNone, e.printNewline(nil)
		},
		"PRINT_NEWLINE_TO": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			return WhyNone, e.printNewline(f.Pop())
		},

		"RAISE_VARARGS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			return e.raise27(f, in.Arg)
		},

		"WITH_CLEANUP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			var exit Value
			var v, w Value = None, None
			u := f.Pop()
			switch tag := u.(type) {
			case NoneType:
				exit = f.Top()
				f.setTop(u)
			case Why:
				if tag == WhyReturn || tag == WhyContinue {
					exit = f.Peek(2)
					f.setPeek(2, f.Top())
				} else {
					exit = f.Top()
				}
				f.setTop(u)
				u = None
			default:
				v = f.Top()
				w = f.Peek(2)
				exit = f.Peek(3)
				f.setPeek(1, u)
				f.setPeek(2, v)
				f.setPeek(3, w)
			}
			res, err := e.call(exit, []Value{u, v, w}, nil)
			if err != nil {
				return WhyNone, err
			}
			if u == None {
				return WhyNone, nil
			}
			silenced, err := e.Truth(res)
			if err != nil || !silenced {
				return WhyNone, err
			}
			f.truncate(len(f.Stack) - 2)
			f.setTop(None)
			return WhyNone, nil
		},
		"END_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			switch status := f.Pop().(type) {
			case NoneType:
				return WhyNone, nil
			case Why:
				if status == WhyReturn || status == WhyContinue {
					f.ReturnValue = f.Pop()
				}
				return status, nil
			case *Class:
				val := f.Pop()
				tb := f.Pop()
				f.Raised = exceptionFromStack(tb, val, status)
				return WhyReraise, nil
			default:
				return WhyNone, internalf(ErrBadOperand, "'finally' pops bad exception %s", TypeName(status))
			}
		},

		"LOAD_LOCALS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			locals, err := frameLocals(f)
			if err != nil {
				return WhyNone, err
			}
			f.Push(locals)
			return WhyNone, nil
		},
		"EXEC_STMT": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			locals := f.Pop()
			globals := f.Pop()
			code := f.Pop()
			return WhyNone, e.exec27(f, code, globals, locals)
		},
		"BUILD_CLASS": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			methods := f.Pop()
			bases := f.Pop()
			name := f.Top()
			cls, err := e.buildClass27(f, name, bases, methods)
			if err != nil {
				return WhyNone, err
			}
			f.setTop(cls)
			return WhyNone, nil
		},

		"CALL_FUNCTION":        legacyCall(false, false),
		"CALL_FUNCTION_VAR":    legacyCall(true, false),
		"CALL_FUNCTION_KW":     legacyCall(false, true),
		"CALL_FUNCTION_VAR_KW": legacyCall(true, true),
		"MAKE_FUNCTION":        legacyMakeFunction(false),
		"MAKE_CLOSURE":         legacyMakeFunction(true),
	}

	for variant := range 4 {
		handlers[fmt.Sprintf("SLICE+%d", variant)] = func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			s := sliceOperands(f, variant)
			v, err := e.GetItem(f.Top(), s)
			if err != nil {
				return WhyNone, err
			}
			f.setTop(v)
			return WhyNone, nil
		}
		handlers[fmt.Sprintf("STORE_SLICE+%d", variant)] = func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			s := sliceOperands(f, variant)
			obj := f.Pop()
			return WhyNone, e.SetItem(obj, s, f.Pop())
		}
		handlers[fmt.Sprintf("DELETE_SLICE+%d", variant)] = func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			s := sliceOperands(f, variant)
			return WhyNone, e.DelItem(f.Pop(), s)
		}
	}

	return fragment{
		name:     "py27",
		handlers: handlers,
	}
}

// exec27 is the exec statement over a code object.
func (e *Engine) exec27(f *Frame, code, globals, locals Value) error {
	var unit *Code
	switch c := code.(type) {
	case *Code:
		unit = c
	case Str:
		return NewError(TypeErrorClass, "exec of source text is not supported")
	default:
		return NewError(TypeErrorClass, "exec: arg 1 must be a string, file, or code object")
	}
	g, l := f.Globals, f.Locals
	if globals != None {
		d, ok := globals.(*Dict)
		if !ok {
			return NewError(TypeErrorClass, "exec: arg 2 must be a dictionary or None")
		}
		g, l = d, d
	}
	if locals != None {
		d, ok := locals.(*Dict)
		if !ok {
			return NewError(TypeErrorClass, "exec: arg 3 must be a mapping or None")
		}
		l = d
	}
	if l == nil {
		l = g
	}
	if _, ok := g.GetStr("__builtins__"); !ok {
		g.SetStr("__builtins__", &Module{
			Name: "__builtin__",
			Dict: f.Builtins,
		})
	}
	frame, err := e.newFrame(unit.Unit, g, l, nil)
	if err != nil {
		return err
	}
	_, err = e.runFrame(frame)
	return err
}
