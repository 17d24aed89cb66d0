package pyvm

import (
	"fmt"
)

func jumpIf(pop, when bool) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		var v Value
		if pop {
			v = f.Pop()
		} else {
			v = f.Top()
		}
		truth, err := e.Truth(v)
		if err != nil {
			return WhyNone, err
		}
		if truth == when {
			f.Jump(in.Target)
		} else if !pop {
			f.Pop()
		}
		return WhyNone, nil
	}
}

// unpack pushes the items of seq so that the first one ends on top.
func (e *Engine) unpack(f *Frame, seq Value, n int) error {
	var items []Value
	switch s := seq.(type) {
	case Tuple:
		items = s
	case *List:
		items = s.Items
	default:
		it, err := e.Iter(seq)
		if err != nil {
			var pe *PyError
			if asPyError(err, &pe) && pe.Matches(TypeErrorClass) {
				return NewError(TypeErrorClass, "cannot unpack non-iterable %s object", TypeName(seq))
			}
			return err
		}
		for len(items) <= n {
			v, ok, err := e.Next(it)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			items = append(items, v)
		}
	}
	if len(items) != n {
		return unpackCountError(f, len(items), n)
	}
	for i := n - 1; i >= 0; i-- {
		f.Push(items[i])
	}
	return nil
}

func unpackCountError(f *Frame, got, expected int) error {
	if f.Behavior.py2 {
		if got > expected {
			return NewError(ValueErrorClass, "too many values to unpack")
		}
		return NewError(ValueErrorClass, "need more than %d value%s to unpack", got, pluralS(got != 1))
	}
	if got > expected {
		return NewError(ValueErrorClass, "too many values to unpack (expected %d)", expected)
	}
	return NewError(ValueErrorClass, "not enough values to unpack (expected %d, got %d)", expected, got)
}

func flowFragment() fragment {
	return fragment{
		name: "flow",
		handlers: map[string]Handler{
			"JUMP_FORWARD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Jump(in.Target)
				return WhyNone, nil
			},
			"JUMP_ABSOLUTE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Jump(in.Target)
				return WhyNone, nil
			},
			"POP_JUMP_IF_FALSE":    jumpIf(true, false),
			"POP_JUMP_IF_TRUE":     jumpIf(true, true),
			"JUMP_IF_FALSE_OR_POP": jumpIf(false, false),
			"JUMP_IF_TRUE_OR_POP":  jumpIf(false, true),

			"RETURN_VALUE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.ReturnValue = f.Pop()
				return WhyReturn, nil
			},
			"YIELD_VALUE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if f.Generator == nil {
					return WhyNone, internalf(ErrBadOperand, "yield outside a generator")
				}
				f.ReturnValue = f.Pop()
				return WhyYield, nil
			},

			"GET_ITER": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				it, err := e.Iter(f.Top())
				if err != nil {
					return WhyNone, err
				}
				f.setTop(it)
				return WhyNone, nil
			},
			"FOR_ITER": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v, ok, err := e.Next(f.Top())
				if err != nil {
					return WhyNone, err
				}
				if ok {
					f.Push(v)
					return WhyNone, nil
				}
				f.Pop()
				f.Jump(in.Target)
				return WhyNone, nil
			},

			"SETUP_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.pushBlock(BlockFinally, in.Target)
				return WhyNone, nil
			},
			"SETUP_WITH": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				mgr := f.Top()
				enter, ok := e.lookupSpecial(mgr, "__enter__")
				if !ok {
					return WhyNone, NewError(AttributeErrorClass, "__enter__")
				}
				exit, ok := e.lookupSpecial(mgr, "__exit__")
				if !ok {
					return WhyNone, NewError(AttributeErrorClass, "__exit__")
				}
				f.setTop(exit)
				res, err := e.call(enter, nil, nil)
				if err != nil {
					return WhyNone, err
				}
				f.pushBlock(BlockWith, in.Target)
				f.Push(res)
				return WhyNone, nil
			},
			"POP_BLOCK": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				b := f.popBlock()
				if !f.Behavior.Dialect.Traits.FinallyCalls {
					f.truncate(b.Level)
				}
				return WhyNone, nil
			},

			"UNPACK_SEQUENCE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return WhyNone, e.unpack(f, f.Pop(), in.Arg)
			},

			"PRINT_EXPR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v := f.Pop()
				if v == None {
					return WhyNone, nil
				}
				f.Builtins.SetStr("_", None)
				s, err := e.Repr(v)
				if err != nil {
					return WhyNone, err
				}
				if _, err := fmt.Fprintln(e.stdout, s); err != nil {
					return WhyNone, err
				}
				f.Builtins.SetStr("_", v)
				return WhyNone, nil
			},

			"BUILD_SLICE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				var step Value = None
				if in.Arg == 3 {
					step = f.Pop()
				}
				stop := f.Pop()
				start := f.Pop()
				f.Push(&Slice{
					Start: start,
					Stop:  stop,
					Step:  step,
				})
				return WhyNone, nil
			},
		},
	}
}
