package pyvm

import (
	"github.com/reusee/pyrun/pycode"
)

func codeOperand(v Value) (*pycode.CodeUnit, error) {
	c, ok := v.(*Code)
	if !ok {
		return nil, internalf(ErrBadOperand, "function body is %s, not code", TypeName(v))
	}
	return c.Unit, nil
}

// callArgs converts the operands of CALL_FUNCTION_EX.
func (e *Engine) callArgs(fn, args, kwargs Value) ([]Value, *Dict, error) {
	var positional []Value
	if t, ok := args.(Tuple); ok {
		positional = t
	} else {
		if !e.isIterable(args) {
			return nil, nil, NewError(TypeErrorClass, "%s argument after * must be an iterable, not %s", callableName(fn), TypeName(args))
		}
		vs, err := e.ToSlice(args)
		if err != nil {
			return nil, nil, err
		}
		positional = vs
	}
	if kwargs == nil {
		return positional, nil, nil
	}
	if d, ok := kwargs.(*Dict); ok {
		return positional, d, nil
	}
	pairs, ok, err := e.mappingItems(kwargs)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, NewError(TypeErrorClass, "%s argument after ** must be a mapping, not %s", callableName(fn), TypeName(kwargs))
	}
	d := NewDict()
	for _, kv := range pairs {
		if _, ok := kv[0].(Str); !ok {
			return nil, nil, NewError(TypeErrorClass, "%s keywords must be strings", callableName(fn))
		}
		if err := d.Set(kv[0], kv[1]); err != nil {
			return nil, nil, err
		}
	}
	return positional, d, nil
}

func (e *Engine) pushCall(f *Frame, fn Value, args []Value, kwargs *Dict) error {
	ret, err := e.call(fn, args, kwargs)
	if err != nil {
		return err
	}
	f.Push(ret)
	return nil
}

func call36Fragment() fragment {
	return fragment{
		name: "call 3.6",
		handlers: map[string]Handler{
			"CALL_FUNCTION": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				args := f.Popn(in.Arg)
				fn := f.Pop()
				return WhyNone, e.pushCall(f, fn, args, nil)
			},
			"CALL_FUNCTION_KW": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				names, ok := f.Pop().(Tuple)
				if !ok || len(names) > in.Arg {
					return WhyNone, internalf(ErrBadOperand, "bad keyword names for CALL_FUNCTION_KW")
				}
				args := f.Popn(in.Arg)
				fn := f.Pop()
				split := len(args) - len(names)
				kwargs := NewDict()
				for i, name := range names {
					if err := kwargs.Set(name, args[split+i]); err != nil {
						return WhyNone, err
					}
				}
				return WhyNone, e.pushCall(f, fn, args[:split], kwargs)
			},
			"CALL_FUNCTION_EX": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				var kwargs Value
				if in.Arg&1 != 0 {
					kwargs = f.Pop()
				}
				callargs := f.Pop()
				fn := f.Pop()
				args, kw, err := e.callArgs(fn, callargs, kwargs)
				if err != nil {
					return WhyNone, err
				}
				return WhyNone, e.pushCall(f, fn, args, kw)
			},

			"MAKE_FUNCTION": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				qualname := f.Pop()
				code, err := codeOperand(f.Pop())
				if err != nil {
					return WhyNone, err
				}
				fn := NewFunction(code, f.Globals)
				if s, ok := qualname.(Str); ok {
					fn.Qualname = string(s)
				}
				if in.Arg&0x08 != 0 {
					cells, err := closureCells(f.Pop())
					if err != nil {
						return WhyNone, err
					}
					fn.Closure = cells
				}
				if in.Arg&0x04 != 0 {
					if d, ok := f.Pop().(*Dict); ok {
						fn.Annotations = d
					}
				}
				if in.Arg&0x02 != 0 {
					if d, ok := f.Pop().(*Dict); ok {
						fn.KwDefaults = d
					}
				}
				if in.Arg&0x01 != 0 {
					defaults, ok := f.Pop().(Tuple)
					if !ok {
						return WhyNone, internalf(ErrBadOperand, "function defaults are not a tuple")
					}
					fn.Defaults = defaults
				}
				f.Push(fn)
				return WhyNone, nil
			},
		},
	}
}

func closureCells(v Value) ([]*Cell, error) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, internalf(ErrBadOperand, "closure is %s, not a tuple", TypeName(v))
	}
	cells := make([]*Cell, len(t))
	for i, c := range t {
		cell, ok := c.(*Cell)
		if !ok {
			return nil, internalf(ErrBadOperand, "closure item is %s, not a cell", TypeName(c))
		}
		cells[i] = cell
	}
	return cells, nil
}

// methodFragment avoids creating bound methods for plain method calls.
// The stack holds either (function, self) or (nil, callable) between the two opcodes.
func methodFragment() fragment {
	return fragment{
		name: "method",
		handlers: map[string]Handler{
			"LOAD_METHOD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				obj := f.Top()
				if inst, ok := obj.(*Instance); ok {
					if attr, _, found := inst.Class.Lookup(in.Name); found {
						if fn, ok := attr.(*Function); ok {
							if _, shadowed := inst.Dict.GetStr(in.Name); !shadowed {
								f.setTop(fn)
								f.Push(obj)
								return WhyNone, nil
							}
						}
					}
				}
				attr, err := e.GetAttr(obj, in.Name)
				if err != nil {
					return WhyNone, err
				}
				f.setTop(nil)
				f.Push(attr)
				return WhyNone, nil
			},
			"CALL_METHOD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				args := f.Popn(in.Arg)
				self := f.Pop()
				method := f.Pop()
				if method == nil {
					return WhyNone, e.pushCall(f, self, args, nil)
				}
				return WhyNone, e.pushCall(f, method, append([]Value{self}, args...), nil)
			},
		},
	}
}
