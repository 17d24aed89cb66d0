package pyvm

func buildFragment() fragment {
	return fragment{
		name: "build",
		handlers: map[string]Handler{
			"BUILD_TUPLE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(Tuple(f.Popn(in.Arg)))
				return WhyNone, nil
			},
			"BUILD_LIST": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(NewList(f.Popn(in.Arg)...))
				return WhyNone, nil
			},
			"BUILD_SET": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				s, err := NewSet(f.Popn(in.Arg)...)
				if err != nil {
					return WhyNone, err
				}
				f.Push(s)
				return WhyNone, nil
			},
			"LIST_APPEND": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v := f.Pop()
				l, ok := f.Peek(in.Arg).(*List)
				if !ok {
					return WhyNone, internalf(ErrBadOperand, "LIST_APPEND to %s", TypeName(f.Peek(in.Arg)))
				}
				l.Append(v)
				return WhyNone, nil
			},
			"SET_ADD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v := f.Pop()
				s, ok := f.Peek(in.Arg).(*Set)
				if !ok {
					return WhyNone, internalf(ErrBadOperand, "SET_ADD to %s", TypeName(f.Peek(in.Arg)))
				}
				return WhyNone, s.Add(v)
			},
		},
	}
}

func mapAdd(f *Frame, depth int, key, value Value) error {
	d, ok := f.Peek(depth).(*Dict)
	if !ok {
		return internalf(ErrBadOperand, "MAP_ADD to %s", TypeName(f.Peek(depth)))
	}
	return d.Set(key, value)
}

// mapAddKeyFirstFragment is MAP_ADD with the key on top, as before 3.8.
func mapAddKeyFirstFragment() fragment {
	return fragment{
		name: "map add, key on top",
		handlers: map[string]Handler{
			"MAP_ADD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				key := f.Pop()
				value := f.Pop()
				return WhyNone, mapAdd(f, in.Arg, key, value)
			},
		},
	}
}

func mapAddValueFirstFragment() fragment {
	return fragment{
		name: "map add, value on top",
		handlers: map[string]Handler{
			"MAP_ADD": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				value := f.Pop()
				key := f.Pop()
				return WhyNone, mapAdd(f, in.Arg, key, value)
			},
		},
	}
}
