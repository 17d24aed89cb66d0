package pyvm

func stackFragment() fragment {
	return fragment{
		name: "stack",
		handlers: map[string]Handler{
			"NOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return WhyNone, nil
			},
			"POP_TOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Pop()
				return WhyNone, nil
			},
			"ROT_TWO": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				a, b := f.Peek(1), f.Peek(2)
				f.setPeek(1, b)
				f.setPeek(2, a)
				return WhyNone, nil
			},
			"ROT_THREE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				rotate(f, 3)
				return WhyNone, nil
			},
			"DUP_TOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(f.Top())
				return WhyNone, nil
			},
		},
	}
}

// rotate moves the top value down to position n.
func rotate(f *Frame, n int) {
	top := f.Peek(1)
	for i := 1; i < n; i++ {
		f.setPeek(i, f.Peek(i+1))
	}
	f.setPeek(n, top)
}

func rotFourFragment() fragment {
	return fragment{
		name: "rot_four",
		handlers: map[string]Handler{
			"ROT_FOUR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				rotate(f, 4)
				return WhyNone, nil
			},
		},
	}
}
