package pyvm

// finally38Fragment is the 3.8 finally protocol. Normal exits push nil,
// CALL_FINALLY pushes the return offset, and exceptions push their six slots.
func finally38Fragment() fragment {
	return fragment{
		name: "finally 3.8",
		handlers: map[string]Handler{
			"BEGIN_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(nil)
				return WhyNone, nil
			},
			"CALL_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(Int(in.Next))
				f.Jump(in.Target)
				return WhyNone, nil
			},
			"POP_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				var res Value
				if in.Arg != 0 {
					res = f.Pop()
				}
				switch f.Pop().(type) {
				case nil, Int:
				default:
					f.Pop()
					f.Pop()
					b := f.popBlock()
					if b.Kind != BlockExceptHandler {
						return WhyNone, internalf(ErrBlockUnderflow, "popped block is not an except handler")
					}
					f.Handled = f.popException()
				}
				if in.Arg != 0 {
					f.Push(res)
				}
				return WhyNone, nil
			},
			"END_FINALLY": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				switch status := f.Pop().(type) {
				case nil, NoneType:
					return WhyNone, nil
				case Int:
					f.Jump(int(status))
					return WhyNone, nil
				default:
					return e.endFinally36(f, status)
				}
			},
		},
	}
}
