package pyvm

// loopFragment is the loop block protocol of dialects before 3.8.
func loopFragment() fragment {
	return fragment{
		name: "loop",
		handlers: map[string]Handler{
			"SETUP_LOOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.pushBlock(BlockLoop, in.Target)
				return WhyNone, nil
			},
			"SETUP_EXCEPT": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.pushBlock(BlockSetupExcept, in.Target)
				return WhyNone, nil
			},
			"BREAK_LOOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return WhyBreak, nil
			},
			"CONTINUE_LOOP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.ReturnValue = Int(in.Target)
				return WhyContinue, nil
			},
		},
	}
}
