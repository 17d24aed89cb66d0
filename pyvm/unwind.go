package pyvm

// unwind applies block-stack transitions until why is handled or no block remains.
func (e *Engine) unwind(f *Frame, why Why) Why {
	for why != WhyNone && len(f.Blocks) > 0 {
		b := f.Blocks[len(f.Blocks)-1]

		if b.Kind == BlockLoop && why == WhyContinue {
			target, ok := f.ReturnValue.(Int)
			if !ok {
				panic(internalf(ErrBadOperand, "continue without a target"))
			}
			f.Jump(int(target))
			return WhyNone
		}

		f.popBlock()

		if b.Kind == BlockExceptHandler {
			f.unwindExceptHandler(b, why)
			if why == WhySilenced {
				return WhyNone
			}
			continue
		}

		f.truncate(b.Level)

		switch b.Kind {
		case BlockLoop:
			if why == WhyBreak {
				f.Jump(b.Handler)
				return WhyNone
			}

		case BlockSetupExcept, BlockFinally, BlockWith:
			if why == WhyException || why == WhyReraise {
				e.enterHandler(f, b)
				return WhyNone
			}
			if b.Kind != BlockSetupExcept {
				if why == WhyReturn || why == WhyContinue {
					f.Push(f.ReturnValue)
				}
				f.Push(why)
				f.Jump(b.Handler)
				return WhyNone
			}
		}
	}
	return why
}

// enterHandler transfers the exception in flight to the handler of b.
func (e *Engine) enterHandler(f *Frame, b Block) {
	if f.Behavior.Dialect.Traits.ExceptHandlerBlocks {
		f.pushBlock(BlockExceptHandler, -1)
		f.pushException(f.Handled)
		f.Handled = f.Raised
	} else if b.Kind == BlockSetupExcept || b.Kind == BlockWith {
		f.Handled = f.Raised
	}
	f.pushException(f.Raised)
	f.Raised = ExceptionState{}
	f.Jump(b.Handler)
}

// unwindExceptHandler restores the exception state saved below an except-handler block.
// For exception reasons the three saved slots stay on the stack for the next handling block to drop.
func (f *Frame) unwindExceptHandler(b Block, why Why) {
	f.truncate(b.Level + 3)
	if why == WhyException || why == WhyReraise {
		f.Handled = exceptionFromStack(f.Peek(3), f.Peek(2), f.Peek(1))
		return
	}
	f.Handled = f.popException()
	f.truncate(b.Level)
}
