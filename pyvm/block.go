package pyvm

import "fmt"

type BlockKind uint8

const (
	BlockLoop BlockKind = iota + 1
	BlockSetupExcept
	BlockFinally
	BlockExceptHandler
	BlockWith
)

func (k BlockKind) String() string {
	switch k {
	case BlockLoop:
		return "Loop"
	case BlockSetupExcept:
		return "SetupExcept"
	case BlockFinally:
		return "Finally"
	case BlockExceptHandler:
		return "ExceptHandler"
	case BlockWith:
		return "With"
	}
	return fmt.Sprintf("BlockKind(%d)", k)
}

type Block struct {
	Kind BlockKind
	// Handler is the resume target.
	Handler int
	// Level is the stack depth when the block was pushed.
	Level int
}

// Why is the control transfer reason returned by opcode handlers.
// It is also pushed on the stack as the tag read back by END_FINALLY.
type Why uint8

const (
	WhyNone Why = iota
	WhyReturn
	WhyBreak
	WhyContinue
	WhyException
	WhyReraise
	WhyYield
	WhySilenced
)

var whyNames = [...]string{
	WhyNone:      "none",
	WhyReturn:    "return",
	WhyBreak:     "break",
	WhyContinue:  "continue",
	WhyException: "exception",
	WhyReraise:   "reraise",
	WhyYield:     "yield",
	WhySilenced:  "silenced",
}

func (w Why) String() string {
	if int(w) < len(whyNames) {
		return whyNames[w]
	}
	return fmt.Sprintf("Why(%d)", w)
}

func (Why) Type() *Class { return whyClass }
