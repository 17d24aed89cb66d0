package pyvm

import (
	"testing"
)

func unwindFrame(t *testing.T, dialect string) (*Engine, *Frame) {
	t.Helper()
	e := NewEngine(Options{})
	b, err := e.Behavior(dialect)
	if err != nil {
		t.Fatal(err)
	}
	return e, &Frame{Behavior: b}
}

func TestUnwindDepth(t *testing.T) {
	cases := []struct {
		kind  BlockKind
		why   Why
		depth int
		left  Why
	}{
		{BlockLoop, WhyBreak, 2, WhyNone},
		{BlockLoop, WhyReturn, 2, WhyReturn},
		{BlockSetupExcept, WhyReturn, 2, WhyReturn},
		{BlockSetupExcept, WhyBreak, 2, WhyBreak},
		{BlockExceptHandler, WhyReturn, 2, WhyReturn},
		{BlockExceptHandler, WhyBreak, 2, WhyBreak},
		{BlockExceptHandler, WhyException, 5, WhyException},
		{BlockExceptHandler, WhyReraise, 5, WhyReraise},
		{BlockExceptHandler, WhySilenced, 2, WhyNone},
	}
	for _, c := range cases {
		e, f := unwindFrame(t, "3.7")
		f.Push(Int(1), Int(2))
		f.pushBlock(c.kind, 40)
		// saved exception slots, then scratch values
		f.Push(None, None, None, Int(3), Int(4))
		got := e.unwind(f, c.why)
		if got != c.left {
			t.Fatalf("%s/%s: why %s, want %s", c.kind, c.why, got, c.left)
		}
		if len(f.Stack) != c.depth {
			t.Fatalf("%s/%s: depth %d, want %d", c.kind, c.why, len(f.Stack), c.depth)
		}
		if len(f.Blocks) != 0 {
			t.Fatalf("%s/%s: residual blocks %v", c.kind, c.why, f.Blocks)
		}
	}
}

func TestUnwindLoopContinue(t *testing.T) {
	e, f := unwindFrame(t, "3.7")
	f.pushBlock(BlockLoop, 30)
	f.Push(Int(1))
	f.ReturnValue = Int(8)
	if why := e.unwind(f, WhyContinue); why != WhyNone {
		t.Fatalf("got %s", why)
	}
	if f.IP != 8 || len(f.Blocks) != 1 {
		t.Fatalf("got ip %d, blocks %v", f.IP, f.Blocks)
	}
}

func TestUnwindIntoHandler(t *testing.T) {
	e, f := unwindFrame(t, "3.7")
	f.Push(Int(1))
	f.pushBlock(BlockSetupExcept, 20)
	f.Push(Int(2), Int(3))
	pe := NewError(ValueErrorClass, "boom")
	f.Raised = pe.Exception
	if why := e.unwind(f, WhyException); why != WhyNone {
		t.Fatalf("got %s", why)
	}
	if f.IP != 20 {
		t.Fatalf("ip %d", f.IP)
	}
	// saved handled state below the raised triple
	if len(f.Stack) != 1+6 {
		t.Fatalf("depth %d", len(f.Stack))
	}
	if len(f.Blocks) != 1 || f.Blocks[0].Kind != BlockExceptHandler || f.Blocks[0].Level != 1 {
		t.Fatalf("blocks %v", f.Blocks)
	}
	if f.Top() != ValueErrorClass || f.Peek(2) != pe.Exception.Value {
		t.Fatalf("stack %v", f.Stack)
	}
	if f.Handled.Value != pe.Exception.Value || !f.Raised.IsZero() {
		t.Fatalf("handled %v raised %v", f.Handled, f.Raised)
	}
}

func TestUnwindFinallyReturn(t *testing.T) {
	e, f := unwindFrame(t, "3.7")
	f.pushBlock(BlockFinally, 12)
	f.Push(Int(9))
	f.ReturnValue = Str("r")
	if why := e.unwind(f, WhyReturn); why != WhyNone {
		t.Fatalf("got %s", why)
	}
	if len(f.Stack) != 2 || f.Peek(2) != Str("r") || f.Top() != WhyReturn {
		t.Fatalf("stack %v", f.Stack)
	}
	if f.IP != 12 || len(f.Blocks) != 0 {
		t.Fatalf("ip %d blocks %v", f.IP, f.Blocks)
	}
}

func TestUnwindLegacyHandler(t *testing.T) {
	e, f := unwindFrame(t, "2.7")
	f.pushBlock(BlockSetupExcept, 6)
	pe := NewError(KeyErrorClass, "k")
	f.Raised = pe.Exception
	if why := e.unwind(f, WhyException); why != WhyNone {
		t.Fatalf("got %s", why)
	}
	// no handler block and only the raised triple in 2.x
	if len(f.Stack) != 3 || len(f.Blocks) != 0 {
		t.Fatalf("stack %v blocks %v", f.Stack, f.Blocks)
	}
	if f.Handled.Type != KeyErrorClass {
		t.Fatalf("handled %v", f.Handled)
	}
}
