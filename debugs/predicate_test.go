package debugs

import (
	"testing"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyvm"
)

func TestCompilePredicate(t *testing.T) {
	frame := &pyvm.Frame{
		Code: &pycode.CodeUnit{
			Name: "work",
		},
	}
	events := []*pyvm.TraceEvent{
		{Kind: pyvm.TraceCall, Frame: frame, Line: 1},
		{Kind: pyvm.TraceInstruction, Opname: "LOAD_CONST", Operand: pyvm.Int(42), Line: 2, Frame: frame},
		{Kind: pyvm.TraceInstruction, Opname: "LOAD_NAME", Operand: "x", Line: 3, Depth: 2, Frame: frame},
		{Kind: pyvm.TraceInstruction, Opname: "JUMP_FORWARD", Operand: 10, Offset: 4},
	}

	cases := []struct {
		expr string
		want []bool
	}{
		{`kind == "call"`, []bool{true, false, false, false}},
		{`opname.startswith("LOAD_")`, []bool{false, true, true, false}},
		{`operand == 42`, []bool{false, true, false, false}},
		{`operand == 10 and offset == 4`, []bool{false, false, false, true}},
		{`depth > 1 or line == 1`, []bool{true, false, true, false}},
		{`code == "work"`, []bool{true, true, true, false}},
	}
	for _, c := range cases {
		t.Run(c.expr, func(t *testing.T) {
			pred, err := CompilePredicate(c.expr)
			if err != nil {
				t.Fatal(err)
			}
			for i, ev := range events {
				ok, err := pred(ev)
				if err != nil {
					t.Fatal(err)
				}
				if ok != c.want[i] {
					t.Fatalf("event %d: got %v", i, ok)
				}
			}
		})
	}
}

func TestCompilePredicateErrors(t *testing.T) {
	if _, err := CompilePredicate(`kind ==`); err == nil {
		t.Fatal("expected syntax error")
	}
	pred, err := CompilePredicate(`line + "x"`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pred(&pyvm.TraceEvent{Kind: pyvm.TraceLine}); err == nil {
		t.Fatal("expected evaluation error")
	}
}
