package pyasm

import (
	"slices"
	"testing"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

func load(t *testing.T, name string) *pyops.Dialect {
	t.Helper()
	d, err := pyops.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAssembleOperands(t *testing.T) {
	d := load(t, "3.7")
	code, err := New(d, "f").
		Params(Params{Args: []string{"a"}}).
		CellVars("c").
		Line(3).
		Op("LOAD_FAST", "a").
		Op("LOAD_CONST", 1).
		Op("COMPARE_OP", "<").
		Op("POP_JUMP_IF_FALSE", "else").
		Line(4).
		Op("LOAD_CONST", 1).
		Op("STORE_DEREF", "c").
		Label("else").
		Op("LOAD_GLOBAL", "g").
		Op("LOAD_CONST", 1).
		Op("RETURN_VALUE").
		Assemble()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(code.Consts, []any{int64(1)}) {
		t.Fatalf("got %v", code.Consts)
	}
	if !slices.Equal(code.Names, []string{"g"}) {
		t.Fatalf("got %v", code.Names)
	}
	if code.ArgCount != 1 || !code.NewLocals() {
		t.Fatalf("got %+v", code)
	}
	want := []byte{
		124, 0,
		100, 0,
		107, 0,
		114, 12,
		100, 0,
		137, 0,
		116, 0,
		100, 0,
		83, 0,
	}
	if !slices.Equal(code.Code, want) {
		t.Fatalf("got %v", code.Code)
	}
	if code.LineAt(0) != 3 || code.LineAt(8) != 4 {
		t.Fatalf("got lines %d %d", code.LineAt(0), code.LineAt(8))
	}
}

func TestAssembleExtendedJump(t *testing.T) {
	d := load(t, "3.7")
	a := New(d, "big").Op("JUMP_FORWARD", "end")
	for range 200 {
		a.Op("NOP")
	}
	a.Label("end").Op("LOAD_CONST", nil).Op("RETURN_VALUE")
	code, err := a.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	instr, err := d.Decode(code.Code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if instr.Next != 4 || instr.Target() != 404 {
		t.Fatalf("got %+v target %d", instr, instr.Target())
	}
	last, err := d.Decode(code.Code, 404)
	if err != nil {
		t.Fatal(err)
	}
	if last.Op.Name != "LOAD_CONST" {
		t.Fatalf("got %v", last)
	}
}

func TestAssembleVariableLength(t *testing.T) {
	d := load(t, "2.7")
	code, err := New(d, "<module>").
		Label("top").
		Op("LOAD_CONST", "x").
		Op("PRINT_ITEM").
		Op("PRINT_NEWLINE").
		Op("JUMP_ABSOLUTE", "top").
		Assemble()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(code.Code, []byte{100, 0, 0, 71, 72, 113, 0, 0}) {
		t.Fatalf("got %v", code.Code)
	}
}

func TestAssembleErrors(t *testing.T) {
	d := load(t, "3.6")
	for _, a := range []*Assembler{
		New(d, "a").Op("LOAD_METHOD", "x"),
		New(d, "b").Op("JUMP_FORWARD", "nowhere"),
		New(d, "c").Op("LOAD_DEREF", "missing"),
		New(d, "d").Op("COMPARE_OP", "<>"),
		New(d, "e").Op("POP_TOP", 1),
		New(d, "f").Label("x").Op("NOP").Op("JUMP_FORWARD", "x"),
	} {
		if _, err := a.Assemble(); err == nil {
			t.Fatal("should error")
		}
	}
}

func TestConstInterning(t *testing.T) {
	d := load(t, "3.7")
	a := New(d, "m")
	inner1, err := a.Nested("f").Op("LOAD_CONST", nil).Op("RETURN_VALUE").Assemble()
	if err != nil {
		t.Fatal(err)
	}
	inner2, err := a.Nested("f").Op("LOAD_CONST", nil).Op("RETURN_VALUE").Assemble()
	if err != nil {
		t.Fatal(err)
	}
	indexes := []int{
		a.Const(1),
		a.Const(int64(1)),
		a.Const(true),
		a.Const(1.0),
		a.Const("1"),
		a.Const(pycode.Tuple{1, "a"}),
		a.Const(pycode.Tuple{int64(1), "a"}),
		a.Const(inner1),
		a.Const(inner2),
	}
	if !slices.Equal(indexes, []int{0, 0, 1, 2, 3, 4, 4, 5, 6}) {
		t.Fatalf("got %v", indexes)
	}
}
