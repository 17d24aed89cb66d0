package pyops

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/reusee/pyrun/pycode"
)

func TestLoadAll(t *testing.T) {
	names := Names()
	if !slices.Equal(names, []string{"2.7", "3.6", "3.7", "3.8"}) {
		t.Fatalf("got %v", names)
	}
	for _, name := range names {
		d, err := Load(name)
		if err != nil {
			t.Fatal(err)
		}
		if d.Name != name {
			t.Fatalf("got %s", d.Name)
		}
		op, ok := d.Op("LOAD_CONST")
		if !ok || op.Number != 100 || op.Category != CategoryConst {
			t.Fatalf("%s: got %+v", name, op)
		}
		if len(d.CompareOps) != 12 || d.CompareOps[10] != "exception match" {
			t.Fatalf("%s: got %v", name, d.CompareOps)
		}
	}
}

func TestDialectDifferences(t *testing.T) {
	d27, err := Load("2.7")
	if err != nil {
		t.Fatal(err)
	}
	d36, err := Load("3.6")
	if err != nil {
		t.Fatal(err)
	}
	d37, err := Load("3.7")
	if err != nil {
		t.Fatal(err)
	}
	d38, err := Load("3.8")
	if err != nil {
		t.Fatal(err)
	}

	if d36.Has("LOAD_METHOD") || !d37.Has("LOAD_METHOD") {
		t.Fatal("LOAD_METHOD")
	}
	if d38.Has("SETUP_LOOP") || !d37.Has("SETUP_LOOP") {
		t.Fatal("SETUP_LOOP")
	}
	if !d38.Has("BEGIN_FINALLY") || !d38.Traits.FinallyCalls {
		t.Fatal("BEGIN_FINALLY")
	}
	if d27.Wordcode || d27.ExtendedArg != 145 || d37.ExtendedArg != 144 {
		t.Fatal("extended arg")
	}
	if !d27.Traits.LegacyCalls || d27.Traits.ExceptHandlerBlocks {
		t.Fatalf("got %+v", d27.Traits)
	}
	op, ok := d27.Lookup(134)
	if !ok || op.Name != "MAKE_CLOSURE" {
		t.Fatalf("got %+v", op)
	}
	if _, ok := d37.Lookup(134); ok {
		t.Fatal("should not exist")
	}
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("1.5")
	if !errors.Is(err, ErrUnknownDialect) {
		t.Fatalf("got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		`name = "x"
extended_arg = "EXTENDED_ARG"
have_argument = 90
[ops]
A = { number = 1 }
B = { number = 1 }
EXTENDED_ARG = { number = 144 }
`,
		`name = "x"
extended_arg = "EXTENDED_ARG"
have_argument = 90
[ops]
A = { number = 1, category = "const" }
EXTENDED_ARG = { number = 144 }
`,
		`name = "x"
extended_arg = "EXTENDED_ARG"
have_argument = 90
[ops]
A = { number = 100, category = "bogus" }
EXTENDED_ARG = { number = 144 }
`,
		`name = "x"
extended_arg = "EXTENDED_ARG"
have_argument = 90
[ops]
A = { number = 300 }
`,
		`name = "x"
extended_arg = "EXTENDED_ARG"
have_argument = 90
[ops]
A = { number = 1 }
`,
	} {
		if _, err := Parse(src); err == nil {
			t.Fatalf("should error: %s", src)
		}
	}
}

func TestDecodeWordcode(t *testing.T) {
	d, err := Load("3.7")
	if err != nil {
		t.Fatal(err)
	}
	code := []byte{
		144, 1, 100, 2, // EXTENDED_ARG 1; LOAD_CONST 258
		1, 0, // POP_TOP
		110, 2, // JUMP_FORWARD +2
		9, 0,
		83, 0,
	}
	instr, err := d.Decode(code, 0)
	if err != nil {
		t.Fatal(err)
	}
	if instr.Op.Name != "LOAD_CONST" || instr.Arg != 258 || instr.Offset != 0 || instr.Next != 4 {
		t.Fatalf("got %+v", instr)
	}
	var names []string
	for instr, err := range d.Instructions(code) {
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, instr.Op.Name)
		if instr.Op.Name == "JUMP_FORWARD" && instr.Target() != 10 {
			t.Fatalf("got %d", instr.Target())
		}
	}
	if !slices.Equal(names, []string{"LOAD_CONST", "POP_TOP", "JUMP_FORWARD", "NOP", "RETURN_VALUE"}) {
		t.Fatalf("got %v", names)
	}

	if _, err := d.Decode([]byte{100}, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v", err)
	}
	if _, err := d.Decode([]byte{200, 0}, 0); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeVariable(t *testing.T) {
	d, err := Load("2.7")
	if err != nil {
		t.Fatal(err)
	}
	code := []byte{
		100, 1, 0, // LOAD_CONST 1
		145, 1, 0, 100, 2, 0, // EXTENDED_ARG; LOAD_CONST 0x10002
		71, // PRINT_ITEM
		72, // PRINT_NEWLINE
	}
	var got []Instr
	for instr, err := range d.Instructions(code) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, instr)
	}
	if len(got) != 4 {
		t.Fatalf("got %v", got)
	}
	if got[1].Arg != 0x10002 || got[1].Offset != 3 || got[1].Next != 9 {
		t.Fatalf("got %+v", got[1])
	}
	if got[2].Op.Name != "PRINT_ITEM" || got[2].Next != 10 {
		t.Fatalf("got %+v", got[2])
	}
	if _, err := d.Decode([]byte{100, 1}, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, name := range []string{"2.7", "3.7"} {
		d, err := Load(name)
		if err != nil {
			t.Fatal(err)
		}
		op, _ := d.Op("LOAD_CONST")
		for _, arg := range []int{0, 1, 255, 256, 0xffff, 0x10000, 0x123456, 0x1000000} {
			buf := d.Encode(nil, op, arg)
			if len(buf) != d.EncodedSize(op, arg) {
				t.Fatalf("%s %d: size %d, want %d", name, arg, len(buf), d.EncodedSize(op, arg))
			}
			instr, err := d.Decode(buf, 0)
			if err != nil {
				t.Fatal(err)
			}
			if instr.Arg != arg || instr.Next != len(buf) {
				t.Fatalf("%s: got %+v, want %d", name, instr, arg)
			}
		}
	}
}

func TestDisassemble(t *testing.T) {
	d, err := Load("3.7")
	if err != nil {
		t.Fatal(err)
	}
	table, err := pycode.EncodeLineTable(1, []pycode.LineStart{
		{Offset: 0, Line: 1},
		{Offset: 4, Line: 2},
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	code := &pycode.CodeUnit{
		Name:      "<module>",
		FirstLine: 1,
		Code: []byte{
			100, 0,
			90, 0,
			113, 0,
		},
		Consts:    []any{"hello"},
		Names:     []string{"x"},
		LineTable: table,
		Dialect:   "3.7",
	}
	var buf bytes.Buffer
	if err := d.Disassemble(&buf, code); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"LOAD_CONST", "('hello')", "STORE_NAME", "(x)", ">>", "   2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
