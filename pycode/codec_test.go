package pycode

import (
	"math/big"
	"reflect"
	"strings"
	"testing"
)

func TestCodecNested(t *testing.T) {
	inner := &CodeUnit{
		Name:     "inner",
		ArgCount: 1,
		VarNames: []string{"x"},
		FreeVars: []string{"y"},
		Flags:    FlagNewLocals | FlagNested | FlagGenerator,
		Code:     []byte{124, 0, 86, 0, 83, 0},
		Consts:   []any{nil},
		Dialect:  "3.7",
	}
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	outer := &CodeUnit{
		Name:      "<module>",
		Filename:  "test.py",
		FirstLine: 1,
		Code:      []byte{100, 0, 83, 0},
		Consts: []any{
			nil, true, int64(-3), big1, 1.5, complex(1, 2), "s",
			Bytes("b"), Ellipsis{}, Tuple{int64(1), Tuple{"a"}}, FrozenSet{"x"},
			inner,
		},
		Names:     []string{"print"},
		LineTable: []byte{2, 1},
		Dialect:   "3.7",
	}
	if err := outer.Validate(); err != nil {
		t.Fatal(err)
	}

	data, err := Marshal(outer)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.Consts[3].(*big.Int).Cmp(big1) != 0 {
		t.Fatalf("got %v", got.Consts[3])
	}
	got.Consts[3] = big1
	gotInner := got.Consts[11].(*CodeUnit)
	if !gotInner.IsGenerator() || gotInner.FreeVars[0] != "y" {
		t.Fatalf("got %+v", gotInner)
	}
	got.Consts[11] = inner
	if !reflect.DeepEqual(got.Consts, outer.Consts) {
		t.Fatalf("got %#v", got.Consts)
	}
	if got.Name != outer.Name || got.Filename != outer.Filename || string(got.LineTable) != string(outer.LineTable) {
		t.Fatalf("got %+v", got)
	}
}

func TestCodecBadMagic(t *testing.T) {
	_, err := Decode(strings.NewReader("NOTPYC"))
	if err == nil {
		t.Fatal("should error")
	}
}

func TestValidate(t *testing.T) {
	code := &CodeUnit{
		Name:     "f",
		ArgCount: 2,
		VarNames: []string{"a"},
	}
	if err := code.Validate(); err == nil {
		t.Fatal("should error")
	}
	code = &CodeUnit{
		Name:   "f",
		Consts: []any{struct{}{}},
	}
	if err := code.Validate(); err == nil {
		t.Fatal("should error")
	}
}
