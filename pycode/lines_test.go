package pycode

import (
	"slices"
	"testing"
)

func TestLineTable(t *testing.T) {
	starts := []LineStart{
		{Offset: 0, Line: 10},
		{Offset: 6, Line: 11},
		{Offset: 20, Line: 9},
		{Offset: 300, Line: 400},
	}
	table, err := EncodeLineTable(10, starts, true)
	if err != nil {
		t.Fatal(err)
	}
	code := &CodeUnit{
		FirstLine: 10,
		LineTable: table,
		Dialect:   "3.7",
	}

	for _, c := range []struct {
		offset int
		line   int
	}{
		{0, 10},
		{4, 10},
		{6, 11},
		{18, 11},
		{20, 9},
		{299, 9},
		{300, 400},
		{1000, 400},
	} {
		if got := code.LineAt(c.offset); got != c.line {
			t.Fatalf("offset %d: got line %d, want %d", c.offset, got, c.line)
		}
	}

	got := slices.Collect(code.Lines())
	if !slices.Equal(got, starts) {
		t.Fatalf("got %v", got)
	}
}

func TestLineTableUnsigned(t *testing.T) {
	starts := []LineStart{
		{Offset: 0, Line: 1},
		{Offset: 3, Line: 2},
		{Offset: 9, Line: 300},
	}
	table, err := EncodeLineTable(1, starts, false)
	if err != nil {
		t.Fatal(err)
	}
	code := &CodeUnit{
		FirstLine: 1,
		LineTable: table,
		Dialect:   "2.7",
	}
	if line := code.LineAt(10); line != 300 {
		t.Fatalf("got %d", line)
	}
	if line := code.LineAt(4); line != 2 {
		t.Fatalf("got %d", line)
	}
}
