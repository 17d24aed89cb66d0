package configs

import (
	"testing"
)

func TestFirst(t *testing.T) {
	loader := NewLoader([]string{
		writeCue(t, "test.cue", `str: "bar"`),
	}, testSchema)

	str := First[string](loader, "str")
	if str != "bar" {
		t.Fatalf("got %v", str)
	}

	n := First[[]int](loader, "list")
	if n != nil {
		t.Fatalf("got %v", n)
	}

}
