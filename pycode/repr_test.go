package pycode

import "testing"

func TestRepr(t *testing.T) {
	for _, c := range []struct {
		value any
		want  string
	}{
		{nil, "None"},
		{true, "True"},
		{int64(-5), "-5"},
		{1.0, "1.0"},
		{0.1, "0.1"},
		{1e16, "1e+16"},
		{1.5e-5, "1.5e-05"},
		{123456.5, "123456.5"},
		{complex(0, 2), "2j"},
		{complex(1, -2), "(1-2j)"},
		{"it's", `"it's"`},
		{"a\nb", `'a\nb'`},
		{Bytes("x"), "b'x'"},
		{Tuple{int64(1)}, "(1,)"},
		{Tuple{int64(1), "a"}, "(1, 'a')"},
	} {
		if got := Repr(c.value); got != c.want {
			t.Fatalf("%#v: got %s, want %s", c.value, got, c.want)
		}
	}
}
