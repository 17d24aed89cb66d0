package vars

import "testing"

func TestFirstNonZero(t *testing.T) {
	if v := FirstNonZero(0, 0, 3, 4); v != 3 {
		t.Fatalf("got %d", v)
	}
	if v := FirstNonZero("", ""); v != "" {
		t.Fatalf("got %q", v)
	}
	if v := FirstNonZero[int](); v != 0 {
		t.Fatalf("got %d", v)
	}
}

func TestParseBool(t *testing.T) {
	for str, want := range map[string]bool{
		"true":  true,
		"Yes":   true,
		"on":    true,
		"1":     true,
		"false": false,
		"N":     false,
		"off":   false,
		"":      false,
	} {
		got, err := ParseBool(str)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("%q: got %v", str, got)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Fatal("expected error")
	}
}
