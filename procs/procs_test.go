package procs

import (
	"errors"
	"testing"
)

func TestProcsSequence(t *testing.T) {
	var steps []string
	step := func(name string) Proc[*[]string] {
		return Func[*[]string](func(log *[]string) (Proc[*[]string], error) {
			*log = append(*log, name)
			return nil, nil
		})
	}
	// a proc returning itself runs again
	n := 0
	var repeat Func[*[]string]
	repeat = func(log *[]string) (Proc[*[]string], error) {
		n++
		*log = append(*log, "repeat")
		if n < 2 {
			return repeat, nil
		}
		return nil, nil
	}
	err := Drive(&steps, Proc[*[]string](Procs[*[]string]{
		step("a"),
		repeat,
		step("b"),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 4 || steps[0] != "a" || steps[1] != "repeat" || steps[2] != "repeat" || steps[3] != "b" {
		t.Fatalf("got %v", steps)
	}
}

func TestProcsError(t *testing.T) {
	bad := errors.New("bad")
	ran := false
	err := Drive(0, Proc[int](Procs[int]{
		Func[int](func(int) (Proc[int], error) {
			return nil, bad
		}),
		Func[int](func(int) (Proc[int], error) {
			ran = true
			return nil, nil
		}),
	}))
	if !errors.Is(err, bad) {
		t.Fatalf("got %v", err)
	}
	if ran {
		t.Fatal("ran after error")
	}
}

func TestProcsReuse(t *testing.T) {
	n := 0
	var twice Func[*int]
	twice = func(count *int) (Proc[*int], error) {
		*count++
		n++
		if n%2 == 1 {
			return twice, nil
		}
		return nil, nil
	}
	seq := Procs[*int]{nil, twice}
	for range 2 {
		count := 0
		if err := Drive(&count, Proc[*int](seq)); err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Fatalf("got %d", count)
		}
	}
}
