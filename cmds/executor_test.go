package cmds

import (
	"errors"
	"strings"
	"testing"
)

func TestExecutor(t *testing.T) {
	executor := NewExecutor()

	var a int
	executor.Define("+a", Func(func() {
		a = 42
	}))
	executor.Define("a", Func(func(i int) {
		a = i
	}))

	if err := executor.Execute([]string{"+a"}); err != nil {
		t.Fatal(err)
	}
	if a != 42 {
		t.Fatalf("got %d", a)
	}

	if err := executor.Execute([]string{"a", "1"}); err != nil {
		t.Fatal(err)
	}
	if a != 1 {
		t.Fatalf("got %d", a)
	}

	if err := executor.Execute([]string{"a=7"}); err != nil {
		t.Fatal(err)
	}
	if a != 7 {
		t.Fatalf("got %d", a)
	}

	err := executor.Execute([]string{"foo"})
	if !errors.Is(err, ErrUnknownCommand) || !strings.Contains(err.Error(), "foo") {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{"a"})
	if !errors.Is(err, ErrMissingArg) {
		t.Fatalf("got %v", err)
	}

	err = executor.Execute([]string{"a", "x"})
	if err == nil || !strings.Contains(err.Error(), "convert x to int") {
		t.Fatalf("got %v", err)
	}
}

func TestCommandError(t *testing.T) {
	executor := NewExecutor()
	bad := errors.New("bad")
	ran := false
	executor.Define("fail", Func(func() error {
		return bad
	}))
	executor.Define("ok", Func(func() error {
		ran = true
		return nil
	}))
	if err := executor.Execute([]string{"ok"}); err != nil || !ran {
		t.Fatalf("got %v", err)
	}
	err := executor.Execute([]string{"fail", "ok"})
	if !errors.Is(err, bad) {
		t.Fatalf("got %v", err)
	}
}

func TestBoolArgument(t *testing.T) {
	executor := NewExecutor()
	var v bool
	executor.Define("set", Func(func(b bool) {
		v = b
	}))
	if err := executor.Execute([]string{"set", "on"}); err != nil {
		t.Fatal(err)
	}
	if !v {
		t.Fatal("not set")
	}
	if err := executor.Execute([]string{"set", "maybe"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSubCommands(t *testing.T) {
	executor := NewExecutor()
	var bar, baz int
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
			bar = 1
		}),
		"baz": Func(func(i int) {
			baz = i
		}),
	}))

	if err := executor.Execute([]string{
		"foo",
		"bar",
		"baz", "42",
	}); err != nil {
		t.Fatal(err)
	}
	if bar != 1 || baz != 42 {
		t.Fatalf("got %d %d", bar, baz)
	}

	// sub commands are only visible after their parent
	if err := executor.Execute([]string{"bar"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("got %v", err)
	}
}

func TestDuplicatedSubCommand(t *testing.T) {
	executor := NewExecutor()
	executor.Define("foo", Sub(map[string]*Command{
		"a": nil,
	}))
	executor.Define("bar", Sub(map[string]*Command{
		"a": nil,
	}))
	err := executor.Execute([]string{"foo", "bar"})
	if err == nil || !strings.Contains(err.Error(), "duplicated sub command: bar a") {
		t.Fatalf("got %v", err)
	}
}

func TestOptionalArgument(t *testing.T) {
	executor := NewExecutor()
	var n int
	var s string
	executor.Define("foo", Func(func(arg *int, arg2 *string) {
		n = *arg
		s = *arg2
	}))

	for _, c := range []struct {
		args []string
		n    int
		s    string
	}{
		{[]string{"foo", "42", "foo"}, 42, "foo"},
		{[]string{"foo", "99"}, 99, ""},
		{[]string{"foo"}, 0, ""},
	} {
		if err := executor.Execute(c.args); err != nil {
			t.Fatal(err)
		}
		if n != c.n || s != c.s {
			t.Fatalf("%v: got %d %q", c.args, n, s)
		}
	}
}

func TestDuplicatedCommand(t *testing.T) {
	executor := NewExecutor()
	defer func() {
		if p := recover(); p == nil {
			t.Fatal("expected panic")
		}
	}()
	executor.Define("help", Func(func() {}))
}
