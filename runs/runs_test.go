package runs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/modes"
	"github.com/reusee/pyrun/pyconfigs"
	"github.com/reusee/pyrun/pyvm"
)

func printListing(text string) string {
	return `
code:
  - line: 1
  - LOAD_NAME: print
  - LOAD_CONST: "` + text + `"
  - CALL_FUNCTION: 1
  - POP_TOP
  - LOAD_CONST: null
  - RETURN_VALUE
`
}

const loopListing = `
dialect: "3.7"
code:
  - label: top
  - JUMP_ABSOLUTE: top
  - LOAD_CONST: null
  - RETURN_VALUE
`

const failingListing = `
code:
  - LOAD_NAME: undefined_name
  - RETURN_VALUE
`

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newScope(t *testing.T, defs ...any) dscope.Scope {
	scope := dscope.New(new(Module), modes.ForTest(t))
	if len(defs) > 0 {
		scope = scope.Fork(defs...)
	}
	return scope
}

func TestRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hello.yaml", printListing("hello"))
	newScope(t).Call(func(
		run Run,
	) {
		buf := new(bytes.Buffer)
		result, err := run(context.Background(), path, buf)
		if err != nil {
			t.Fatal(err)
		}
		if buf.String() != "hello\n" {
			t.Fatalf("got %q", buf.String())
		}
		if result.Value != pyvm.None {
			t.Fatalf("got %v", result.Value)
		}
		if result.Dialect != "3.7" {
			t.Fatalf("got %s", result.Dialect)
		}
		if _, ok := result.Globals.GetStr("__name__"); !ok {
			t.Fatal("no __name__")
		}
	})
}

func TestCompileAndRun(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "hello.yaml", printListing("compiled"))
	dst := filepath.Join(dir, "hello.pyvmc")
	newScope(t).Call(func(
		compile Compile,
		run Run,
	) {
		if err := compile(src, dst); err != nil {
			t.Fatal(err)
		}
		buf := new(bytes.Buffer)
		if _, err := run(context.Background(), dst, buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "compiled\n" {
			t.Fatalf("got %q", buf.String())
		}
	})
}

func TestUnknownFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hello.txt", "")
	newScope(t).Call(func(
		run Run,
	) {
		_, err := run(context.Background(), path, new(bytes.Buffer))
		if !errors.Is(err, ErrUnknownFormat) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestDefaultDialect(t *testing.T) {
	path := writeFile(t, t.TempDir(), "legacy.yaml", `
code:
  - LOAD_CONST: 7
  - LOAD_CONST: 2
  - BINARY_DIVIDE
  - RETURN_VALUE
`)
	newScope(t, dscope.Provide(pyconfigs.Dialect("2.7"))).Call(func(
		run Run,
	) {
		result, err := run(context.Background(), path, new(bytes.Buffer))
		if err != nil {
			t.Fatal(err)
		}
		if result.Dialect != "2.7" || result.Value != pyvm.Int(3) {
			t.Fatalf("got %s %v", result.Dialect, result.Value)
		}
	})
}

func TestUncaught(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fail.yaml", failingListing)
	newScope(t).Call(func(
		run Run,
	) {
		result, err := run(context.Background(), path, new(bytes.Buffer))
		var u *pyvm.UncaughtError
		if !errors.As(err, &u) {
			t.Fatalf("got %v", err)
		}
		if !strings.Contains(u.Format(), "NameError: name 'undefined_name' is not defined") {
			t.Fatalf("got %s", u.Format())
		}
		if result.Err != err {
			t.Fatal("result error not set")
		}
	})
}

func TestInstructionLimit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "loop.yaml", loopListing)
	newScope(t, dscope.Provide(pyconfigs.MaxInstructions(50))).Call(func(
		run Run,
	) {
		result, err := run(context.Background(), path, new(bytes.Buffer))
		if !errors.Is(err, ErrInstructionLimit) {
			t.Fatalf("got %v", err)
		}
		var u *pyvm.UncaughtError
		if !errors.As(err, &u) || u.Exception.Type != pyvm.KeyboardInterruptClass {
			t.Fatalf("got %v", err)
		}
		if result.Instructions <= 50 {
			t.Fatalf("got %d", result.Instructions)
		}
	})
}

func TestCanceled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "loop.yaml", loopListing)
	newScope(t).Call(func(
		run Run,
	) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := run(ctx, path, new(bytes.Buffer))
		var u *pyvm.UncaughtError
		if !errors.As(err, &u) || u.Exception.Type != pyvm.KeyboardInterruptClass {
			t.Fatalf("got %v", err)
		}
		if errors.Is(err, ErrInstructionLimit) {
			t.Fatal("not a budget stop")
		}
	})
}

func TestTraceDB(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.yaml", printListing("traced"))
	newScope(t, dscope.Provide(pyconfigs.TraceDB(filepath.Join(dir, "trace.db")))).Call(func(
		run Run,
		traceStore TraceStore,
	) {
		result, err := run(context.Background(), path, new(bytes.Buffer))
		if err != nil {
			t.Fatal(err)
		}
		store, err := traceStore()
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		events, err := store.Events(context.Background(), result.TraceSession)
		if err != nil {
			t.Fatal(err)
		}
		var ops []string
		for _, event := range events {
			if event.Kind == "instruction" {
				ops = append(ops, event.Opname)
			}
		}
		want := "LOAD_NAME LOAD_CONST CALL_FUNCTION POP_TOP LOAD_CONST RETURN_VALUE"
		if got := strings.Join(ops, " "); got != want {
			t.Fatalf("got %s", got)
		}
	})
}

func TestTraceFilter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.yaml", printListing("filtered"))
	newScope(t,
		dscope.Provide(pyconfigs.TraceDB(filepath.Join(dir, "trace.db"))),
		dscope.Provide(pyconfigs.TraceFilter(`opname == "CALL_FUNCTION"`)),
	).Call(func(
		run Run,
		traceStore TraceStore,
	) {
		result, err := run(context.Background(), path, new(bytes.Buffer))
		if err != nil {
			t.Fatal(err)
		}
		store, err := traceStore()
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		events, err := store.Events(context.Background(), result.TraceSession)
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 1 || events[0].Opname != "CALL_FUNCTION" || events[0].Operand != "1" {
			t.Fatalf("got %+v", events)
		}
	})
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.yaml", printListing("a")),
		writeFile(t, dir, "fail.yaml", failingListing),
		writeFile(t, dir, "b.yaml", printListing("b")),
		writeFile(t, dir, "c.yaml", printListing("c")),
	}
	newScope(t, dscope.Provide(pyconfigs.Jobs(2))).Call(func(
		runAll RunAll,
	) {
		buf := new(bytes.Buffer)
		results, err := runAll(context.Background(), paths, buf)
		if err == nil {
			t.Fatal("expected error")
		}
		if buf.String() != "a\nb\nc\n" {
			t.Fatalf("got %q", buf.String())
		}
		if len(results) != 4 {
			t.Fatalf("got %d", len(results))
		}
		for i, result := range results {
			if result.Path != paths[i] {
				t.Fatalf("got %s", result.Path)
			}
			if (result.Err != nil) != (i == 1) {
				t.Fatalf("%d: got %v", i, result.Err)
			}
		}
	})
}
