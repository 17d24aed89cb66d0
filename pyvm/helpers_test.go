package pyvm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

func asm(t *testing.T, dialect string, name string) *pyasm.Assembler {
	t.Helper()
	d, err := pyops.Load(dialect)
	if err != nil {
		t.Fatal(err)
	}
	return pyasm.New(d, name)
}

func build(t *testing.T, a *pyasm.Assembler) *pycode.CodeUnit {
	t.Helper()
	code, err := a.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	return code
}

type result struct {
	engine  *Engine
	globals *Dict
	value   Value
	stdout  string
	err     error
}

func execute(t *testing.T, code *pycode.CodeUnit, setup ...func(e *Engine, globals *Dict)) result {
	t.Helper()
	return executeWith(t, Options{}, code, setup...)
}

func executeWith(t *testing.T, opts Options, code *pycode.CodeUnit, setup ...func(e *Engine, globals *Dict)) result {
	t.Helper()
	buf := new(bytes.Buffer)
	opts.Stdout = buf
	e := NewEngine(opts)
	globals := e.NewGlobals("__main__")
	for _, fn := range setup {
		fn(e, globals)
	}
	v, err := e.RunCode(code, globals)
	return result{
		engine:  e,
		globals: globals,
		value:   v,
		stdout:  buf.String(),
		err:     err,
	}
}

// mustRun executes code and fails on any error.
func mustRun(t *testing.T, code *pycode.CodeUnit, setup ...func(e *Engine, globals *Dict)) result {
	t.Helper()
	r := execute(t, code, setup...)
	if r.err != nil {
		var u *UncaughtError
		if errors.As(r.err, &u) {
			t.Fatal(u.Format())
		}
		t.Fatal(r.err)
	}
	return r
}

func (r result) global(t *testing.T, name string) Value {
	t.Helper()
	v, ok := r.globals.GetStr(name)
	if !ok {
		t.Fatalf("no global %s", name)
	}
	return v
}

// uncaught asserts that the run failed with an exception of class cls.
func (r result) uncaught(t *testing.T, cls *Class) *UncaughtError {
	t.Helper()
	var u *UncaughtError
	if !errors.As(r.err, &u) {
		t.Fatalf("expected uncaught %s, got %v", cls.Name, r.err)
	}
	if !u.Exception.Type.IsSubclass(cls) {
		t.Fatalf("expected %s, got %s", cls.Name, u.Exception)
	}
	return u
}

// makeFunction3 emits the 3.6+ sequence that binds a function to name.
func makeFunction3(a *pyasm.Assembler, code *pycode.CodeUnit, name string, flags int) *pyasm.Assembler {
	return a.Op("LOAD_CONST", code).
		Op("LOAD_CONST", code.Name).
		Op("MAKE_FUNCTION", flags).
		Op("STORE_NAME", name)
}
