package pyvm

import (
	"errors"
	"testing"

	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pycode"
)

// generatorGlobal runs a module that binds name to gen() and returns the generator.
func generatorGlobal(t *testing.T, a *pyasm.Assembler, fn string, name string) (result, *Generator) {
	t.Helper()
	code := build(t, a.
		Op("LOAD_NAME", fn).
		Op("CALL_FUNCTION", 0).
		Op("STORE_NAME", name).
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	g, ok := r.global(t, name).(*Generator)
	if !ok {
		t.Fatalf("got %v", r.global(t, name))
	}
	return r, g
}

func TestYieldFromDelegation(t *testing.T) {
	// def inner():
	//     a = yield 1
	//     b = yield 2
	//     return (a, b)
	// def outer():
	//     return (yield from inner())
	inner := build(t, asm(t, "3.7", "inner").
		Params(pyasm.Params{}).
		Flags(pycode.FlagGenerator).
		Op("LOAD_CONST", 1).
		Op("YIELD_VALUE").
		Op("STORE_FAST", "a").
		Op("LOAD_CONST", 2).
		Op("YIELD_VALUE").
		Op("STORE_FAST", "b").
		Op("LOAD_FAST", "a").
		Op("LOAD_FAST", "b").
		Op("BUILD_TUPLE", 2).
		Op("RETURN_VALUE"))
	outer := build(t, asm(t, "3.7", "outer").
		Params(pyasm.Params{}).
		Flags(pycode.FlagGenerator).
		Op("LOAD_GLOBAL", "inner").
		Op("CALL_FUNCTION", 0).
		Op("GET_YIELD_FROM_ITER").
		Op("LOAD_CONST", nil).
		Op("YIELD_FROM").
		Op("RETURN_VALUE"))
	a := asm(t, "3.7", "<module>")
	makeFunction3(a, inner, "inner", 0)
	makeFunction3(a, outer, "outer", 0)
	r, g := generatorGlobal(t, a, "outer", "g")

	v, err := r.engine.Send(g, None)
	if err != nil || v != Int(1) {
		t.Fatalf("got %v %v", v, err)
	}
	if _, ok := g.delegate.(*Generator); !ok {
		t.Fatalf("delegate %v", g.delegate)
	}
	v, err = r.engine.Send(g, Str("x"))
	if err != nil || v != Int(2) {
		t.Fatalf("got %v %v", v, err)
	}
	_, err = r.engine.Send(g, Str("y"))
	ret, ok := StopIterationValue(err)
	if !ok {
		t.Fatalf("got %v", err)
	}
	expectValue(t, r.engine, ret, "('x', 'y')")
	if g.State != GeneratorFinished || g.delegate != nil {
		t.Fatalf("state %s delegate %v", g.State, g.delegate)
	}
}

func TestGeneratorThrow(t *testing.T) {
	// def gen():
	//     try:
	//         yield 1
	//     except ValueError:
	//         yield "caught"
	gen := build(t, asm(t, "3.7", "gen").
		Params(pyasm.Params{}).
		Flags(pycode.FlagGenerator).
		Op("SETUP_EXCEPT", "handler").
		Op("LOAD_CONST", 1).
		Op("YIELD_VALUE").
		Op("POP_TOP").
		Op("POP_BLOCK").
		Op("JUMP_FORWARD", "end").
		Label("handler").
		Op("DUP_TOP").
		Op("LOAD_GLOBAL", "ValueError").
		Op("COMPARE_OP", "exception match").
		Op("POP_JUMP_IF_FALSE", "nomatch").
		Op("POP_TOP").
		Op("POP_TOP").
		Op("POP_TOP").
		Op("LOAD_CONST", "caught").
		Op("YIELD_VALUE").
		Op("POP_TOP").
		Op("POP_EXCEPT").
		Op("JUMP_FORWARD", "end").
		Label("nomatch").
		Op("END_FINALLY").
		Label("end").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))

	r, g := generatorGlobal(t, makeFunction3(asm(t, "3.7", "<module>"), gen, "gen", 0), "gen", "g")
	if _, err := r.engine.Send(g, None); err != nil {
		t.Fatal(err)
	}
	v, err := r.engine.Throw(g, ValueErrorClass, Str("boom"))
	if err != nil || v != Str("caught") {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := r.engine.Send(g, None); !isStop(err) {
		t.Fatalf("got %v", err)
	}

	// an exception the generator does not handle finishes it
	r, g = generatorGlobal(t, makeFunction3(asm(t, "3.7", "<module>"), gen, "gen", 0), "gen", "g")
	if _, err := r.engine.Send(g, None); err != nil {
		t.Fatal(err)
	}
	_, err = r.engine.Throw(g, KeyErrorClass, Str("k"))
	var pe *PyError
	if !errors.As(err, &pe) || !pe.Matches(KeyErrorClass) {
		t.Fatalf("got %v", err)
	}
	if g.State != GeneratorFinished {
		t.Fatalf("state %s", g.State)
	}
}

func isStop(err error) bool {
	_, ok := StopIterationValue(err)
	return ok
}

func TestGeneratorCloseRunsFinally(t *testing.T) {
	// def gen():
	//     try:
	//         yield 1
	//     finally:
	//         global finran
	//         finran = True
	gen := build(t, asm(t, "3.7", "gen").
		Params(pyasm.Params{}).
		Flags(pycode.FlagGenerator).
		Op("SETUP_FINALLY", "fin").
		Op("LOAD_CONST", 1).
		Op("YIELD_VALUE").
		Op("POP_TOP").
		Op("POP_BLOCK").
		Op("LOAD_CONST", nil).
		Label("fin").
		Op("LOAD_CONST", true).
		Op("STORE_GLOBAL", "finran").
		Op("END_FINALLY").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))

	r, g := generatorGlobal(t, makeFunction3(asm(t, "3.7", "<module>"), gen, "gen", 0), "gen", "g")
	if _, err := r.engine.Send(g, None); err != nil {
		t.Fatal(err)
	}
	if err := r.engine.Close(g); err != nil {
		t.Fatal(err)
	}
	if v, ok := r.globals.GetStr("finran"); !ok || v != True {
		t.Fatalf("got %v", v)
	}
	if g.State != GeneratorFinished {
		t.Fatalf("state %s", g.State)
	}
	// closing again is a no-op
	if err := r.engine.Close(g); err != nil {
		t.Fatal(err)
	}

	// a generator that was never started does not run its finally
	r, g = generatorGlobal(t, makeFunction3(asm(t, "3.7", "<module>"), gen, "gen", 0), "gen", "g")
	if err := r.engine.Close(g); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.globals.GetStr("finran"); ok {
		t.Fatal("finally ran")
	}
}

func TestSendNilStartsGenerator(t *testing.T) {
	gen := build(t, asm(t, "3.7", "gen").
		Params(pyasm.Params{}).
		Flags(pycode.FlagGenerator).
		Op("LOAD_CONST", 7).
		Op("YIELD_VALUE").
		Op("RETURN_VALUE"))
	r, g := generatorGlobal(t, makeFunction3(asm(t, "3.7", "<module>"), gen, "gen", 0), "gen", "g")
	v, err := r.engine.Send(g, nil)
	if err != nil || v != Int(7) {
		t.Fatalf("got %v %v", v, err)
	}
	_, err = r.engine.Send(g, nil)
	if ret, ok := StopIterationValue(err); !ok || ret != None {
		t.Fatalf("got %v", err)
	}
}
