package pyvm

import (
	"testing"

	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pycode"
)

func TestLegacyProgram(t *testing.T) {
	add := build(t, asm(t, "2.7", "add").
		Params(pyasm.Params{Args: []string{"a", "b"}}).
		Op("LOAD_FAST", "a").
		Op("LOAD_FAST", "b").
		Op("BINARY_ADD").
		Op("RETURN_VALUE"))
	body := build(t, asm(t, "2.7", "C").
		Flags(pycode.FlagNewLocals).
		Op("LOAD_NAME", "__name__").
		Op("STORE_NAME", "__module__").
		Op("LOAD_LOCALS").
		Op("RETURN_VALUE"))
	code := build(t, asm(t, "2.7", "<module>").
		// print "a", 1
		Op("LOAD_CONST", "a").
		Op("PRINT_ITEM").
		Op("LOAD_CONST", 1).
		Op("PRINT_ITEM").
		Op("PRINT_NEWLINE").
		// x = 7 / 2
		Op("LOAD_CONST", 7).
		Op("LOAD_CONST", 2).
		Op("BINARY_DIVIDE").
		Op("STORE_NAME", "x").
		// def add(a, b): return a + b
		Op("LOAD_CONST", add).
		Op("MAKE_FUNCTION", 0).
		Op("STORE_NAME", "add").
		Op("LOAD_NAME", "add").
		Op("LOAD_CONST", 2).
		Op("LOAD_CONST", 3).
		Op("CALL_FUNCTION", 2).
		Op("STORE_NAME", "s").
		// keyword argument in the legacy packing: add(1, b=4)
		Op("LOAD_NAME", "add").
		Op("LOAD_CONST", 1).
		Op("LOAD_CONST", "b").
		Op("LOAD_CONST", 4).
		Op("CALL_FUNCTION", 1|1<<8).
		Op("STORE_NAME", "k").
		// class C: pass
		Op("LOAD_CONST", "C").
		Op("LOAD_CONST", pycode.Tuple{}).
		Op("LOAD_CONST", body).
		Op("MAKE_FUNCTION", 0).
		Op("CALL_FUNCTION", 0).
		Op("BUILD_CLASS").
		Op("STORE_NAME", "C").
		// print range(3)
		Op("LOAD_NAME", "range").
		Op("LOAD_CONST", 3).
		Op("CALL_FUNCTION", 1).
		Op("PRINT_ITEM").
		Op("PRINT_NEWLINE").
		// try: raise ValueError, "v"
		// except ValueError: caught = 1
		Op("SETUP_EXCEPT", "handler").
		Op("LOAD_NAME", "ValueError").
		Op("LOAD_CONST", "v").
		Op("RAISE_VARARGS", 2).
		Op("POP_BLOCK").
		Op("JUMP_FORWARD", "end").
		Label("handler").
		Op("DUP_TOP").
		Op("LOAD_NAME", "ValueError").
		Op("COMPARE_OP", "exception match").
		Op("POP_JUMP_IF_FALSE", "nomatch").
		Op("POP_TOP").
		Op("POP_TOP").
		Op("POP_TOP").
		Op("LOAD_CONST", 1).
		Op("STORE_NAME", "caught").
		Op("JUMP_FORWARD", "end").
		Label("nomatch").
		Op("END_FINALLY").
		Label("end").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))

	r := mustRun(t, code)
	if r.stdout != "a 1\n[0, 1, 2]\n" {
		t.Fatalf("got %q", r.stdout)
	}
	if v := r.global(t, "x"); v != Int(3) {
		t.Fatalf("got %v", v)
	}
	if v := r.global(t, "s"); v != Int(5) {
		t.Fatalf("got %v", v)
	}
	if v := r.global(t, "k"); v != Int(5) {
		t.Fatalf("got %v", v)
	}
	if v := r.global(t, "caught"); v != Int(1) {
		t.Fatalf("got %v", v)
	}
	cls, ok := r.global(t, "C").(*Class)
	if !ok || cls.Name != "C" {
		t.Fatalf("got %v", r.global(t, "C"))
	}
}

func TestLegacySoftspace(t *testing.T) {
	// print "x\n",; print "y"
	code := build(t, asm(t, "2.7", "<module>").
		Op("LOAD_CONST", "x\n").
		Op("PRINT_ITEM").
		Op("LOAD_CONST", "y").
		Op("PRINT_ITEM").
		Op("PRINT_NEWLINE").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if r.stdout != "x\ny\n" {
		t.Fatalf("got %q", r.stdout)
	}
}

func TestFormattedString(t *testing.T) {
	// f"{x}-{y!r}"
	code := build(t, asm(t, "3.6", "<module>").
		Op("LOAD_CONST", 1).
		Op("STORE_NAME", "x").
		Op("LOAD_CONST", "s").
		Op("STORE_NAME", "y").
		Op("LOAD_NAME", "x").
		Op("FORMAT_VALUE", 0).
		Op("LOAD_CONST", "-").
		Op("LOAD_NAME", "y").
		Op("FORMAT_VALUE", 2).
		Op("BUILD_STRING", 3).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if r.value != Str("1-'s'") {
		t.Fatalf("got %v", r.value)
	}
}

func TestFinally38Return(t *testing.T) {
	// def f():
	//     try: return "body"
	//     finally: mark()
	f := build(t, asm(t, "3.8", "f").
		Params(pyasm.Params{}).
		Op("SETUP_FINALLY", "fin").
		Op("LOAD_CONST", "body").
		Op("POP_BLOCK").
		Op("CALL_FINALLY", "fin").
		Op("RETURN_VALUE").
		Op("POP_BLOCK").
		Op("BEGIN_FINALLY").
		Label("fin").
		Op("LOAD_GLOBAL", "mark").
		Op("CALL_FUNCTION", 0).
		Op("POP_TOP").
		Op("END_FINALLY").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	code := build(t, asm(t, "3.8", "<module>").
		Op("LOAD_CONST", f).
		Op("LOAD_CONST", "f").
		Op("MAKE_FUNCTION", 0).
		Op("STORE_NAME", "f").
		Op("LOAD_NAME", "f").
		Op("CALL_FUNCTION", 0).
		Op("RETURN_VALUE"))
	marked := 0
	r := execute(t, code, func(e *Engine, globals *Dict) {
		globals.SetStr("mark", NewBuiltin("mark", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
			marked++
			return None, nil
		}))
	})
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.value != Str("body") {
		t.Fatalf("got %v", r.value)
	}
	if marked != 1 {
		t.Fatalf("marked %d", marked)
	}
}

func TestFinally38Exception(t *testing.T) {
	// try: 1/0
	// finally: mark()
	code := build(t, asm(t, "3.8", "<module>").
		Op("SETUP_FINALLY", "fin").
		Op("LOAD_CONST", 1).
		Op("LOAD_CONST", 0).
		Op("BINARY_TRUE_DIVIDE").
		Op("POP_TOP").
		Op("POP_BLOCK").
		Op("BEGIN_FINALLY").
		Label("fin").
		Op("LOAD_NAME", "mark").
		Op("CALL_FUNCTION", 0).
		Op("POP_TOP").
		Op("END_FINALLY").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	marked := 0
	r := execute(t, code, func(e *Engine, globals *Dict) {
		globals.SetStr("mark", NewBuiltin("mark", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
			marked++
			return None, nil
		}))
	})
	r.uncaught(t, ZeroDivisionErrorClass)
	if marked != 1 {
		t.Fatalf("marked %d", marked)
	}
}

func TestWithStatement(t *testing.T) {
	// class Ctx:
	//     def __enter__(self): log.append("enter"); return 1
	//     def __exit__(self, *exc): log.append(exc[0]); return True
	// with Ctx() as v: raise KeyError
	enter := build(t, asm(t, "3.7", "__enter__").
		Params(pyasm.Params{Args: []string{"self"}}).
		Op("LOAD_GLOBAL", "log").
		Op("LOAD_METHOD", "append").
		Op("LOAD_CONST", "enter").
		Op("CALL_METHOD", 1).
		Op("POP_TOP").
		Op("LOAD_CONST", 1).
		Op("RETURN_VALUE"))
	exit := build(t, asm(t, "3.7", "__exit__").
		Params(pyasm.Params{Args: []string{"self"}, Varargs: "exc"}).
		Op("LOAD_GLOBAL", "log").
		Op("LOAD_METHOD", "append").
		Op("LOAD_FAST", "exc").
		Op("LOAD_CONST", 0).
		Op("BINARY_SUBSCR").
		Op("CALL_METHOD", 1).
		Op("POP_TOP").
		Op("LOAD_CONST", true).
		Op("RETURN_VALUE"))
	body := classBody(t, "Ctx")
	makeFunction3(body, enter, "__enter__", 0)
	makeFunction3(body, exit, "__exit__", 0)
	ctx := build(t, body.Op("LOAD_CONST", nil).Op("RETURN_VALUE"))

	a := asm(t, "3.7", "<module>").
		Op("BUILD_LIST", 0).
		Op("STORE_NAME", "log")
	defineClass(a, ctx, "Ctx")
	code := build(t, a.
		Op("LOAD_NAME", "Ctx").
		Op("CALL_FUNCTION", 0).
		Op("SETUP_WITH", "cleanup").
		Op("STORE_NAME", "v").
		Op("LOAD_NAME", "KeyError").
		Op("RAISE_VARARGS", 1).
		Op("POP_BLOCK").
		Op("LOAD_CONST", nil).
		Label("cleanup").
		Op("WITH_CLEANUP_START").
		Op("WITH_CLEANUP_FINISH").
		Op("END_FINALLY").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if v := r.global(t, "v"); v != Int(1) {
		t.Fatalf("got %v", v)
	}
	log := r.global(t, "log").(*List)
	if len(log.Items) != 2 || log.Items[0] != Str("enter") || log.Items[1] != KeyErrorClass {
		t.Fatalf("got %v", log.Items)
	}
}

func TestWithNormalExit(t *testing.T) {
	// with Ctx(): pass, where __exit__ sees (None, None, None)
	exit := build(t, asm(t, "3.7", "__exit__").
		Params(pyasm.Params{Args: []string{"self", "typ", "val", "tb"}}).
		Op("LOAD_FAST", "typ").
		Op("STORE_GLOBAL", "seen").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	enter := build(t, asm(t, "3.7", "__enter__").
		Params(pyasm.Params{Args: []string{"self"}}).
		Op("LOAD_FAST", "self").
		Op("RETURN_VALUE"))
	body := classBody(t, "Ctx")
	makeFunction3(body, enter, "__enter__", 0)
	makeFunction3(body, exit, "__exit__", 0)
	ctx := build(t, body.Op("LOAD_CONST", nil).Op("RETURN_VALUE"))

	a := asm(t, "3.7", "<module>")
	defineClass(a, ctx, "Ctx")
	code := build(t, a.
		Op("LOAD_NAME", "Ctx").
		Op("CALL_FUNCTION", 0).
		Op("SETUP_WITH", "cleanup").
		Op("POP_TOP").
		Op("POP_BLOCK").
		Op("LOAD_CONST", nil).
		Label("cleanup").
		Op("WITH_CLEANUP_START").
		Op("WITH_CLEANUP_FINISH").
		Op("END_FINALLY").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if v := r.global(t, "seen"); v != None {
		t.Fatalf("got %v", v)
	}
}
