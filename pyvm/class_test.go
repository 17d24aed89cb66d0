package pyvm

import (
	"strings"
	"testing"

	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pycode"
)

// classBody assembles the prologue every class body starts with.
func classBody(t *testing.T, name string) *pyasm.Assembler {
	return asm(t, "3.7", name).
		Op("LOAD_NAME", "__name__").
		Op("STORE_NAME", "__module__").
		Op("LOAD_CONST", name).
		Op("STORE_NAME", "__qualname__")
}

// defineClass emits class name(*bases) with the given body.
func defineClass(a *pyasm.Assembler, body *pycode.CodeUnit, name string, bases ...string) *pyasm.Assembler {
	a.Op("LOAD_BUILD_CLASS").
		Op("LOAD_CONST", body).
		Op("LOAD_CONST", name).
		Op("MAKE_FUNCTION", 0).
		Op("LOAD_CONST", name)
	for _, base := range bases {
		a.Op("LOAD_NAME", base)
	}
	return a.Op("CALL_FUNCTION", 2+len(bases)).
		Op("STORE_NAME", name)
}

// pointClass is
//
//	class Point:
//	    def __init__(self, x): self.x = x
//	    def get(self): return self.x
func pointClass(t *testing.T) *pycode.CodeUnit {
	init := build(t, asm(t, "3.7", "__init__").
		Params(pyasm.Params{Args: []string{"self", "x"}}).
		Op("LOAD_FAST", "x").
		Op("LOAD_FAST", "self").
		Op("STORE_ATTR", "x").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	get := build(t, asm(t, "3.7", "get").
		Params(pyasm.Params{Args: []string{"self"}}).
		Op("LOAD_FAST", "self").
		Op("LOAD_ATTR", "x").
		Op("RETURN_VALUE"))
	body := classBody(t, "Point")
	makeFunction3(body, init, "__init__", 0)
	makeFunction3(body, get, "get", 0)
	return build(t, body.
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
}

func TestClassInstance(t *testing.T) {
	a := asm(t, "3.7", "<module>")
	defineClass(a, pointClass(t), "Point")
	code := build(t, a.
		Op("LOAD_NAME", "Point").
		Op("LOAD_CONST", 5).
		Op("CALL_FUNCTION", 1).
		Op("STORE_NAME", "p").
		Op("LOAD_NAME", "p").
		Op("LOAD_METHOD", "get").
		Op("CALL_METHOD", 0).
		Op("STORE_NAME", "r").
		Op("LOAD_NAME", "isinstance").
		Op("LOAD_NAME", "p").
		Op("LOAD_NAME", "Point").
		Op("CALL_FUNCTION", 2).
		Op("STORE_NAME", "is").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if v := r.global(t, "r"); v != Int(5) {
		t.Fatalf("got %v", v)
	}
	if v := r.global(t, "is"); v != True {
		t.Fatalf("got %v", v)
	}
	cls := r.global(t, "Point").(*Class)
	if cls.moduleName() != "__main__" {
		t.Fatalf("got %s", cls.moduleName())
	}
	p := r.global(t, "p").(*Instance)
	if p.Class != cls {
		t.Fatalf("got %v", p.Class)
	}
}

func TestClassInitArity(t *testing.T) {
	a := asm(t, "3.7", "<module>")
	defineClass(a, pointClass(t), "Point")
	code := build(t, a.
		Op("LOAD_NAME", "Point").
		Op("CALL_FUNCTION", 0).
		Op("RETURN_VALUE"))
	r := execute(t, code)
	u := r.uncaught(t, TypeErrorClass)
	if got := u.Exception.String(); got != "TypeError: __init__() missing 1 required positional argument: 'x'" {
		t.Fatalf("got %s", got)
	}
}

func TestZeroArgSuper(t *testing.T) {
	// class Point3(Point):
	//     def get(self): return super().get() + 1
	get := build(t, asm(t, "3.7", "get").
		Params(pyasm.Params{Args: []string{"self"}}).
		FreeVars("__class__").
		Op("LOAD_GLOBAL", "super").
		Op("CALL_FUNCTION", 0).
		Op("LOAD_METHOD", "get").
		Op("CALL_METHOD", 0).
		Op("LOAD_CONST", 1).
		Op("BINARY_ADD").
		Op("RETURN_VALUE"))
	body := build(t, classBody(t, "Point3").
		CellVars("__class__").
		Op("LOAD_CLOSURE", "__class__").
		Op("BUILD_TUPLE", 1).
		Op("LOAD_CONST", get).
		Op("LOAD_CONST", "Point3.get").
		Op("MAKE_FUNCTION", 8).
		Op("STORE_NAME", "get").
		Op("LOAD_CLOSURE", "__class__").
		Op("RETURN_VALUE"))

	a := asm(t, "3.7", "<module>")
	defineClass(a, pointClass(t), "Point")
	defineClass(a, body, "Point3", "Point")
	code := build(t, a.
		Op("LOAD_NAME", "Point3").
		Op("LOAD_CONST", 41).
		Op("CALL_FUNCTION", 1).
		Op("LOAD_METHOD", "get").
		Op("CALL_METHOD", 0).
		Op("STORE_NAME", "r").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if v := r.global(t, "r"); v != Int(42) {
		t.Fatalf("got %v", v)
	}
	sub := r.global(t, "Point3").(*Class)
	base := r.global(t, "Point").(*Class)
	if len(sub.MRO) != 3 || sub.MRO[1] != base || sub.MRO[2] != ObjectClass {
		t.Fatalf("mro %v", sub.MRO)
	}
}

func TestMetaclassKeyword(t *testing.T) {
	// class Meta(type):
	//     def tag(cls): return cls.__name__
	// class Tagged(metaclass=Meta): pass
	tag := build(t, asm(t, "3.7", "tag").
		Params(pyasm.Params{Args: []string{"cls"}}).
		Op("LOAD_FAST", "cls").
		Op("LOAD_ATTR", "__name__").
		Op("RETURN_VALUE"))
	metaBody := classBody(t, "Meta")
	makeFunction3(metaBody, tag, "tag", 0)
	taggedBody := build(t, classBody(t, "Tagged").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))

	a := asm(t, "3.7", "<module>")
	defineClass(a, build(t, metaBody.Op("LOAD_CONST", nil).Op("RETURN_VALUE")), "Meta", "type")
	code := build(t, a.
		Op("LOAD_BUILD_CLASS").
		Op("LOAD_CONST", taggedBody).
		Op("LOAD_CONST", "Tagged").
		Op("MAKE_FUNCTION", 0).
		Op("LOAD_CONST", "Tagged").
		Op("LOAD_NAME", "Meta").
		Op("LOAD_CONST", pycode.Tuple{"metaclass"}).
		Op("CALL_FUNCTION_KW", 3).
		Op("STORE_NAME", "Tagged").
		Op("LOAD_NAME", "Tagged").
		Op("LOAD_METHOD", "tag").
		Op("CALL_METHOD", 0).
		Op("STORE_NAME", "r").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	if v := r.global(t, "r"); v != Str("Tagged") {
		t.Fatalf("got %v", v)
	}
	tagged := r.global(t, "Tagged").(*Class)
	if tagged.Type() != r.global(t, "Meta") {
		t.Fatalf("metaclass %v", tagged.Type())
	}
}

func TestFinalBuiltinClass(t *testing.T) {
	body := build(t, classBody(t, "MyInt").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	a := asm(t, "3.7", "<module>")
	defineClass(a, body, "MyInt", "bool")
	code := build(t, a.
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := execute(t, code)
	r.uncaught(t, TypeErrorClass)
}

func TestUserException(t *testing.T) {
	// class Oops(ValueError): pass
	// try: raise Oops("bad")
	// except ValueError as e: got = e.args
	body := build(t, classBody(t, "Oops").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	a := asm(t, "3.7", "<module>")
	defineClass(a, body, "Oops", "ValueError")
	code := build(t, a.
		Op("SETUP_EXCEPT", "handler").
		Op("LOAD_NAME", "Oops").
		Op("LOAD_CONST", "bad").
		Op("CALL_FUNCTION", 1).
		Op("RAISE_VARARGS", 1).
		Op("POP_BLOCK").
		Op("JUMP_FORWARD", "end").
		Label("handler").
		Op("DUP_TOP").
		Op("LOAD_NAME", "ValueError").
		Op("COMPARE_OP", "exception match").
		Op("POP_JUMP_IF_FALSE", "reraise").
		Op("POP_TOP").
		Op("LOAD_ATTR", "args").
		Op("STORE_NAME", "got").
		Op("POP_TOP").
		Op("POP_EXCEPT").
		Op("JUMP_FORWARD", "end").
		Label("reraise").
		Op("END_FINALLY").
		Label("end").
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := mustRun(t, code)
	got, ok := r.global(t, "got").(Tuple)
	if !ok || len(got) != 1 || got[0] != Str("bad") {
		t.Fatalf("got %v", r.global(t, "got"))
	}
}

func TestMetaclassConflict(t *testing.T) {
	// class M1(type): pass
	// class M2(type): pass
	// class A(metaclass=M1): pass
	// class B(metaclass=M2): pass
	// class C(A, B): pass
	empty := func(name string) *pycode.CodeUnit {
		return build(t, classBody(t, name).
			Op("LOAD_CONST", nil).
			Op("RETURN_VALUE"))
	}
	withMeta := func(a *pyasm.Assembler, name string, meta string) {
		a.Op("LOAD_BUILD_CLASS").
			Op("LOAD_CONST", empty(name)).
			Op("LOAD_CONST", name).
			Op("MAKE_FUNCTION", 0).
			Op("LOAD_CONST", name).
			Op("LOAD_NAME", meta).
			Op("LOAD_CONST", pycode.Tuple{"metaclass"}).
			Op("CALL_FUNCTION_KW", 3).
			Op("STORE_NAME", name)
	}
	a := asm(t, "3.7", "<module>")
	defineClass(a, empty("M1"), "M1", "type")
	defineClass(a, empty("M2"), "M2", "type")
	withMeta(a, "A", "M1")
	withMeta(a, "B", "M2")
	defineClass(a, empty("C"), "C", "A", "B")
	code := build(t, a.
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE"))
	r := execute(t, code)
	u := r.uncaught(t, TypeErrorClass)
	if !strings.HasPrefix(u.Exception.String(), "TypeError: metaclass conflict") {
		t.Fatalf("got %s", u.Exception)
	}
	if _, ok := r.globals.GetStr("C"); ok {
		t.Fatal("class was bound")
	}
}
