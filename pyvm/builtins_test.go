package pyvm

import (
	"errors"
	"testing"
)

func newTestEngine() *Engine {
	return NewEngine(Options{})
}

func callBuiltin(t *testing.T, e *Engine, name string, args ...Value) Value {
	t.Helper()
	fn, ok := e.builtins.GetStr(name)
	if !ok {
		t.Fatalf("no builtin %s", name)
	}
	v, err := e.Call(fn, args, nil)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func callMethod(t *testing.T, e *Engine, recv Value, name string, args ...Value) Value {
	t.Helper()
	m, err := e.GetAttr(recv, name)
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Call(m, args, nil)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func expectValue(t *testing.T, e *Engine, got Value, want string) {
	t.Helper()
	s, err := e.Repr(got)
	if err != nil {
		t.Fatal(err)
	}
	if s != want {
		t.Fatalf("got %s, want %s", s, want)
	}
}

func expectError(t *testing.T, err error, cls *Class, msg string) {
	t.Helper()
	var u *UncaughtError
	if !errors.As(err, &u) {
		t.Fatalf("got %v", err)
	}
	if u.Exception.Type != cls {
		t.Fatalf("got %s", u.Exception)
	}
	if msg != "" && u.Exception.String() != msg {
		t.Fatalf("got %q", u.Exception.String())
	}
}

func TestBuiltinNumbers(t *testing.T) {
	e := newTestEngine()
	expectValue(t, e, callBuiltin(t, e, "abs", Int(-3)), "3")
	expectValue(t, e, callBuiltin(t, e, "divmod", Int(-7), Int(2)), "(-4, 1)")
	expectValue(t, e, callBuiltin(t, e, "pow", Int(2), Int(10)), "1024")
	expectValue(t, e, callBuiltin(t, e, "pow", Int(3), Int(4), Int(5)), "1")
	expectValue(t, e, callBuiltin(t, e, "round", Float(2.5)), "2")
	expectValue(t, e, callBuiltin(t, e, "round", Float(3.5)), "4")
	expectValue(t, e, callBuiltin(t, e, "hex", Int(255)), "'0xff'")
	expectValue(t, e, callBuiltin(t, e, "oct", Int(8)), "'0o10'")
	expectValue(t, e, callBuiltin(t, e, "bin", Int(-5)), "'-0b101'")
	expectValue(t, e, callBuiltin(t, e, "sum", NewList(Int(1), Int(2), Int(3))), "6")
	expectValue(t, e, callBuiltin(t, e, "max", Int(1), Int(9), Int(4)), "9")
	expectValue(t, e, callBuiltin(t, e, "min", NewList(Str("b"), Str("a"))), "'a'")
	expectValue(t, e, callBuiltin(t, e, "chr", Int(0x263a)), "'☺'")
	expectValue(t, e, callBuiltin(t, e, "ord", Str("A")), "65")

	expectValue(t, e, callBuiltin(t, e, "int", Str("ff"), Int(16)), "255")
	expectValue(t, e, callBuiltin(t, e, "int", Str("0x1f"), Int(0)), "31")
	expectValue(t, e, callBuiltin(t, e, "int", Str(" -1_000 ")), "-1000")
	expectValue(t, e, callBuiltin(t, e, "int", Float(-2.7)), "-2")
	expectValue(t, e, callBuiltin(t, e, "int", Str("99999999999999999999")), "99999999999999999999")
	expectValue(t, e, callBuiltin(t, e, "float", Str("1.5")), "1.5")
	expectValue(t, e, callBuiltin(t, e, "bool", NewList()), "False")

	intFn, _ := e.builtins.GetStr("int")
	_, err := e.Call(intFn, []Value{Str("z")}, nil)
	expectError(t, err, ValueErrorClass, "ValueError: invalid literal for int() with base 10: 'z'")
	_, err = e.Call(intFn, []Value{Str("09"), Int(0)}, nil)
	expectError(t, err, ValueErrorClass, "ValueError: invalid literal for int() with base 0: '09'")
	floatFn, _ := e.builtins.GetStr("float")
	_, err = e.Call(floatFn, []Value{Str("x")}, nil)
	expectError(t, err, ValueErrorClass, "ValueError: could not convert string to float: 'x'")
}

func TestBuiltinIteration(t *testing.T) {
	e := newTestEngine()
	list, _ := e.builtins.GetStr("list")
	toList := func(v Value) Value {
		t.Helper()
		l, err := e.Call(list, []Value{v}, nil)
		if err != nil {
			t.Fatal(err)
		}
		return l
	}

	expectValue(t, e, callBuiltin(t, e, "sorted", Tuple{Int(3), Int(1), Int(2)}), "[1, 2, 3]")
	sorted, _ := e.builtins.GetStr("sorted")
	length, _ := e.builtins.GetStr("len")
	kw := NewDict()
	kw.SetStr("key", length)
	kw.SetStr("reverse", True)
	v, err := e.Call(sorted, []Value{NewList(Str("bb"), Str("a"), Str("ccc"), Str("dd"))}, kw)
	if err != nil {
		t.Fatal(err)
	}
	// stable within equal keys
	expectValue(t, e, v, "['ccc', 'bb', 'dd', 'a']")

	expectValue(t, e, toList(callBuiltin(t, e, "reversed", NewList(Int(1), Int(2)))), "[2, 1]")
	expectValue(t, e, toList(callBuiltin(t, e, "enumerate", Str("ab"))), "[(0, 'a'), (1, 'b')]")
	expectValue(t, e, toList(callBuiltin(t, e, "zip", NewList(Int(1), Int(2), Int(3)), Str("xy"))), "[(1, 'x'), (2, 'y')]")
	expectValue(t, e, toList(callBuiltin(t, e, "map", length, NewList(Str("a"), Str("bcd")))), "[1, 3]")
	expectValue(t, e, toList(callBuiltin(t, e, "filter", None, NewList(Int(0), Int(1), Str(""), Str("x")))), "[1, 'x']")
	expectValue(t, e, callBuiltin(t, e, "any", NewList(Int(0), Int(2))), "True")
	expectValue(t, e, callBuiltin(t, e, "all", NewList(Int(0), Int(2))), "False")
	expectValue(t, e, toList(callBuiltin(t, e, "range", Int(5), Int(0), Int(-2))), "[5, 3, 1]")

	it := callBuiltin(t, e, "iter", NewList(Int(1)))
	expectValue(t, e, callBuiltin(t, e, "next", it), "1")
	expectValue(t, e, callBuiltin(t, e, "next", it, Str("done")), "'done'")
	next, _ := e.builtins.GetStr("next")
	_, err = e.Call(next, []Value{it}, nil)
	expectError(t, err, StopIterationClass, "")
}

func TestBuiltinAttributes(t *testing.T) {
	e := newTestEngine()
	cls, err := e.newClass(TypeClass, "Box", nil, NewDict())
	if err != nil {
		t.Fatal(err)
	}
	obj := NewInstance(cls)
	callBuiltin(t, e, "setattr", obj, Str("size"), Int(3))
	expectValue(t, e, callBuiltin(t, e, "getattr", obj, Str("size")), "3")
	expectValue(t, e, callBuiltin(t, e, "hasattr", obj, Str("size")), "True")
	expectValue(t, e, callBuiltin(t, e, "getattr", obj, Str("missing"), None), "None")
	callBuiltin(t, e, "delattr", obj, Str("size"))
	expectValue(t, e, callBuiltin(t, e, "hasattr", obj, Str("size")), "False")

	expectValue(t, e, callBuiltin(t, e, "isinstance", obj, Tuple{IntClass, cls}), "True")
	expectValue(t, e, callBuiltin(t, e, "issubclass", BoolClass, IntClass), "True")
	expectValue(t, e, callBuiltin(t, e, "isinstance", True, IntClass), "True")
	expectValue(t, e, callBuiltin(t, e, "callable", cls), "True")
	expectValue(t, e, callBuiltin(t, e, "callable", obj), "False")
	expectValue(t, e, callBuiltin(t, e, "type", Int(1)), "<class 'int'>")
}

func TestStrMethods(t *testing.T) {
	e := newTestEngine()
	expectValue(t, e, callMethod(t, e, Str("a,b,,c"), "split", Str(",")), "['a', 'b', '', 'c']")
	expectValue(t, e, callMethod(t, e, Str("  a  b "), "split"), "['a', 'b']")
	expectValue(t, e, callMethod(t, e, Str("a b c"), "rsplit", None, Int(1)), "['a b', 'c']")
	expectValue(t, e, callMethod(t, e, Str(" x "), "strip"), "'x'")
	expectValue(t, e, callMethod(t, e, Str("xxhixx"), "lstrip", Str("x")), "'hixx'")
	expectValue(t, e, callMethod(t, e, Str("-"), "join", NewList(Str("a"), Str("b"))), "'a-b'")
	expectValue(t, e, callMethod(t, e, Str("hello"), "replace", Str("l"), Str("L")), "'heLLo'")
	expectValue(t, e, callMethod(t, e, Str("hello"), "find", Str("l")), "2")
	expectValue(t, e, callMethod(t, e, Str("hello"), "rfind", Str("l")), "3")
	expectValue(t, e, callMethod(t, e, Str("hello"), "find", Str("z")), "-1")
	expectValue(t, e, callMethod(t, e, Str("hello"), "startswith", Tuple{Str("x"), Str("he")}), "True")
	expectValue(t, e, callMethod(t, e, Str("a=b=c"), "partition", Str("=")), "('a', '=', 'b=c')")
	expectValue(t, e, callMethod(t, e, Str("42"), "zfill", Int(5)), "'00042'")
	expectValue(t, e, callMethod(t, e, Str("-42"), "zfill", Int(5)), "'-0042'")
	expectValue(t, e, callMethod(t, e, Str("ab"), "center", Int(6), Str("*")), "'**ab**'")
	expectValue(t, e, callMethod(t, e, Str("a\nb\r\nc"), "splitlines"), "['a', 'b', 'c']")
	expectValue(t, e, callMethod(t, e, Str("banana"), "count", Str("an")), "2")
	expectValue(t, e, callMethod(t, e, Str("straße"), "upper"), "'STRASSE'")
	expectValue(t, e, callMethod(t, e, Str("hello world"), "title"), "'Hello World'")
	expectValue(t, e, callMethod(t, e, Str("aBc"), "swapcase"), "'AbC'")
	expectValue(t, e, callMethod(t, e, Str("123"), "isdigit"), "True")
	expectValue(t, e, callMethod(t, e, Str(""), "isdigit"), "False")
	expectValue(t, e, callMethod(t, e, Str("{} and {!r:>4}"), "format", Int(1), Str("x")), `"1 and  'x'"`)
	expectValue(t, e, callMethod(t, e, Str("é"), "encode"), `b'\xc3\xa9'`)
	expectValue(t, e, callMethod(t, e, Bytes("\xc3\xa9"), "decode"), "'é'")
	expectValue(t, e, callMethod(t, e, Bytes("ab"), "hex"), "'6162'")

	find, err := e.GetAttr(Str("abc"), "index")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Call(find, []Value{Str("z")}, nil)
	expectError(t, err, ValueErrorClass, "ValueError: substring not found")
}

func TestContainerMethods(t *testing.T) {
	e := newTestEngine()
	l := NewList(Int(3), Int(1))
	callMethod(t, e, l, "append", Int(2))
	callMethod(t, e, l, "sort")
	expectValue(t, e, l, "[1, 2, 3]")
	expectValue(t, e, callMethod(t, e, l, "pop"), "3")
	callMethod(t, e, l, "insert", Int(0), Str("x"))
	expectValue(t, e, l, "['x', 1, 2]")
	expectValue(t, e, callMethod(t, e, l, "index", Int(2)), "2")
	callMethod(t, e, l, "extend", Tuple{Int(2)})
	expectValue(t, e, callMethod(t, e, l, "count", Int(2)), "2")
	callMethod(t, e, l, "remove", Str("x"))
	callMethod(t, e, l, "reverse")
	expectValue(t, e, l, "[2, 2, 1]")

	d := NewDict()
	d.SetStr("a", Int(1))
	expectValue(t, e, callMethod(t, e, d, "get", Str("b")), "None")
	expectValue(t, e, callMethod(t, e, d, "setdefault", Str("b"), Int(2)), "2")
	expectValue(t, e, callMethod(t, e, d, "keys"), "['a', 'b']")
	expectValue(t, e, callMethod(t, e, d, "items"), "[('a', 1), ('b', 2)]")
	expectValue(t, e, callMethod(t, e, d, "pop", Str("a")), "1")
	expectValue(t, e, d, "{'b': 2}")
	callMethod(t, e, d, "update", NewList(Tuple{Str("c"), Int(3)}))
	expectValue(t, e, d, "{'b': 2, 'c': 3}")
	expectValue(t, e, callMethod(t, e, DictClass, "fromkeys", Str("xy"), Int(0)), "{'x': 0, 'y': 0}")

	s, err := NewSet(Int(1), Int(2))
	if err != nil {
		t.Fatal(err)
	}
	expectValue(t, e, callMethod(t, e, s, "union", NewList(Int(3))), "{1, 2, 3}")
	expectValue(t, e, callMethod(t, e, s, "intersection", NewList(Int(2), Int(5))), "{2}")
	expectValue(t, e, callMethod(t, e, s, "issubset", NewList(Int(1), Int(2), Int(3))), "True")
	callMethod(t, e, s, "add", Int(9))
	callMethod(t, e, s, "discard", Int(1))
	expectValue(t, e, s, "{2, 9}")

	frozen := callBuiltin(t, e, "frozenset", NewList(Int(1)))
	if _, err := e.GetAttr(frozen, "add"); err == nil {
		t.Fatal("frozenset has add")
	}
}

func TestCharFormatErrors(t *testing.T) {
	e := newTestEngine()
	s, err := e.Format(Int(65), "c")
	if err != nil || s != "A" {
		t.Fatalf("got %q %v", s, err)
	}
	_, err = e.Format(Int(0x110000), "c")
	expectError(t, e.hostError(err), OverflowErrorClass, "OverflowError: %c arg not in range(0x110000)")

	s, err = e.percentFormat("[%c]", Tuple{Str("z")})
	if err != nil || s != "[z]" {
		t.Fatalf("got %q %v", s, err)
	}
	_, err = e.percentFormat("%c", Tuple{Str("zz")})
	expectError(t, e.hostError(err), TypeErrorClass, "TypeError: %c requires int or char")
	_, err = e.percentFormat("%c", Tuple{Float(1)})
	expectError(t, e.hostError(err), TypeErrorClass, "TypeError: %c requires int or char")
}
