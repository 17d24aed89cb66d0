package debugs

import (
	"math/big"
	"testing"

	"github.com/reusee/pyrun/pyvm"
	"go.starlark.net/starlark"
)

func starlarkDict(kvs ...starlark.Value) *starlark.Dict {
	d := starlark.NewDict(len(kvs) / 2)
	for i := 0; i < len(kvs); i += 2 {
		d.SetKey(kvs[i], kvs[i+1])
	}
	return d
}

func TestToStarlarkValue(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	point := pyvm.NewInstance(pyvm.ObjectClass)
	point.Dict.SetStr("x", pyvm.Int(1))
	point.Dict.SetStr("tags", pyvm.Tuple{pyvm.Str("a")})

	set, err := pyvm.NewSet(pyvm.Int(1), pyvm.Int(2))
	if err != nil {
		t.Fatal(err)
	}
	starlarkSet := starlark.NewSet(2)
	starlarkSet.Insert(starlark.MakeInt(1))
	starlarkSet.Insert(starlark.MakeInt(2))

	cyclic := pyvm.NewDict()
	cyclic.SetStr("self", cyclic)

	globals := pyvm.NewDict()
	globals.SetStr("n", pyvm.Int(3))
	globals.SetStr("names", pyvm.NewList(pyvm.Str("a"), pyvm.Str("b")))

	testCases := []struct {
		name     string
		input    any
		expected starlark.Value
	}{
		{"nil", nil, starlark.None},
		{"none", pyvm.None, starlark.None},
		{"big int", &pyvm.BigInt{V: huge}, starlark.MakeBigInt(huge)},
		{"float", pyvm.Float(0.5), starlark.Float(0.5)},
		{"bytes", pyvm.Bytes("ab"), starlark.Bytes("ab")},
		{"list", pyvm.NewList(pyvm.Int(1), pyvm.Str("x")), starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.String("x")})},
		{"set", set, starlarkSet},
		{"instance", point, starlarkDict(
			starlark.String("__class__"), starlark.String("object"),
			starlark.String("x"), starlark.MakeInt(1),
			starlark.String("tags"), starlark.Tuple{starlark.String("a")},
		)},
		{"class", pyvm.ValueErrorClass, starlark.String("<class 'ValueError'>")},
		{"builtin", pyvm.NewBuiltin("mark", nil), starlark.String("<built-in function mark>")},
		{"cyclic dict", cyclic, starlarkDict(
			starlark.String("self"), starlark.String("..."),
		)},
		{"converted globals", Globals(globals), starlarkDict(
			starlark.String("n"), starlark.MakeInt(3),
			starlark.String("names"), starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")}),
		)},
		{"run summary", map[string]any{"path": "hello.yaml", "instructions": 12}, starlarkDict(
			starlark.String("path"), starlark.String("hello.yaml"),
			starlark.String("instructions"), starlark.MakeInt(12),
		)},
		{"starlark value", starlark.String("y"), starlark.String("y")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := toStarlarkValue(tc.input)
			equal, err := starlark.Equal(actual, tc.expected)
			if err != nil {
				t.Fatalf("comparison failed: %v", err)
			}
			if !equal {
				t.Errorf("got %v, want %v", actual, tc.expected)
			}
		})
	}

	t.Run("func", func(t *testing.T) {
		v := toStarlarkValue(func(a, b int) int {
			return a + b
		})
		fn, ok := v.(starlark.Callable)
		if !ok {
			t.Fatalf("got %T", v)
		}
		ret, err := starlark.Call(new(starlark.Thread), fn, starlark.Tuple{starlark.MakeInt(1), starlark.MakeInt(2)}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if ret.String() != "3" {
			t.Fatalf("got %v", ret)
		}
	})

	t.Run("panic on unsupported type", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("toStarlarkValue did not panic on unsupported type")
			}
		}()
		toStarlarkValue(make(chan bool))
	})
}
