package debugs

import (
	"math/big"

	"github.com/reusee/pyrun/pyvm"
	"go.starlark.net/starlark"
)

// FromValue converts an interpreted value for inspection from starlark.
// Values with no starlark counterpart become their repr.
func FromValue(v pyvm.Value) starlark.Value {
	return fromValue(v, make(map[pyvm.Value]bool))
}

func fromValue(v pyvm.Value, seen map[pyvm.Value]bool) starlark.Value {
	switch v := v.(type) {
	case nil, pyvm.NoneType:
		return starlark.None
	case pyvm.Bool:
		return starlark.Bool(v)
	case pyvm.Int:
		return starlark.MakeInt64(int64(v))
	case *pyvm.BigInt:
		return starlark.MakeBigInt(new(big.Int).Set(v.V))
	case pyvm.Float:
		return starlark.Float(v)
	case pyvm.Str:
		return starlark.String(v)
	case pyvm.Bytes:
		return starlark.Bytes(v)
	case pyvm.Tuple:
		elems := make(starlark.Tuple, len(v))
		for i, e := range v {
			elems[i] = fromValue(e, seen)
		}
		return elems
	}

	// containers may be cyclic
	if seen[v] {
		return starlark.String("...")
	}
	seen[v] = true
	defer delete(seen, v)

	switch v := v.(type) {
	case *pyvm.List:
		elems := make([]starlark.Value, len(v.Items))
		for i, e := range v.Items {
			elems[i] = fromValue(e, seen)
		}
		return starlark.NewList(elems)
	case *pyvm.Dict:
		d := starlark.NewDict(v.Len())
		for key, value := range v.All() {
			setKey(d, fromValue(key, seen), fromValue(value, seen))
		}
		return d
	case *pyvm.Set:
		s := starlark.NewSet(v.Len())
		for _, item := range v.Items() {
			_ = s.Insert(fromValue(item, seen))
		}
		return s
	case *pyvm.Instance:
		d := starlark.NewDict(v.Dict.Len() + 1)
		setKey(d, starlark.String("__class__"), starlark.String(v.Class.Name))
		for key, value := range v.Dict.All() {
			setKey(d, fromValue(key, seen), fromValue(value, seen))
		}
		return d
	}
	return starlark.String(pyvm.Describe(v))
}

// setKey falls back to the key's string form for unhashable keys.
func setKey(d *starlark.Dict, key, value starlark.Value) {
	if err := d.SetKey(key, value); err != nil {
		_ = d.SetKey(starlark.String(key.String()), value)
	}
}

// Globals converts a globals dict for Tap.
func Globals(d *pyvm.Dict) map[string]any {
	ret := make(map[string]any, d.Len())
	for key, value := range d.All() {
		name, ok := key.(pyvm.Str)
		if !ok {
			continue
		}
		ret[string(name)] = FromValue(value)
	}
	return ret
}
