package pyvm

import (
	"bytes"
	"hash/fnv"
	"math"
	"math/big"
	"reflect"
)

func strHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// hashValue must agree with keyEqual: equal keys hash equal.
func hashValue(v Value) (uint64, error) {
	switch v := v.(type) {
	case NoneType:
		return 0x9e3779b97f4a7c15, nil
	case Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case Int:
		return uint64(v), nil
	case *BigInt:
		h := fnv.New64a()
		h.Write([]byte{byte(v.V.Sign() + 1)})
		h.Write(v.V.Bytes())
		return h.Sum64(), nil
	case Float:
		return floatHash(float64(v)), nil
	case Complex:
		if imag(v) == 0 {
			return floatHash(real(v)), nil
		}
		return floatHash(real(v)) ^ (floatHash(imag(v)) * 1000003), nil
	case Str:
		return strHash(string(v)), nil
	case Bytes:
		h := fnv.New64a()
		h.Write(v)
		return h.Sum64() ^ 0x5bd1e995, nil
	case Tuple:
		var acc uint64 = 0x345678
		for _, e := range v {
			h, err := hashValue(e)
			if err != nil {
				return 0, err
			}
			acc = (acc ^ h) * 1000003
		}
		return acc, nil
	case *Set:
		if !v.Frozen {
			return 0, NewError(TypeErrorClass, "unhashable type: 'set'")
		}
		var acc uint64
		for e := range v.d.All() {
			h, _ := hashValue(e)
			acc ^= h * 0x9e3779b1
		}
		return acc, nil
	case *List:
		return 0, NewError(TypeErrorClass, "unhashable type: 'list'")
	case *Dict:
		return 0, NewError(TypeErrorClass, "unhashable type: 'dict'")
	case *Slice:
		return 0, NewError(TypeErrorClass, "unhashable type: 'slice'")
	case *Instance:
		if h, _, ok := v.Class.Lookup("__hash__"); ok && h == None {
			return 0, NewError(TypeErrorClass, "unhashable type: '%s'", v.Class.Name)
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return uint64(rv.Pointer()) * 0x9e3779b97f4a7c15, nil
	}
	return strHash(v.Type().Name), nil
}

func floatHash(f float64) uint64 {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return uint64(int64(f))
	}
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		b, _ := new(big.Float).SetFloat64(f).Int(nil)
		h, _ := hashValue(&BigInt{V: b})
		return h
	}
	return math.Float64bits(f)
}

// identical implements the is operator.
func identical(a, b Value) bool {
	switch a := a.(type) {
	case Tuple:
		b, ok := b.(Tuple)
		return ok && len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
	case Bytes:
		b, ok := b.(Bytes)
		return ok && len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
	}
	if _, ok := b.(Tuple); ok {
		return false
	}
	if _, ok := b.(Bytes); ok {
		return false
	}
	return a == b
}

// keyEqual is the key equality of dicts and sets. It never calls into interpreted code.
func keyEqual(a, b Value) bool {
	if identical(a, b) {
		return true
	}
	if eq, ok := numEqual(a, b); ok {
		return eq
	}
	switch a := a.(type) {
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Bytes:
		b, ok := b.(Bytes)
		return ok && bytes.Equal(a, b)
	case Tuple:
		b, ok := b.(Tuple)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !keyEqual(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Set:
		b, ok := b.(*Set)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for k := range a.d.All() {
			if !b.has(k) {
				return false
			}
		}
		return true
	}
	return false
}
