package pyvm

import (
	"bytes"
	"slices"
	"strings"
)

type operatorNames struct {
	method   string
	reflect  string
	inplace  string
	fallback string
}

var binaryOperators = map[string]operatorNames{
	"+":   {"__add__", "__radd__", "__iadd__", ""},
	"-":   {"__sub__", "__rsub__", "__isub__", ""},
	"*":   {"__mul__", "__rmul__", "__imul__", ""},
	"@":   {"__matmul__", "__rmatmul__", "__imatmul__", ""},
	"/":   {"__truediv__", "__rtruediv__", "__itruediv__", ""},
	"div": {"__div__", "__rdiv__", "__idiv__", "/"},
	"//":  {"__floordiv__", "__rfloordiv__", "__ifloordiv__", ""},
	"%":   {"__mod__", "__rmod__", "__imod__", ""},
	"**":  {"__pow__", "__rpow__", "__ipow__", ""},
	"<<":  {"__lshift__", "__rlshift__", "__ilshift__", ""},
	">>":  {"__rshift__", "__rrshift__", "__irshift__", ""},
	"&":   {"__and__", "__rand__", "__iand__", ""},
	"|":   {"__or__", "__ror__", "__ior__", ""},
	"^":   {"__xor__", "__rxor__", "__ixor__", ""},
}

func operatorSymbol(op string) string {
	if op == "div" {
		return "/"
	}
	return op
}

// BinaryOp evaluates a op b.
func (e *Engine) BinaryOp(op string, a, b Value) (Value, error) {
	if v, err, ok := e.dunderBinary(op, a, b); ok {
		return v, err
	}
	v, err := e.builtinBinary(op, a, b)
	if err != nil || v != nil {
		return v, err
	}
	return nil, unsupportedOperands(op, a, b)
}

func unsupportedOperands(op string, a, b Value) error {
	if op == "**" {
		return NewError(TypeErrorClass, "unsupported operand type(s) for ** or pow(): '%s' and '%s'", TypeName(a), TypeName(b))
	}
	return NewError(TypeErrorClass, "unsupported operand type(s) for %s: '%s' and '%s'", operatorSymbol(op), TypeName(a), TypeName(b))
}

func (e *Engine) callOperator(method Value, self, other Value) (Value, bool, error) {
	ret, err := e.call(e.bind(method, self, self.Type()), []Value{other}, nil)
	if err != nil {
		return nil, true, err
	}
	if ret == NotImplemented {
		return nil, false, nil
	}
	return ret, true, nil
}

func (e *Engine) dunderBinary(op string, a, b Value) (Value, error, bool) {
	ta, tb := a.Type(), b.Type()
	if ta.builtin && tb.builtin {
		return nil, nil, false
	}
	names := binaryOperators[op]
	for {
		ma, _, okA := ta.Lookup(names.method)
		var mb Value
		okB := false
		if tb != ta {
			mb, _, okB = tb.Lookup(names.reflect)
		}
		if okB && tb.IsSubclass(ta) {
			if v, done, err := e.callOperator(mb, b, a); done {
				return v, err, true
			}
			okB = false
		}
		if okA {
			if v, done, err := e.callOperator(ma, a, b); done {
				return v, err, true
			}
		}
		if okB {
			if v, done, err := e.callOperator(mb, b, a); done {
				return v, err, true
			}
		}
		if names.fallback == "" {
			break
		}
		op = names.fallback
		names = binaryOperators[op]
	}
	return nil, unsupportedOperands(op, a, b), true
}

// InplaceOp evaluates a op= b.
func (e *Engine) InplaceOp(op string, a, b Value) (Value, error) {
	names := binaryOperators[op]
	if !a.Type().builtin {
		if m, _, ok := a.Type().Lookup(names.inplace); ok {
			if v, done, err := e.callOperator(m, a, b); done {
				return v, err
			}
		}
		return e.BinaryOp(op, a, b)
	}
	switch x := a.(type) {
	case *List:
		switch op {
		case "+":
			items, err := e.ToSlice(b)
			if err != nil {
				return nil, err
			}
			x.Items = append(x.Items, items...)
			return x, nil
		case "*":
			if n, ok := asInt64(b); ok {
				x.Items = repeat(x.Items, n)
				return x, nil
			}
		}
	case *Set:
		if y, ok := b.(*Set); ok && !x.Frozen {
			var result *Set
			switch op {
			case "|":
				result = x.union(y)
			case "&":
				result = x.intersection(y)
			case "-":
				result = x.difference(y)
			case "^":
				result = x.symmetricDifference(y)
			}
			if result != nil {
				x.d = result.d
				return x, nil
			}
		}
	}
	return e.BinaryOp(op, a, b)
}

func repeat[T any](items []T, n int64) []T {
	if n <= 0 {
		return nil
	}
	ret := make([]T, 0, len(items)*int(n))
	for range n {
		ret = append(ret, items...)
	}
	return ret
}

const maxRepeat = 1 << 28

func checkRepeat(size int, n int64) error {
	if n > 0 && int64(size)*n > maxRepeat {
		return NewError(OverflowErrorClass, "repeated sequence is too long")
	}
	return nil
}

func (e *Engine) builtinBinary(op string, a, b Value) (Value, error) {
	if v, err := numArith(op, a, b); err != nil || v != nil {
		return v, err
	}
	switch op {
	case "+":
		switch x := a.(type) {
		case Str:
			if y, ok := b.(Str); ok {
				return x + y, nil
			}
			return nil, NewError(TypeErrorClass, "can only concatenate str (not \"%s\") to str", TypeName(b))
		case Bytes:
			if y, ok := b.(Bytes); ok {
				return Bytes(slices.Concat(x, y)), nil
			}
		case Tuple:
			if y, ok := b.(Tuple); ok {
				return Tuple(slices.Concat(x, y)), nil
			}
			return nil, NewError(TypeErrorClass, "can only concatenate tuple (not \"%s\") to tuple", TypeName(b))
		case *List:
			if y, ok := b.(*List); ok {
				return NewList(slices.Concat(x.Items, y.Items)...), nil
			}
			return nil, NewError(TypeErrorClass, "can only concatenate list (not \"%s\") to list", TypeName(b))
		}
	case "*":
		seq, n := a, b
		if _, ok := asInt64(a); ok {
			seq, n = b, a
		}
		count, ok := asInt64(n)
		if !ok {
			break
		}
		switch x := seq.(type) {
		case Str:
			if err := checkRepeat(len(x), count); err != nil {
				return nil, err
			}
			return Str(strings.Repeat(string(x), int(max(count, 0)))), nil
		case Bytes:
			if err := checkRepeat(len(x), count); err != nil {
				return nil, err
			}
			return Bytes(bytes.Repeat(x, int(max(count, 0)))), nil
		case Tuple:
			if err := checkRepeat(len(x), count); err != nil {
				return nil, err
			}
			return Tuple(repeat(x, count)), nil
		case *List:
			if err := checkRepeat(len(x.Items), count); err != nil {
				return nil, err
			}
			return NewList(repeat(x.Items, count)...), nil
		}
	case "%":
		if x, ok := a.(Str); ok {
			s, err := e.percentFormat(string(x), b)
			if err != nil {
				return nil, err
			}
			return Str(s), nil
		}
	case "|", "&", "-", "^":
		x, ok1 := a.(*Set)
		y, ok2 := b.(*Set)
		if ok1 && ok2 {
			switch op {
			case "|":
				return x.union(y), nil
			case "&":
				return x.intersection(y), nil
			case "-":
				return x.difference(y), nil
			}
			return x.symmetricDifference(y), nil
		}
	}
	return nil, nil
}

var unaryMethods = map[string]string{
	"-": "__neg__",
	"+": "__pos__",
	"~": "__invert__",
}

// UnaryOp evaluates -v, +v, ~v or not v.
func (e *Engine) UnaryOp(op string, v Value) (Value, error) {
	if op == "not" {
		t, err := e.Truth(v)
		if err != nil {
			return nil, err
		}
		return Bool(!t), nil
	}
	if !v.Type().builtin {
		if m, ok := e.lookupSpecial(v, unaryMethods[op]); ok {
			return e.call(m, nil, nil)
		}
	}
	if ret, ok := numUnary(op, v); ok {
		return ret, nil
	}
	return nil, NewError(TypeErrorClass, "bad operand type for unary %s: '%s'", op, TypeName(v))
}

// Truth is the truth value of v.
func (e *Engine) Truth(v Value) (bool, error) {
	switch v := v.(type) {
	case NoneType:
		return false, nil
	case Bool:
		return bool(v), nil
	case Int:
		return v != 0, nil
	case *BigInt:
		return v.V.Sign() != 0, nil
	case Float:
		return v != 0, nil
	case Complex:
		return v != 0, nil
	case Str:
		return len(v) > 0, nil
	case Bytes:
		return len(v) > 0, nil
	case Tuple:
		return len(v) > 0, nil
	case *List:
		return len(v.Items) > 0, nil
	case *Dict:
		return v.Len() > 0, nil
	case *Set:
		return v.Len() > 0, nil
	case *Range:
		return v.Len() > 0, nil
	case *Instance:
		for _, name := range []string{"__bool__", "__nonzero__"} {
			if m, ok := e.userSpecial(v, name); ok {
				ret, err := e.call(m, nil, nil)
				if err != nil {
					return false, err
				}
				b, ok := ret.(Bool)
				if !ok {
					return false, NewError(TypeErrorClass, "%s should return bool, returned %s", name, TypeName(ret))
				}
				return bool(b), nil
			}
		}
		if _, ok := e.userSpecial(v, "__len__"); ok {
			n, err := e.Len(v)
			return n > 0, err
		}
	}
	return true, nil
}

func (e *Engine) Len(v Value) (int, error) {
	switch v := v.(type) {
	case Str:
		return len([]rune(string(v))), nil
	case Bytes:
		return len(v), nil
	case Tuple:
		return len(v), nil
	case *List:
		return len(v.Items), nil
	case *Dict:
		return v.Len(), nil
	case *Set:
		return v.Len(), nil
	case *Range:
		return int(v.Len()), nil
	}
	if m, ok := e.userSpecial(v, "__len__"); ok {
		ret, err := e.call(m, nil, nil)
		if err != nil {
			return 0, err
		}
		n, ok := asInt64(ret)
		if !ok {
			return 0, NewError(TypeErrorClass, "'%s' object cannot be interpreted as an integer", TypeName(ret))
		}
		if n < 0 {
			return 0, NewError(ValueErrorClass, "__len__() should return >= 0")
		}
		return int(n), nil
	}
	return 0, NewError(TypeErrorClass, "object of type '%s' has no len()", TypeName(v))
}
