package pyvm

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

func init() {
	defineNew(IntClass, intNew)
	defineNew(BoolClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("bool", args, kwargs, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return False, nil
		}
		t, err := e.Truth(args[0])
		return Bool(t), err
	})
	defineNew(FloatClass, floatNew)
	defineNew(ComplexClass, complexNew)

	defineMethod(IntClass, "bit_length", func(e *Engine, self Value, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("bit_length", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		n, ok := intValue(self)
		if !ok {
			return nil, NewError(TypeErrorClass, "descriptor 'bit_length' requires a 'int' object but received a '%s'", TypeName(self))
		}
		return Int(new(big.Int).Abs(n).BitLen()), nil
	})
	defineMethod(IntClass, "conjugate", func(e *Engine, self Value, args []Value, kwargs *Dict) (Value, error) {
		return self, argCount("conjugate", args, kwargs, 0, 0)
	})
	defineMethod(FloatClass, "is_integer", func(e *Engine, self Float, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("is_integer", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		f := float64(self)
		return Bool(!math.IsInf(f, 0) && f == math.Trunc(f)), nil
	})
	defineMethod(ComplexClass, "conjugate", func(e *Engine, self Complex, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("conjugate", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		return Complex(complex(real(self), -imag(self))), nil
	})
}

func intValue(v Value) (*big.Int, bool) {
	switch v.(type) {
	case Bool, Int, *BigInt:
		return toBig(v), true
	}
	return nil, false
}

func intNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("int", args, kwargs, 0, "x", "base")
	if err != nil {
		return nil, err
	}
	x, baseArg := opts[0], opts[1]
	if x == nil {
		if baseArg != nil {
			return nil, NewError(TypeErrorClass, "int() missing string argument")
		}
		return Int(0), nil
	}
	if baseArg != nil {
		base, err := intArg("int", baseArg)
		if err != nil {
			return nil, err
		}
		if base != 0 && (base < 2 || base > 36) {
			return nil, NewError(ValueErrorClass, "int() base must be >= 2 and <= 36, or 0")
		}
		switch s := x.(type) {
		case Str:
			return parseInt(string(s), int(base), x)
		case Bytes:
			return parseInt(string(s), int(base), x)
		}
		return nil, NewError(TypeErrorClass, "int() can't convert non-string with explicit base")
	}
	switch v := x.(type) {
	case Bool:
		n, _ := asInt64(v)
		return Int(n), nil
	case Int, *BigInt:
		return v, nil
	case Float:
		return floatToInt(float64(v))
	case Str:
		return parseInt(string(v), 10, x)
	case Bytes:
		return parseInt(string(v), 10, x)
	}
	for _, name := range []string{"__int__", "__index__", "__trunc__"} {
		m, ok := e.userSpecial(x, name)
		if !ok {
			continue
		}
		ret, err := e.call(m, nil, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := intValue(ret); !ok {
			return nil, NewError(TypeErrorClass, "%s returned non-int (type %s)", name, TypeName(ret))
		}
		return ret, nil
	}
	return nil, NewError(TypeErrorClass, "int() argument must be a string, a bytes-like object or a number, not '%s'", TypeName(x))
}

// parseInt follows the integer literal rules of int(): optional sign,
// optional radix prefix matching base, underscores between digits.
func parseInt(s string, base int, orig Value) (Value, error) {
	givenBase := base
	invalid := func() error {
		return NewError(ValueErrorClass, "invalid literal for int() with base %d: %s", givenBase, reprSimple(orig))
	}
	t := strings.TrimSpace(s)
	neg := false
	if t != "" && (t[0] == '+' || t[0] == '-') {
		neg = t[0] == '-'
		t = t[1:]
	}
	if len(t) >= 2 && t[0] == '0' {
		prefixBase := map[byte]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}[t[1]]
		if prefixBase != 0 && (base == 0 || base == prefixBase) {
			base = prefixBase
			t = strings.TrimPrefix(t[2:], "_")
		}
	}
	if base == 0 {
		if len(t) > 1 && t[0] == '0' && strings.Trim(t, "0_") != "" {
			return nil, invalid()
		}
		base = 10
	}
	if t == "" || t[0] == '_' || t[len(t)-1] == '_' || strings.Contains(t, "__") {
		return nil, invalid()
	}
	n, ok := new(big.Int).SetString(strings.ReplaceAll(t, "_", ""), base)
	if !ok {
		return nil, invalid()
	}
	if neg {
		n.Neg(n)
	}
	return MakeBig(n), nil
}

func floatNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("float", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Float(0), nil
	}
	switch v := args[0].(type) {
	case Float:
		return v, nil
	case Bool, Int:
		n, _ := asInt64(v)
		return Float(n), nil
	case *BigInt:
		f, _ := toFloat(v)
		if math.IsInf(f, 0) {
			return nil, NewError(OverflowErrorClass, "int too large to convert to float")
		}
		return Float(f), nil
	case Str:
		return parseFloat(string(v), v)
	case Bytes:
		return parseFloat(string(v), v)
	}
	if m, ok := e.userSpecial(args[0], "__float__"); ok {
		ret, err := e.call(m, nil, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := ret.(Float); !ok {
			return nil, NewError(TypeErrorClass, "__float__ returned non-float (type %s)", TypeName(ret))
		}
		return ret, nil
	}
	return nil, NewError(TypeErrorClass, "float() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func parseFloat(s string, orig Value) (Value, error) {
	t := strings.TrimSpace(s)
	body := strings.TrimLeft(t, "+-")
	switch strings.ToLower(body) {
	case "inf", "infinity":
		if strings.HasPrefix(t, "-") {
			return Float(math.Inf(-1)), nil
		}
		return Float(math.Inf(1)), nil
	case "nan":
		return Float(math.NaN()), nil
	}
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") || strings.Contains(body, "__") ||
		strings.HasPrefix(body, "_") || strings.HasSuffix(body, "_") {
		return nil, NewError(ValueErrorClass, "could not convert string to float: %s", reprSimple(orig))
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(t, "_", ""), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Float(f), nil
		}
		return nil, NewError(ValueErrorClass, "could not convert string to float: %s", reprSimple(orig))
	}
	return Float(f), nil
}

func complexNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("complex", args, kwargs, 0, "real", "imag")
	if err != nil {
		return nil, err
	}
	re, im := opts[0], opts[1]
	if s, ok := re.(Str); ok {
		if im != nil {
			return nil, NewError(TypeErrorClass, "complex() can't take second arg if first is a string")
		}
		t := strings.TrimSpace(string(s))
		t = strings.TrimSuffix(strings.TrimPrefix(t, "("), ")")
		c, err := strconv.ParseComplex(strings.ReplaceAll(strings.ReplaceAll(t, "j", "i"), "J", "i"), 128)
		if err != nil {
			return nil, NewError(ValueErrorClass, "complex() arg is a malformed string")
		}
		return Complex(c), nil
	}
	part := func(v Value, which string) (complex128, error) {
		switch x := v.(type) {
		case nil:
			return 0, nil
		case Complex:
			return complex128(x), nil
		}
		f, ok := toFloat(v)
		if !ok {
			return 0, NewError(TypeErrorClass, "complex() %s must be a number, not '%s'", which, TypeName(v))
		}
		return complex(f, 0), nil
	}
	r, err := part(re, "first argument")
	if err != nil {
		return nil, err
	}
	i, err := part(im, "second argument")
	if err != nil {
		return nil, err
	}
	return Complex(r + i*1i), nil
}
