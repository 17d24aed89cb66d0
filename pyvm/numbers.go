package pyvm

import (
	"math"
	"math/big"
	"math/cmplx"
)

type numRank uint8

const (
	rankInt numRank = iota
	rankBig
	rankFloat
	rankComplex
)

func numericRank(v Value) (numRank, bool) {
	switch v.(type) {
	case Bool, Int:
		return rankInt, true
	case *BigInt:
		return rankBig, true
	case Float:
		return rankFloat, true
	case Complex:
		return rankComplex, true
	}
	return 0, false
}

func asInt64(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toBig(v Value) *big.Int {
	switch v := v.(type) {
	case *BigInt:
		return v.V
	default:
		i, _ := asInt64(v)
		return big.NewInt(i)
	}
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Float:
		return float64(v), true
	case *BigInt:
		f, _ := new(big.Float).SetInt(v.V).Float64()
		return f, true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toComplex(v Value) complex128 {
	if c, ok := v.(Complex); ok {
		return complex128(c)
	}
	f, _ := toFloat(v)
	return complex(f, 0)
}

// numEqual compares two numbers across the numeric tower; ok is false unless both are numbers.
func numEqual(a, b Value) (eq bool, ok bool) {
	ra, ok1 := numericRank(a)
	rb, ok2 := numericRank(b)
	if !ok1 || !ok2 {
		return false, false
	}
	switch max(ra, rb) {
	case rankInt:
		x, _ := asInt64(a)
		y, _ := asInt64(b)
		return x == y, true
	case rankBig:
		return toBig(a).Cmp(toBig(b)) == 0, true
	case rankFloat:
		if ra == rankBig || rb == rankBig {
			return numCompare(a, b) == 0, true
		}
		x, _ := toFloat(a)
		y, _ := toFloat(b)
		return x == y, true
	}
	return toComplex(a) == toComplex(b), true
}

// numCompare orders two real numbers; NaN compares as unordered and returns 2.
func numCompare(a, b Value) int {
	ra, _ := numericRank(a)
	rb, _ := numericRank(b)
	switch max(ra, rb) {
	case rankInt:
		x, _ := asInt64(a)
		y, _ := asInt64(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case rankBig:
		return toBig(a).Cmp(toBig(b))
	}
	x := bigFloatOf(a)
	y := bigFloatOf(b)
	if x == nil || y == nil {
		return 2
	}
	return x.Cmp(y)
}

func bigFloatOf(v Value) *big.Float {
	switch v := v.(type) {
	case Float:
		if math.IsNaN(float64(v)) {
			return nil
		}
		return new(big.Float).SetFloat64(float64(v))
	case *BigInt:
		return new(big.Float).SetInt(v.V)
	}
	i, _ := asInt64(v)
	return new(big.Float).SetInt64(i)
}

func intArith(op string, x, y int64) (Value, error) {
	switch op {
	case "+":
		s := x + y
		if (x^s)&(y^s) < 0 {
			return MakeBig(new(big.Int).Add(big.NewInt(x), big.NewInt(y))), nil
		}
		return Int(s), nil
	case "-":
		d := x - y
		if (x^y)&(x^d) < 0 {
			return MakeBig(new(big.Int).Sub(big.NewInt(x), big.NewInt(y))), nil
		}
		return Int(d), nil
	case "*":
		if x == 0 || y == 0 {
			return Int(0), nil
		}
		p := x * y
		if p/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return MakeBig(new(big.Int).Mul(big.NewInt(x), big.NewInt(y))), nil
		}
		return Int(p), nil
	case "//", "div":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "integer division or modulo by zero")
		}
		if x == math.MinInt64 && y == -1 {
			return MakeBig(new(big.Int).Neg(big.NewInt(x))), nil
		}
		q := x / y
		if x%y != 0 && (x < 0) != (y < 0) {
			q--
		}
		return Int(q), nil
	case "%":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "integer division or modulo by zero")
		}
		if y == -1 {
			return Int(0), nil
		}
		r := x % y
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return Int(r), nil
	case "/":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "division by zero")
		}
		return Float(float64(x) / float64(y)), nil
	case "**":
		return bigArith(op, big.NewInt(x), big.NewInt(y))
	case "<<":
		if y < 0 {
			return nil, NewError(ValueErrorClass, "negative shift count")
		}
		if y < 62 && x>>(62-y) == 0 && x >= 0 {
			return Int(x << y), nil
		}
		return bigArith(op, big.NewInt(x), big.NewInt(y))
	case ">>":
		if y < 0 {
			return nil, NewError(ValueErrorClass, "negative shift count")
		}
		return Int(x >> min(y, 63)), nil
	case "&":
		return Int(x & y), nil
	case "|":
		return Int(x | y), nil
	case "^":
		return Int(x ^ y), nil
	}
	return nil, nil
}

func bigArith(op string, x, y *big.Int) (Value, error) {
	switch op {
	case "+":
		return MakeBig(new(big.Int).Add(x, y)), nil
	case "-":
		return MakeBig(new(big.Int).Sub(x, y)), nil
	case "*":
		return MakeBig(new(big.Int).Mul(x, y)), nil
	case "//", "div", "%":
		if y.Sign() == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "integer division or modulo by zero")
		}
		q, r := new(big.Int).QuoRem(x, y, new(big.Int))
		if r.Sign() != 0 && r.Sign() != y.Sign() {
			q.Sub(q, big.NewInt(1))
			r.Add(r, y)
		}
		if op == "%" {
			return MakeBig(r), nil
		}
		return MakeBig(q), nil
	case "/":
		if y.Sign() == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "division by zero")
		}
		f, _ := new(big.Rat).SetFrac(x, y).Float64()
		return Float(f), nil
	case "**":
		if y.Sign() < 0 {
			fx, _ := new(big.Float).SetInt(x).Float64()
			fy, _ := new(big.Float).SetInt(y).Float64()
			return floatArith(op, fx, fy)
		}
		if y.BitLen() > 32 && x.CmpAbs(big.NewInt(1)) > 0 {
			return nil, NewError(OverflowErrorClass, "exponent too large")
		}
		return MakeBig(new(big.Int).Exp(x, y, nil)), nil
	case "<<":
		if y.Sign() < 0 {
			return nil, NewError(ValueErrorClass, "negative shift count")
		}
		if !y.IsInt64() || y.Int64() > 1<<24 {
			return nil, NewError(OverflowErrorClass, "too many digits in integer")
		}
		return MakeBig(new(big.Int).Lsh(x, uint(y.Int64()))), nil
	case ">>":
		if y.Sign() < 0 {
			return nil, NewError(ValueErrorClass, "negative shift count")
		}
		if !y.IsInt64() {
			if x.Sign() < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		return MakeBig(new(big.Int).Rsh(x, uint(y.Int64()))), nil
	case "&":
		return MakeBig(new(big.Int).And(x, y)), nil
	case "|":
		return MakeBig(new(big.Int).Or(x, y)), nil
	case "^":
		return MakeBig(new(big.Int).Xor(x, y)), nil
	}
	return nil, nil
}

func floatArith(op string, x, y float64) (Value, error) {
	switch op {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/", "div":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "float division by zero")
		}
		return Float(x / y), nil
	case "//":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "float divmod()")
		}
		return Float(math.Floor(x / y)), nil
	case "%":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "float modulo")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return Float(r), nil
	case "**":
		if x == 0 && y < 0 {
			return nil, NewError(ZeroDivisionErrorClass, "0.0 cannot be raised to a negative power")
		}
		if x < 0 && y != math.Trunc(y) {
			return Complex(cmplx.Pow(complex(x, 0), complex(y, 0))), nil
		}
		r := math.Pow(x, y)
		if math.IsInf(r, 0) && !math.IsInf(x, 0) {
			return nil, NewError(OverflowErrorClass, "(34, 'Numerical result out of range')")
		}
		return Float(r), nil
	}
	return nil, nil
}

func complexArith(op string, x, y complex128) (Value, error) {
	switch op {
	case "+":
		return Complex(x + y), nil
	case "-":
		return Complex(x - y), nil
	case "*":
		return Complex(x * y), nil
	case "/", "div":
		if y == 0 {
			return nil, NewError(ZeroDivisionErrorClass, "complex division by zero")
		}
		return Complex(x / y), nil
	case "**":
		if x == 0 && (real(y) < 0 || imag(y) != 0) {
			return nil, NewError(ZeroDivisionErrorClass, "0.0 to a negative or complex power")
		}
		return Complex(cmplx.Pow(x, y)), nil
	case "//", "%":
		return nil, NewError(TypeErrorClass, "can't take floor or mod of complex number.")
	}
	return nil, nil
}

// numArith applies op to two numbers; a nil Value with nil error means the operator does not apply.
func numArith(op string, a, b Value) (Value, error) {
	ra, ok1 := numericRank(a)
	rb, ok2 := numericRank(b)
	if !ok1 || !ok2 {
		return nil, nil
	}
	if op == "&" || op == "|" || op == "^" {
		if x, ok := a.(Bool); ok {
			if y, ok := b.(Bool); ok {
				switch op {
				case "&":
					return x && y, nil
				case "|":
					return x || y, nil
				}
				return Bool(x != y), nil
			}
		}
	}
	rank := max(ra, rb)
	switch op {
	case "&", "|", "^", "<<", ">>":
		if rank >= rankFloat {
			return nil, nil
		}
	case "div":
		if rank <= rankBig {
			op = "//"
		}
	}
	switch rank {
	case rankInt:
		x, _ := asInt64(a)
		y, _ := asInt64(b)
		return intArith(op, x, y)
	case rankBig:
		return bigArith(op, toBig(a), toBig(b))
	case rankFloat:
		x, ok := toFloat(a)
		y, ok2 := toFloat(b)
		if !ok || !ok2 || math.IsInf(x, 0) && !isFloat(a) || math.IsInf(y, 0) && !isFloat(b) {
			return nil, NewError(OverflowErrorClass, "int too large to convert to float")
		}
		return floatArith(op, x, y)
	}
	return complexArith(op, toComplex(a), toComplex(b))
}

func isFloat(v Value) bool {
	_, ok := v.(Float)
	return ok
}

func numUnary(op string, v Value) (Value, bool) {
	switch v := v.(type) {
	case Bool:
		i, _ := asInt64(v)
		return numUnary(op, Int(i))
	case Int:
		switch op {
		case "-":
			if v == math.MinInt64 {
				return MakeBig(new(big.Int).Neg(big.NewInt(int64(v)))), true
			}
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		}
	case *BigInt:
		switch op {
		case "-":
			return MakeBig(new(big.Int).Neg(v.V)), true
		case "+":
			return v, true
		case "~":
			return MakeBig(new(big.Int).Not(v.V)), true
		}
	case Float:
		switch op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	case Complex:
		switch op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	}
	return nil, false
}
