package pyvm

import (
	"math/big"

	"github.com/reusee/pyrun/pycode"
)

// Value is any interpreted value.
type Value interface {
	Type() *Class
}

type NoneType struct{}

var None Value = NoneType{}

func (NoneType) Type() *Class { return NoneClass }

type Bool bool

const (
	True  = Bool(true)
	False = Bool(false)
)

func (Bool) Type() *Class { return BoolClass }

// Int is a machine-sized integer. Arithmetic that overflows promotes to *BigInt.
type Int int64

func (Int) Type() *Class { return IntClass }

// BigInt holds integers outside the int64 range. It is never used for values that fit in Int.
type BigInt struct {
	V *big.Int
}

func (*BigInt) Type() *Class { return IntClass }

func MakeBig(b *big.Int) Value {
	if b.IsInt64() {
		return Int(b.Int64())
	}
	return &BigInt{V: b}
}

type Float float64

func (Float) Type() *Class { return FloatClass }

type Complex complex128

func (Complex) Type() *Class { return ComplexClass }

type Str string

func (Str) Type() *Class { return StrClass }

type Bytes []byte

func (Bytes) Type() *Class { return BytesClass }

type Tuple []Value

func (Tuple) Type() *Class { return TupleClass }

type EllipsisType struct{}

var Ellipsis Value = EllipsisType{}

func (EllipsisType) Type() *Class { return EllipsisClass }

type NotImplementedType struct{}

var NotImplemented Value = NotImplementedType{}

func (NotImplementedType) Type() *Class { return NotImplementedClass }

type Slice struct {
	Start Value
	Stop  Value
	Step  Value
}

func (*Slice) Type() *Class { return SliceClass }

type Module struct {
	Name string
	Dict *Dict
}

func (*Module) Type() *Class { return ModuleClass }

// Code wraps a code unit loaded as a constant.
type Code struct {
	Unit *pycode.CodeUnit
}

func (*Code) Type() *Class { return CodeClass }

type Property struct {
	Get Value
	Set Value
	Del Value
	Doc Value
}

func (*Property) Type() *Class { return PropertyClass }

type StaticMethod struct {
	Func Value
}

func (*StaticMethod) Type() *Class { return StaticMethodClass }

type ClassMethod struct {
	Func Value
}

func (*ClassMethod) Type() *Class { return ClassMethodClass }

type Super struct {
	Class *Class
	Self  Value
	// SelfClass is the class the MRO search runs on: type(Self), or Self when it is a class.
	SelfClass *Class
}

func (*Super) Type() *Class { return SuperClass }

// Iterator is a host-implemented iterator.
type Iterator struct {
	Name string
	Next func() (Value, bool, error)
}

func (*Iterator) Type() *Class { return IteratorClass }

func TypeName(v Value) string {
	return v.Type().Name
}
