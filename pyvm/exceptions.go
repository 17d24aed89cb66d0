package pyvm

import (
	"errors"
	"fmt"
)

// ExceptionState is the (type, value, traceback) triple of one exception.
type ExceptionState struct {
	Type      *Class
	Value     Value
	Traceback *Traceback
}

func (s ExceptionState) IsZero() bool {
	return s.Type == nil
}

func (s ExceptionState) String() string {
	if s.Type == nil {
		return "<no exception>"
	}
	msg := exceptionMessage(s.Value)
	if msg == "" {
		return s.Type.Name
	}
	return s.Type.Name + ": " + msg
}

// Traceback is one entry of a traceback chain, outermost frame first.
type Traceback struct {
	Name     string
	Filename string
	Line     int
	Next     *Traceback
}

func (*Traceback) Type() *Class { return TracebackClass }

// PyError carries an interpreted exception through Go error returns.
type PyError struct {
	Exception ExceptionState
}

func (p *PyError) Error() string {
	return p.Exception.String()
}

// Matches reports whether the exception is an instance of cls.
func (p *PyError) Matches(cls *Class) bool {
	return p.Exception.Type != nil && p.Exception.Type.IsSubclass(cls)
}

// NewError creates an exception of class cls with a formatted message as its only argument.
func NewError(cls *Class, format string, args ...any) *PyError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if msg == "" {
		return newException(cls)
	}
	return newException(cls, Str(msg))
}

func newException(cls *Class, args ...Value) *PyError {
	inst := NewInstance(cls)
	initException(inst, Tuple(args))
	return &PyError{
		Exception: ExceptionState{
			Type:  cls,
			Value: inst,
		},
	}
}

func initException(inst *Instance, args Tuple) {
	inst.Dict.SetStr("args", args)
	if inst.Class.IsSubclass(StopIterationClass) {
		var value Value = None
		if len(args) > 0 {
			value = args[0]
		}
		inst.Dict.SetStr("value", value)
	}
}

func stopIteration(value Value) *PyError {
	if value == None {
		return newException(StopIterationClass)
	}
	return newException(StopIterationClass, value)
}

// StopIterationValue returns the value carried by a StopIteration error.
func StopIterationValue(err error) (Value, bool) {
	var pe *PyError
	if !errors.As(err, &pe) || !pe.Matches(StopIterationClass) {
		return nil, false
	}
	if inst, ok := pe.Exception.Value.(*Instance); ok {
		if v, ok := inst.Dict.GetStr("value"); ok {
			return v, true
		}
	}
	return None, true
}

func isException(v Value) bool {
	inst, ok := v.(*Instance)
	return ok && inst.Class.IsSubclass(BaseExceptionClass)
}

func isExceptionClass(v Value) bool {
	c, ok := v.(*Class)
	return ok && c.IsSubclass(BaseExceptionClass)
}

func exceptionArgs(v Value) Tuple {
	if inst, ok := v.(*Instance); ok {
		if args, ok := inst.Dict.GetStr("args"); ok {
			if t, ok := args.(Tuple); ok {
				return t
			}
		}
	}
	return nil
}

func exceptionAttr(v Value, name string) Value {
	if inst, ok := v.(*Instance); ok {
		if attr, ok := inst.Dict.GetStr(name); ok {
			return attr
		}
	}
	return None
}

// exceptionMessage is str(exc) for exceptions without a custom __str__.
func exceptionMessage(v Value) string {
	inst, ok := v.(*Instance)
	if !ok {
		if v == nil {
			return ""
		}
		return describe(v)
	}
	args := exceptionArgs(inst)
	switch len(args) {
	case 0:
		return ""
	case 1:
		if inst.Class.IsSubclass(KeyErrorClass) {
			return reprSimple(args[0])
		}
		return describe(args[0])
	}
	return reprSimple(args)
}

func (s ExceptionState) toStack() (tb, val, typ Value) {
	if s.Type == nil {
		return None, None, None
	}
	tb = None
	if s.Traceback != nil {
		tb = s.Traceback
	}
	val = s.Value
	if val == nil {
		val = None
	}
	return tb, val, s.Type
}

func exceptionFromStack(tb, val, typ Value) ExceptionState {
	cls, ok := typ.(*Class)
	if !ok {
		return ExceptionState{}
	}
	s := ExceptionState{
		Type:  cls,
		Value: val,
	}
	if t, ok := tb.(*Traceback); ok {
		s.Traceback = t
	}
	return s
}
