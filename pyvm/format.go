package pyvm

import (
	"fmt"
	"strings"

	"github.com/reusee/pyrun/pycode"
)

// reprSimple is repr without calling into interpreted code.
func reprSimple(v Value) string {
	s, err := (*Engine)(nil).Repr(v)
	if err != nil {
		return "<" + TypeName(v) + ">"
	}
	return s
}

// Describe is repr without an engine; interpreted __repr__ methods are not called.
func Describe(v Value) string {
	return reprSimple(v)
}

// describe is str without calling into interpreted code.
func describe(v Value) string {
	s, err := (*Engine)(nil).Str(v)
	if err != nil {
		return "<" + TypeName(v) + ">"
	}
	return s
}

// Repr is repr(v). A nil engine formats without calling user methods.
func (e *Engine) Repr(v Value) (string, error) {
	if e != nil && v != nil {
		if m, ok := e.userSpecial(v, "__repr__"); ok {
			return e.callStringMethod(m, "__repr__")
		}
	}
	switch v := v.(type) {
	case nil:
		return "<NULL>", nil
	case NoneType:
		return "None", nil
	case Bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case Int:
		return fmt.Sprint(int64(v)), nil
	case *BigInt:
		return v.V.String(), nil
	case Float:
		return pycode.FormatFloat(float64(v)), nil
	case Complex:
		return pycode.FormatComplex(complex128(v)), nil
	case Str:
		return pycode.QuoteStr(string(v)), nil
	case Bytes:
		return "b" + quoteBytes(v), nil
	case EllipsisType:
		return "Ellipsis", nil
	case NotImplementedType:
		return "NotImplemented", nil
	case Tuple:
		if len(v) == 1 {
			s, err := e.Repr(v[0])
			return "(" + s + ",)", err
		}
		return e.reprSeq("(", ")", v, v)
	case *List:
		return e.reprSeq("[", "]", v.Items, v)
	case *Set:
		if v.Len() == 0 {
			return TypeName(v) + "()", nil
		}
		s, err := e.reprSeq("{", "}", v.Items(), v)
		if v.Frozen {
			s = "frozenset(" + s + ")"
		}
		return s, err
	case *Dict:
		return e.reprDict(v)
	case *Range:
		if v.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", v.Start, v.Stop), nil
		}
		return fmt.Sprintf("range(%d, %d, %d)", v.Start, v.Stop, v.Step), nil
	case *Slice:
		parts, err := e.reprAll([]Value{v.Start, v.Stop, v.Step})
		if err != nil {
			return "", err
		}
		return "slice(" + strings.Join(parts, ", ") + ")", nil
	case *Class:
		if v.builtin {
			return "<class '" + v.Name + "'>", nil
		}
		return "<class '" + v.moduleName() + "." + v.Name + "'>", nil
	case *Function:
		return fmt.Sprintf("<function %s at %p>", v.Qualname, v), nil
	case *Builtin:
		return "<built-in function " + v.Name + ">", nil
	case *BoundMethod:
		self, err := e.Repr(v.Self)
		if err != nil {
			return "", err
		}
		name := "?"
		switch fn := v.Func.(type) {
		case *Function:
			name = fn.Qualname
		case *Builtin:
			return "<built-in method " + fn.Name + " of " + TypeName(v.Self) + " object>", nil
		}
		return "<bound method " + name + " of " + self + ">", nil
	case *Module:
		return "<module '" + v.Name + "'>", nil
	case *Generator:
		return fmt.Sprintf("<generator object %s at %p>", v.Name, v), nil
	case *Code:
		return fmt.Sprintf("<code object %s at %p, file \"%s\", line %d>", v.Unit.Name, v, v.Unit.Filename, v.Unit.FirstLine), nil
	case *Cell:
		if v.Value == nil {
			return fmt.Sprintf("<cell at %p: empty>", v), nil
		}
		return fmt.Sprintf("<cell at %p: %s object>", v, TypeName(v.Value)), nil
	case *Super:
		return "<super: <class '" + v.Class.Name + "'>, <" + v.SelfClass.Name + " object>>", nil
	case *Property, *StaticMethod, *ClassMethod, *Iterator, *Traceback:
		return fmt.Sprintf("<%s object at %p>", TypeName(v), v), nil
	case Why:
		return "<why " + v.String() + ">", nil
	case *Instance:
		if isException(v) {
			args := exceptionArgs(v)
			if len(args) == 1 {
				s, err := e.Repr(args[0])
				return v.Class.Name + "(" + s + ")", err
			}
			return e.reprSeq(v.Class.Name+"(", ")", args, v)
		}
		return fmt.Sprintf("<%s.%s object at %p>", v.Class.moduleName(), v.Class.Name, v), nil
	}
	return fmt.Sprintf("<%s object>", TypeName(v)), nil
}

func (e *Engine) callStringMethod(m Value, name string) (string, error) {
	ret, err := e.call(m, nil, nil)
	if err != nil {
		return "", err
	}
	s, ok := ret.(Str)
	if !ok {
		return "", NewError(TypeErrorClass, "%s returned non-string (type %s)", name, TypeName(ret))
	}
	return string(s), nil
}

func quoteBytes(b []byte) string {
	quote := byte('\'')
	if strings.IndexByte(string(b), '\'') >= 0 && strings.IndexByte(string(b), '"') < 0 {
		quote = '"'
	}
	var s strings.Builder
	s.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == quote || c == '\\':
			s.WriteByte('\\')
			s.WriteByte(c)
		case c == '\n':
			s.WriteString(`\n`)
		case c == '\r':
			s.WriteString(`\r`)
		case c == '\t':
			s.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&s, `\x%02x`, c)
		default:
			s.WriteByte(c)
		}
	}
	s.WriteByte(quote)
	return s.String()
}

// enterRepr guards containers against infinite recursion.
func (e *Engine) enterRepr(container Value) (bool, func()) {
	if e == nil {
		return true, func() {}
	}
	switch container.(type) {
	case Tuple:
		return true, func() {}
	}
	if e.reprActive[container] {
		return false, nil
	}
	e.reprActive[container] = true
	return true, func() {
		delete(e.reprActive, container)
	}
}

func (e *Engine) reprAll(vs []Value) ([]string, error) {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s, err := e.Repr(v)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	return parts, nil
}

func (e *Engine) reprSeq(open, close string, items []Value, container Value) (string, error) {
	ok, leave := e.enterRepr(container)
	if !ok {
		return open + "..." + close, nil
	}
	defer leave()
	parts, err := e.reprAll(items)
	if err != nil {
		return "", err
	}
	return open + strings.Join(parts, ", ") + close, nil
}

func (e *Engine) reprDict(d *Dict) (string, error) {
	ok, leave := e.enterRepr(d)
	if !ok {
		return "{...}", nil
	}
	defer leave()
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for k, v := range d.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		ks, err := e.Repr(k)
		if err != nil {
			return "", err
		}
		vs, err := e.Repr(v)
		if err != nil {
			return "", err
		}
		b.WriteString(ks)
		b.WriteString(": ")
		b.WriteString(vs)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Str is str(v).
func (e *Engine) Str(v Value) (string, error) {
	if e != nil && v != nil {
		if m, ok := e.userSpecial(v, "__str__"); ok {
			return e.callStringMethod(m, "__str__")
		}
		if _, ok := e.userSpecial(v, "__repr__"); ok {
			return e.Repr(v)
		}
	}
	switch v := v.(type) {
	case Str:
		return string(v), nil
	case *Instance:
		if isException(v) {
			args := exceptionArgs(v)
			switch len(args) {
			case 0:
				return "", nil
			case 1:
				if v.Class.IsSubclass(KeyErrorClass) {
					return e.Repr(args[0])
				}
				return e.Str(args[0])
			}
			return e.Repr(args)
		}
	}
	return e.Repr(v)
}

// Ascii is repr with non-ASCII characters escaped.
func (e *Engine) Ascii(v Value) (string, error) {
	s, err := e.Repr(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			fmt.Fprintf(&b, `\U%08x`, r)
		}
	}
	return b.String(), nil
}
