package pyvm

import (
	"bytes"
	"strings"
)

var compareMethods = map[string][2]string{
	"<":  {"__lt__", "__gt__"},
	"<=": {"__le__", "__ge__"},
	"==": {"__eq__", "__eq__"},
	"!=": {"__ne__", "__ne__"},
	">":  {"__gt__", "__lt__"},
	">=": {"__ge__", "__le__"},
}

// Compare evaluates a COMPARE_OP operator.
func (e *Engine) Compare(op string, a, b Value) (Value, error) {
	switch op {
	case "is":
		return Bool(identical(a, b)), nil
	case "is not":
		return Bool(!identical(a, b)), nil
	case "in", "not in":
		ok, err := e.Contains(b, a)
		if err != nil {
			return nil, err
		}
		return Bool(ok == (op == "in")), nil
	case "exception match":
		ok, err := exceptionMatch(a, b)
		if err != nil {
			return nil, err
		}
		return Bool(ok), nil
	}
	if _, ok := compareMethods[op]; !ok {
		return nil, internalf(ErrBadOperand, "compare op %q", op)
	}
	return e.RichCompare(op, a, b)
}

func exceptionMatch(exc, spec Value) (bool, error) {
	switch s := spec.(type) {
	case Tuple:
		for _, item := range s {
			ok, err := exceptionMatch(exc, item)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *Class:
		if !s.IsSubclass(BaseExceptionClass) {
			break
		}
		cls, ok := exc.(*Class)
		if !ok {
			cls = exc.Type()
		}
		return cls.IsSubclass(s), nil
	}
	return false, NewError(TypeErrorClass, "catching classes that do not inherit from BaseException is not allowed")
}

func (e *Engine) RichCompare(op string, a, b Value) (Value, error) {
	ta, tb := a.Type(), b.Type()
	if !ta.builtin || !tb.builtin {
		names := compareMethods[op]
		ma, _, okA := ta.Lookup(names[0])
		mb, _, okB := tb.Lookup(names[1])
		okA = okA && ma != None
		okB = okB && mb != None
		if okB && tb != ta && tb.IsSubclass(ta) {
			if v, done, err := e.callOperator(mb, b, a); done {
				return v, err
			}
			okB = false
		}
		if okA {
			if v, done, err := e.callOperator(ma, a, b); done {
				return v, err
			}
		}
		if okB {
			if v, done, err := e.callOperator(mb, b, a); done {
				return v, err
			}
		}
		switch op {
		case "==":
			return Bool(identical(a, b)), nil
		case "!=":
			if _, _, ok := ta.Lookup("__eq__"); ok && !ta.builtin {
				eq, err := e.RichCompare("==", a, b)
				if err != nil {
					return nil, err
				}
				t, err := e.Truth(eq)
				return Bool(!t), err
			}
			return Bool(!identical(a, b)), nil
		}
		return nil, orderingError(op, a, b)
	}
	ret, err := e.builtinCompare(op, a, b)
	if err != nil {
		return nil, err
	}
	return Bool(ret), nil
}

func orderingError(op string, a, b Value) error {
	return NewError(TypeErrorClass, "'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))
}

func cmpResult(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func (e *Engine) builtinCompare(op string, a, b Value) (bool, error) {
	if _, ok := numericRank(a); ok {
		if _, ok := numericRank(b); ok {
			_, ca := a.(Complex)
			_, cb := b.(Complex)
			if ca || cb {
				if op != "==" && op != "!=" {
					return false, orderingError(op, a, b)
				}
				eq, _ := numEqual(a, b)
				return eq == (op == "=="), nil
			}
			c := numCompare(a, b)
			if c == 2 {
				return op == "!=", nil
			}
			return cmpResult(op, c), nil
		}
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return cmpResult(op, strings.Compare(string(x), string(y))), nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return cmpResult(op, bytes.Compare(x, y)), nil
		}
	case Tuple:
		if y, ok := b.(Tuple); ok {
			return e.compareSequences(op, x, y)
		}
	case *List:
		if y, ok := b.(*List); ok {
			return e.compareSequences(op, x.Items, y.Items)
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			switch op {
			case "==":
				return x.Len() == y.Len() && x.isSubset(y), nil
			case "!=":
				return x.Len() != y.Len() || !x.isSubset(y), nil
			case "<=":
				return x.isSubset(y), nil
			case "<":
				return x.Len() < y.Len() && x.isSubset(y), nil
			case ">=":
				return y.isSubset(x), nil
			case ">":
				return y.Len() < x.Len() && y.isSubset(x), nil
			}
		}
	case *Dict:
		if y, ok := b.(*Dict); ok && (op == "==" || op == "!=") {
			eq, err := e.dictEqual(x, y)
			return eq == (op == "=="), err
		}
	case *Range:
		if y, ok := b.(*Range); ok && (op == "==" || op == "!=") {
			eq := x.Len() == y.Len() && (x.Len() == 0 || x.Start == y.Start && (x.Len() == 1 || x.Step == y.Step))
			return eq == (op == "=="), nil
		}
	}
	switch op {
	case "==":
		return identical(a, b), nil
	case "!=":
		return !identical(a, b), nil
	}
	return false, orderingError(op, a, b)
}

func (e *Engine) compareSequences(op string, x, y []Value) (bool, error) {
	n := min(len(x), len(y))
	for i := range n {
		if identical(x[i], y[i]) {
			continue
		}
		eq, err := e.Equal(x[i], y[i])
		if err != nil {
			return false, err
		}
		if eq {
			continue
		}
		switch op {
		case "==":
			return false, nil
		case "!=":
			return true, nil
		}
		v, err := e.RichCompare(op, x[i], y[i])
		if err != nil {
			return false, err
		}
		return e.Truth(v)
	}
	return cmpResult(op, len(x)-len(y)), nil
}

func (e *Engine) dictEqual(x, y *Dict) (bool, error) {
	if x.Len() != y.Len() {
		return false, nil
	}
	for k, v := range x.All() {
		w, ok, err := y.Get(k)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		eq, err := e.Equal(v, w)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Equal is a == b as a Go bool.
func (e *Engine) Equal(a, b Value) (bool, error) {
	if identical(a, b) {
		return true, nil
	}
	v, err := e.RichCompare("==", a, b)
	if err != nil {
		return false, err
	}
	return e.Truth(v)
}
