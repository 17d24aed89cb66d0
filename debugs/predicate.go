package debugs

import (
	"fmt"

	"github.com/reusee/pyrun/pyvm"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predicate decides whether a trace event is kept.
type Predicate func(ev *pyvm.TraceEvent) (bool, error)

var predicateParams = []string{
	"kind", "opname", "operand", "line", "offset", "depth", "code",
}

// CompilePredicate compiles a starlark boolean expression over the event fields
// kind, opname, operand, line, offset, depth and code.
func CompilePredicate(expr string) (Predicate, error) {
	thread := &starlark.Thread{
		Name: "trace filter",
	}
	src := "lambda "
	for i, name := range predicateParams {
		if i > 0 {
			src += ", "
		}
		src += name
	}
	src += ": (" + expr + "\n)"

	value, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "<trace filter>", src, nil)
	if err != nil {
		return nil, fmt.Errorf("compile trace filter %q: %w", expr, err)
	}
	fn, ok := value.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("compile trace filter %q: not callable", expr)
	}

	return func(ev *pyvm.TraceEvent) (bool, error) {
		codeName := ""
		if ev.Frame != nil && ev.Frame.Code != nil {
			codeName = ev.Frame.Code.Name
		}
		args := starlark.Tuple{
			starlark.String(ev.Kind.String()),
			starlark.String(ev.Opname),
			operandValue(ev.Operand),
			starlark.MakeInt(ev.Line),
			starlark.MakeInt(ev.Offset),
			starlark.MakeInt(ev.Depth),
			starlark.String(codeName),
		}
		ret, err := starlark.Call(thread, fn, args, nil)
		if err != nil {
			return false, fmt.Errorf("trace filter %q: %w", expr, err)
		}
		return bool(ret.Truth()), nil
	}, nil
}

func operandValue(operand any) starlark.Value {
	switch operand := operand.(type) {
	case nil:
		return starlark.None
	case pyvm.Value:
		return FromValue(operand)
	case string:
		return starlark.String(operand)
	case int:
		return starlark.MakeInt(operand)
	}
	return starlark.String(fmt.Sprint(operand))
}
