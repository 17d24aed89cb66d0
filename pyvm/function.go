package pyvm

import "github.com/reusee/pyrun/pycode"

type Function struct {
	Name        string
	Qualname    string
	Code        *pycode.CodeUnit
	Globals     *Dict
	Defaults    Tuple
	KwDefaults  *Dict
	Annotations *Dict
	Closure     []*Cell
	Doc         Value
	Dict        *Dict
}

func (*Function) Type() *Class { return FunctionClass }

func NewFunction(code *pycode.CodeUnit, globals *Dict) *Function {
	fn := &Function{
		Name:     code.Name,
		Qualname: code.Name,
		Code:     code,
		Globals:  globals,
		Doc:      None,
		Dict:     NewDict(),
	}
	if len(code.Consts) > 0 {
		if s, ok := code.Consts[0].(string); ok {
			fn.Doc = Str(s)
		}
	}
	return fn
}

type BoundMethod struct {
	Self Value
	Func Value
}

func (*BoundMethod) Type() *Class { return BoundMethodClass }

// Cell is a shared slot of a closure variable. A nil Value means empty.
type Cell struct {
	Value Value
}

func (*Cell) Type() *Class { return CellClass }

type BuiltinFunc func(e *Engine, args []Value, kwargs *Dict) (Value, error)

// Builtin is a host callable. Method builtins bind their receiver as the first argument.
type Builtin struct {
	Name   string
	Method bool
	Func   BuiltinFunc
}

func (*Builtin) Type() *Class { return BuiltinClass }

func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{
		Name: name,
		Func: fn,
	}
}

func newMethod(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{
		Name:   name,
		Method: true,
		Func:   fn,
	}
}
