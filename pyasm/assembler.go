package pyasm

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

// Index passes an operand as a raw table index, skipping symbolic resolution.
type Index int

type Params struct {
	Args    []string
	PosOnly int
	KwOnly  []string
	Varargs string
	Varkw   string
}

type Assembler struct {
	dialect *pyops.Dialect
	unit    *pycode.CodeUnit
	consts  map[string]int
	instrs  []instr
	labels  map[string]int
	line    int
	err     error
}

type instr struct {
	op    *pyops.Op
	arg   int
	label string
	line  int
}

func New(dialect *pyops.Dialect, name string) *Assembler {
	return &Assembler{
		dialect: dialect,
		unit: &pycode.CodeUnit{
			Name:     name,
			Filename: "<asm>",
			Dialect:  dialect.Name,
		},
		consts: make(map[string]int),
		labels: make(map[string]int),
	}
}

func (a *Assembler) fail(format string, args ...any) *Assembler {
	if a.err == nil {
		a.err = fmt.Errorf("%s: "+format, append([]any{a.unit.Name}, args...)...)
	}
	return a
}

func (a *Assembler) Filename(name string) *Assembler {
	a.unit.Filename = name
	return a
}

func (a *Assembler) Flags(flags pycode.Flags) *Assembler {
	a.unit.Flags |= flags
	return a
}

// Params declares the parameter shape; it must come before any local is referenced.
func (a *Assembler) Params(p Params) *Assembler {
	if len(a.unit.VarNames) > 0 {
		return a.fail("params declared after locals")
	}
	a.unit.ArgCount = len(p.Args)
	a.unit.PosOnlyArgCount = p.PosOnly
	a.unit.KwOnlyArgCount = len(p.KwOnly)
	a.unit.VarNames = append(a.unit.VarNames, p.Args...)
	a.unit.VarNames = append(a.unit.VarNames, p.KwOnly...)
	if p.Varargs != "" {
		a.unit.VarNames = append(a.unit.VarNames, p.Varargs)
		a.unit.Flags |= pycode.FlagVarargs
	}
	if p.Varkw != "" {
		a.unit.VarNames = append(a.unit.VarNames, p.Varkw)
		a.unit.Flags |= pycode.FlagVarkeywords
	}
	a.unit.Flags |= pycode.FlagNewLocals | pycode.FlagOptimized
	return a
}

func (a *Assembler) Locals(names ...string) *Assembler {
	for _, name := range names {
		a.local(name)
	}
	return a
}

func (a *Assembler) CellVars(names ...string) *Assembler {
	a.unit.CellVars = append(a.unit.CellVars, names...)
	return a
}

func (a *Assembler) FreeVars(names ...string) *Assembler {
	a.unit.FreeVars = append(a.unit.FreeVars, names...)
	return a
}

func (a *Assembler) Line(n int) *Assembler {
	if a.unit.FirstLine == 0 {
		a.unit.FirstLine = n
	}
	a.line = n
	return a
}

func (a *Assembler) Label(name string) *Assembler {
	if _, ok := a.labels[name]; ok {
		return a.fail("duplicated label %s", name)
	}
	a.labels[name] = len(a.instrs)
	return a
}

// Const interns a constant and returns its index.
func (a *Assembler) Const(v any) int {
	v = normalizeConst(v)
	var key string
	if code, ok := v.(*pycode.CodeUnit); ok {
		key = fmt.Sprintf("code:%p", code)
	} else {
		key = fmt.Sprintf("%T:%s", v, pycode.Repr(v))
	}
	if i, ok := a.consts[key]; ok {
		return i
	}
	i := len(a.unit.Consts)
	a.unit.Consts = append(a.unit.Consts, v)
	a.consts[key] = i
	return i
}

func normalizeConst(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []byte:
		return pycode.Bytes(v)
	case pycode.Tuple:
		ret := make(pycode.Tuple, len(v))
		for i, e := range v {
			ret[i] = normalizeConst(e)
		}
		return ret
	case *big.Int:
		if v.IsInt64() {
			return v.Int64()
		}
	}
	return v
}

func (a *Assembler) Name(name string) int {
	if i := slices.Index(a.unit.Names, name); i >= 0 {
		return i
	}
	a.unit.Names = append(a.unit.Names, name)
	return len(a.unit.Names) - 1
}

func (a *Assembler) local(name string) int {
	if i := slices.Index(a.unit.VarNames, name); i >= 0 {
		return i
	}
	a.unit.VarNames = append(a.unit.VarNames, name)
	return len(a.unit.VarNames) - 1
}

func (a *Assembler) free(name string) (int, bool) {
	if i := slices.Index(a.unit.CellVars, name); i >= 0 {
		return i, true
	}
	if i := slices.Index(a.unit.FreeVars, name); i >= 0 {
		return len(a.unit.CellVars) + i, true
	}
	return 0, false
}

// Op appends one instruction; the operand is resolved by the opcode's category.
func (a *Assembler) Op(name string, operand ...any) *Assembler {
	op, ok := a.dialect.Op(name)
	if !ok {
		return a.fail("dialect %s has no opcode %s", a.dialect.Name, name)
	}
	in := instr{
		op:   op,
		line: a.line,
	}
	if len(operand) > 1 {
		return a.fail("%s: too many operands", name)
	}
	if op.Category == pyops.CategoryNone {
		if len(operand) > 0 {
			return a.fail("%s takes no operand", name)
		}
		a.instrs = append(a.instrs, in)
		return a
	}
	if len(operand) == 0 {
		if op.Category == pyops.CategoryConst {
			return a.fail("%s needs an operand", name)
		}
		operand = []any{0}
	}
	arg := operand[0]
	if idx, ok := arg.(Index); ok {
		in.arg = int(idx)
		a.instrs = append(a.instrs, in)
		return a
	}

	switch op.Category {
	case pyops.CategoryConst:
		in.arg = a.Const(arg)
	case pyops.CategoryName, pyops.CategoryLocal, pyops.CategoryFree, pyops.CategoryJRel, pyops.CategoryJAbs, pyops.CategoryCompare:
		s, ok := arg.(string)
		if !ok {
			return a.fail("%s: operand %v is not a string", name, arg)
		}
		switch op.Category {
		case pyops.CategoryName:
			in.arg = a.Name(s)
		case pyops.CategoryLocal:
			in.arg = a.local(s)
		case pyops.CategoryFree:
			i, ok := a.free(s)
			if !ok {
				return a.fail("%s: %s is neither a cell nor a free variable", name, s)
			}
			in.arg = i
		case pyops.CategoryCompare:
			i := slices.Index(a.dialect.CompareOps, s)
			if i < 0 {
				return a.fail("%s: unknown compare op %q", name, s)
			}
			in.arg = i
		default:
			in.label = s
		}
	default:
		n, ok := arg.(int)
		if !ok {
			return a.fail("%s: operand %v is not an integer", name, arg)
		}
		if n < 0 {
			return a.fail("%s: negative operand %d", name, n)
		}
		in.arg = n
	}
	a.instrs = append(a.instrs, in)
	return a
}

func (a *Assembler) Assemble() (*pycode.CodeUnit, error) {
	if a.err != nil {
		return nil, a.err
	}

	sizes := make([]int, len(a.instrs))
	for i, in := range a.instrs {
		if in.label != "" {
			if _, ok := a.labels[in.label]; !ok {
				return nil, fmt.Errorf("%s: undefined label %s", a.unit.Name, in.label)
			}
		}
		sizes[i] = a.dialect.EncodedSize(in.op, in.arg)
	}
	offsets := make([]int, len(a.instrs)+1)
	for {
		for i, size := range sizes {
			offsets[i+1] = offsets[i] + size
		}
		changed := false
		for i := range a.instrs {
			in := &a.instrs[i]
			if in.label == "" {
				continue
			}
			target := offsets[a.labels[in.label]]
			if in.op.Category == pyops.CategoryJRel {
				in.arg = target - offsets[i+1]
				if in.arg < 0 {
					return nil, fmt.Errorf("%s: relative jump %s to label %s goes backward", a.unit.Name, in.op.Name, in.label)
				}
			} else {
				in.arg = target
			}
			if size := a.dialect.EncodedSize(in.op, in.arg); size > sizes[i] {
				sizes[i] = size
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	var code []byte
	var starts []pycode.LineStart
	lastLine := 0
	for i, in := range a.instrs {
		if in.line != 0 && in.line != lastLine {
			starts = append(starts, pycode.LineStart{
				Offset: len(code),
				Line:   in.line,
			})
			lastLine = in.line
		}
		code = a.dialect.Encode(code, in.op, in.arg)
		if len(code) != offsets[i+1] {
			return nil, fmt.Errorf("%s: instruction %s at %d encoded to unexpected size", a.unit.Name, in.op.Name, offsets[i])
		}
	}

	unit := *a.unit
	unit.Code = code
	unit.NumLocals = len(unit.VarNames)
	if unit.FirstLine == 0 {
		unit.FirstLine = 1
	}
	if len(starts) > 0 {
		table, err := pycode.EncodeLineTable(unit.FirstLine, starts, !strings.HasPrefix(a.dialect.Name, "2."))
		if err != nil {
			return nil, err
		}
		unit.LineTable = table
	}
	if len(unit.FreeVars) > 0 {
		unit.Flags |= pycode.FlagNested
	}
	if len(unit.FreeVars) == 0 && len(unit.CellVars) == 0 {
		unit.Flags |= pycode.FlagNoFree
	}
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	return &unit, nil
}

// Nested starts an assembler for a code constant of this unit.
func (a *Assembler) Nested(name string) *Assembler {
	n := New(a.dialect, name)
	n.unit.Filename = a.unit.Filename
	return n
}
