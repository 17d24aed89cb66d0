package pyvm

import (
	"fmt"
	"math/big"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

type Handler func(e *Engine, f *Frame, in *Instruction) (Why, error)

// Instruction is one decoded instruction with its operand resolved by category.
type Instruction struct {
	Op     *pyops.Op
	Offset int
	Next   int
	Arg    int
	Line   int
	// Const is set for const operands.
	Const Value
	// Name is set for name, local, free and compare operands.
	Name string
	// Target is the absolute offset of jump operands.
	Target int

	handler Handler
}

// Operand is the resolved operand as seen by tracers.
func (in *Instruction) Operand() any {
	switch in.Op.Category {
	case pyops.CategoryNone:
		return nil
	case pyops.CategoryConst:
		return in.Const
	case pyops.CategoryName, pyops.CategoryLocal, pyops.CategoryFree, pyops.CategoryCompare:
		return in.Name
	case pyops.CategoryJRel, pyops.CategoryJAbs:
		return in.Target
	}
	return in.Arg
}

func (in *Instruction) String() string {
	if in.Op.Category == pyops.CategoryNone {
		return fmt.Sprintf("%d %s", in.Offset, in.Op.Name)
	}
	return fmt.Sprintf("%d %s %v", in.Offset, in.Op.Name, in.Operand())
}

type decodedCode struct {
	code     *pycode.CodeUnit
	behavior *Behavior
	consts   []Value
	instrs   []*Instruction
}

func (e *Engine) decodedFor(code *pycode.CodeUnit, b *Behavior) (*decodedCode, error) {
	if d, ok := e.decoded[code]; ok {
		if d.behavior != b {
			return nil, &InternalError{
				Code: code,
				Err:  fmt.Errorf("%w: code decoded for dialect %s, run with %s", ErrDialectMismatch, d.behavior.Dialect.Name, b.Dialect.Name),
			}
		}
		return d, nil
	}
	consts := make([]Value, len(code.Consts))
	for i, c := range code.Consts {
		v, err := constValue(c)
		if err != nil {
			return nil, &InternalError{
				Code: code,
				Err:  err,
			}
		}
		consts[i] = v
	}
	d := &decodedCode{
		code:     code,
		behavior: b,
		consts:   consts,
		instrs:   make([]*Instruction, len(code.Code)),
	}
	e.decoded[code] = d
	return d, nil
}

func (d *decodedCode) at(offset int) (*Instruction, error) {
	if offset < 0 || offset >= len(d.instrs) {
		return nil, fmt.Errorf("%w: offset %d outside code of %d bytes", ErrTruncated, offset, len(d.instrs))
	}
	if in := d.instrs[offset]; in != nil {
		return in, nil
	}
	raw, err := d.behavior.Dialect.Decode(d.code.Code, offset)
	if err != nil {
		return nil, err
	}
	in := &Instruction{
		Op:      raw.Op,
		Offset:  raw.Offset,
		Next:    raw.Next,
		Arg:     raw.Arg,
		Line:    d.code.LineAt(raw.Offset),
		Target:  -1,
		handler: d.behavior.handlers[raw.Op.Number],
	}
	if err := d.resolve(in, raw); err != nil {
		return nil, err
	}
	d.instrs[offset] = in
	return in, nil
}

func (d *decodedCode) resolve(in *Instruction, raw pyops.Instr) error {
	code := d.code
	arg := raw.Arg
	bad := func(pool string, n int) error {
		return fmt.Errorf("%w: %s index %d out of %d for %s", ErrBadOperand, pool, arg, n, raw.Op.Name)
	}
	switch raw.Op.Category {
	case pyops.CategoryConst:
		if arg >= len(d.consts) {
			return bad("const", len(d.consts))
		}
		in.Const = d.consts[arg]
	case pyops.CategoryName:
		if arg >= len(code.Names) {
			return bad("name", len(code.Names))
		}
		in.Name = code.Names[arg]
	case pyops.CategoryLocal:
		if arg >= len(code.VarNames) {
			return bad("local", len(code.VarNames))
		}
		in.Name = code.VarNames[arg]
	case pyops.CategoryFree:
		n := len(code.CellVars) + len(code.FreeVars)
		if arg >= n {
			return bad("cell", n)
		}
		if arg < len(code.CellVars) {
			in.Name = code.CellVars[arg]
		} else {
			in.Name = code.FreeVars[arg-len(code.CellVars)]
		}
	case pyops.CategoryJRel, pyops.CategoryJAbs:
		in.Target = raw.Target()
		if in.Target > len(code.Code) {
			return fmt.Errorf("%w: jump target %d beyond code of %d bytes", ErrBadOperand, in.Target, len(code.Code))
		}
	case pyops.CategoryCompare:
		name, err := d.behavior.Dialect.CompareOp(arg)
		if err != nil {
			return err
		}
		in.Name = name
	}
	return nil
}

func constValue(c any) (Value, error) {
	switch c := c.(type) {
	case nil:
		return None, nil
	case bool:
		return Bool(c), nil
	case int64:
		return Int(c), nil
	case int:
		return Int(c), nil
	case *big.Int:
		return MakeBig(new(big.Int).Set(c)), nil
	case float64:
		return Float(c), nil
	case complex128:
		return Complex(c), nil
	case string:
		return Str(c), nil
	case pycode.Bytes:
		return Bytes(c), nil
	case pycode.Ellipsis:
		return Ellipsis, nil
	case pycode.Tuple:
		t := make(Tuple, len(c))
		for i, e := range c {
			v, err := constValue(e)
			if err != nil {
				return nil, err
			}
			t[i] = v
		}
		return t, nil
	case pycode.FrozenSet:
		s := &Set{
			d:      NewDict(),
			Frozen: true,
		}
		for _, e := range c {
			v, err := constValue(e)
			if err != nil {
				return nil, err
			}
			if err := s.Add(v); err != nil {
				return nil, fmt.Errorf("%w: frozenset constant: %v", ErrBadOperand, err)
			}
		}
		return s, nil
	case *pycode.CodeUnit:
		return &Code{Unit: c}, nil
	}
	return nil, fmt.Errorf("%w: constant of type %T", ErrBadOperand, c)
}
