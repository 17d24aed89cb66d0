package pycode

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every .pyvmc file.
const Magic = "PYVMC\x01"

type constKind uint8

const (
	constNone constKind = iota
	constBool
	constInt
	constBigInt
	constFloat
	constComplex
	constStr
	constBytes
	constTuple
	constFrozenSet
	constEllipsis
	constCode
)

type wireConst struct {
	Kind  constKind   `msgpack:"k"`
	Bool  bool        `msgpack:"b,omitempty"`
	Int   int64       `msgpack:"i,omitempty"`
	Float float64     `msgpack:"f,omitempty"`
	Imag  float64     `msgpack:"j,omitempty"`
	Str   string      `msgpack:"s,omitempty"`
	Bytes []byte      `msgpack:"y,omitempty"`
	Items []wireConst `msgpack:"t,omitempty"`
	Code  *wireUnit   `msgpack:"c,omitempty"`
}

type wireUnit struct {
	Name            string      `msgpack:"name"`
	Filename        string      `msgpack:"filename"`
	FirstLine       int         `msgpack:"firstline"`
	ArgCount        int         `msgpack:"argcount"`
	PosOnlyArgCount int         `msgpack:"posonlyargcount"`
	KwOnlyArgCount  int         `msgpack:"kwonlyargcount"`
	NumLocals       int         `msgpack:"nlocals"`
	StackSize       int         `msgpack:"stacksize"`
	Flags           Flags       `msgpack:"flags"`
	Code            []byte      `msgpack:"code"`
	Consts          []wireConst `msgpack:"consts"`
	Names           []string    `msgpack:"names"`
	VarNames        []string    `msgpack:"varnames"`
	FreeVars        []string    `msgpack:"freevars"`
	CellVars        []string    `msgpack:"cellvars"`
	LineTable       []byte      `msgpack:"lnotab"`
	Dialect         string      `msgpack:"dialect"`
}

func Marshal(c *CodeUnit) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Encode(w io.Writer, c *CodeUnit) error {
	unit, err := toWire(c)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(unit)
}

func Unmarshal(data []byte) (*CodeUnit, error) {
	return Decode(bytes.NewReader(data))
}

func Decode(r io.Reader) (*CodeUnit, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}
	var unit wireUnit
	if err := msgpack.NewDecoder(r).Decode(&unit); err != nil {
		return nil, err
	}
	return fromWire(&unit)
}

func toWire(c *CodeUnit) (*wireUnit, error) {
	consts := make([]wireConst, 0, len(c.Consts))
	for _, k := range c.Consts {
		w, err := constToWire(k)
		if err != nil {
			return nil, fmt.Errorf("code %s: %w", c.Name, err)
		}
		consts = append(consts, w)
	}
	return &wireUnit{
		Name:            c.Name,
		Filename:        c.Filename,
		FirstLine:       c.FirstLine,
		ArgCount:        c.ArgCount,
		PosOnlyArgCount: c.PosOnlyArgCount,
		KwOnlyArgCount:  c.KwOnlyArgCount,
		NumLocals:       c.NumLocals,
		StackSize:       c.StackSize,
		Flags:           c.Flags,
		Code:            c.Code,
		Consts:          consts,
		Names:           c.Names,
		VarNames:        c.VarNames,
		FreeVars:        c.FreeVars,
		CellVars:        c.CellVars,
		LineTable:       c.LineTable,
		Dialect:         c.Dialect,
	}, nil
}

func constToWire(v any) (wireConst, error) {
	switch v := v.(type) {
	case nil:
		return wireConst{Kind: constNone}, nil
	case bool:
		return wireConst{Kind: constBool, Bool: v}, nil
	case int64:
		return wireConst{Kind: constInt, Int: v}, nil
	case *big.Int:
		return wireConst{Kind: constBigInt, Str: v.String()}, nil
	case float64:
		return wireConst{Kind: constFloat, Float: v}, nil
	case complex128:
		return wireConst{Kind: constComplex, Float: real(v), Imag: imag(v)}, nil
	case string:
		return wireConst{Kind: constStr, Str: v}, nil
	case Bytes:
		return wireConst{Kind: constBytes, Bytes: v}, nil
	case Ellipsis:
		return wireConst{Kind: constEllipsis}, nil
	case Tuple:
		items, err := constsToWire(v)
		return wireConst{Kind: constTuple, Items: items}, err
	case FrozenSet:
		items, err := constsToWire(v)
		return wireConst{Kind: constFrozenSet, Items: items}, err
	case *CodeUnit:
		unit, err := toWire(v)
		return wireConst{Kind: constCode, Code: unit}, err
	}
	return wireConst{}, fmt.Errorf("unsupported constant kind %T", v)
}

func constsToWire(vs []any) ([]wireConst, error) {
	ret := make([]wireConst, 0, len(vs))
	for _, v := range vs {
		w, err := constToWire(v)
		if err != nil {
			return nil, err
		}
		ret = append(ret, w)
	}
	return ret, nil
}

func fromWire(w *wireUnit) (*CodeUnit, error) {
	consts := make([]any, 0, len(w.Consts))
	for _, k := range w.Consts {
		v, err := constFromWire(k)
		if err != nil {
			return nil, fmt.Errorf("code %s: %w", w.Name, err)
		}
		consts = append(consts, v)
	}
	return &CodeUnit{
		Name:            w.Name,
		Filename:        w.Filename,
		FirstLine:       w.FirstLine,
		ArgCount:        w.ArgCount,
		PosOnlyArgCount: w.PosOnlyArgCount,
		KwOnlyArgCount:  w.KwOnlyArgCount,
		NumLocals:       w.NumLocals,
		StackSize:       w.StackSize,
		Flags:           w.Flags,
		Code:            w.Code,
		Consts:          consts,
		Names:           w.Names,
		VarNames:        w.VarNames,
		FreeVars:        w.FreeVars,
		CellVars:        w.CellVars,
		LineTable:       w.LineTable,
		Dialect:         w.Dialect,
	}, nil
}

func constFromWire(w wireConst) (any, error) {
	switch w.Kind {
	case constNone:
		return nil, nil
	case constBool:
		return w.Bool, nil
	case constInt:
		return w.Int, nil
	case constBigInt:
		i, ok := new(big.Int).SetString(w.Str, 10)
		if !ok {
			return nil, fmt.Errorf("bad big int %q", w.Str)
		}
		return i, nil
	case constFloat:
		return w.Float, nil
	case constComplex:
		return complex(w.Float, w.Imag), nil
	case constStr:
		return w.Str, nil
	case constBytes:
		return Bytes(w.Bytes), nil
	case constEllipsis:
		return Ellipsis{}, nil
	case constTuple, constFrozenSet:
		items := make([]any, 0, len(w.Items))
		for _, item := range w.Items {
			v, err := constFromWire(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if w.Kind == constTuple {
			return Tuple(items), nil
		}
		return FrozenSet(items), nil
	case constCode:
		if w.Code == nil {
			return nil, fmt.Errorf("code constant without body")
		}
		return fromWire(w.Code)
	}
	return nil, fmt.Errorf("unknown constant kind %d", w.Kind)
}
