package pycode

import (
	"fmt"
	"math/big"
	"strings"
)

type Flags uint32

const (
	FlagOptimized   Flags = 0x01
	FlagNewLocals   Flags = 0x02
	FlagVarargs     Flags = 0x04
	FlagVarkeywords Flags = 0x08
	FlagNested      Flags = 0x10
	FlagGenerator   Flags = 0x20
	FlagNoFree      Flags = 0x40
)

// CodeUnit is one compiled unit as handed over by a decoder.
// It must not be mutated after it is shared with an engine.
type CodeUnit struct {
	Name            string
	Filename        string
	FirstLine       int
	ArgCount        int
	PosOnlyArgCount int
	KwOnlyArgCount  int
	NumLocals       int
	StackSize       int
	Flags           Flags
	Code            []byte
	Consts          []any
	Names           []string
	VarNames        []string
	FreeVars        []string
	CellVars        []string
	LineTable       []byte
	Dialect         string
}

type Tuple []any

type FrozenSet []any

type Bytes []byte

type Ellipsis struct{}

func (c *CodeUnit) IsGenerator() bool {
	return c.Flags&FlagGenerator != 0
}

func (c *CodeUnit) HasVarargs() bool {
	return c.Flags&FlagVarargs != 0
}

func (c *CodeUnit) HasVarkeywords() bool {
	return c.Flags&FlagVarkeywords != 0
}

func (c *CodeUnit) NewLocals() bool {
	return c.Flags&FlagNewLocals != 0
}

// ParamCount is the number of local slots filled by argument binding.
func (c *CodeUnit) ParamCount() int {
	n := c.ArgCount + c.KwOnlyArgCount
	if c.HasVarargs() {
		n++
	}
	if c.HasVarkeywords() {
		n++
	}
	return n
}

func (c *CodeUnit) String() string {
	return fmt.Sprintf("<code object %s, file %q, line %d>", c.Name, c.Filename, c.FirstLine)
}

func (c *CodeUnit) Validate() error {
	if c.ParamCount() > len(c.VarNames) {
		return fmt.Errorf("code %s: %d parameters but %d local names", c.Name, c.ParamCount(), len(c.VarNames))
	}
	if c.PosOnlyArgCount > c.ArgCount {
		return fmt.Errorf("code %s: positional-only count exceeds argument count", c.Name)
	}
	if !strings.HasPrefix(c.Dialect, "2.") && len(c.Code)%2 != 0 {
		return fmt.Errorf("code %s: wordcode has odd length %d", c.Name, len(c.Code))
	}
	if len(c.LineTable)%2 != 0 {
		return fmt.Errorf("code %s: line table has odd length %d", c.Name, len(c.LineTable))
	}
	for i, k := range c.Consts {
		if err := validateConst(k); err != nil {
			return fmt.Errorf("code %s: const %d: %w", c.Name, i, err)
		}
	}
	return nil
}

func validateConst(v any) error {
	switch v := v.(type) {
	case nil, bool, int64, *big.Int, float64, complex128, string, Bytes, Ellipsis:
		return nil
	case Tuple:
		for _, e := range v {
			if err := validateConst(e); err != nil {
				return err
			}
		}
		return nil
	case FrozenSet:
		for _, e := range v {
			if err := validateConst(e); err != nil {
				return err
			}
		}
		return nil
	case *CodeUnit:
		return v.Validate()
	}
	return fmt.Errorf("unsupported constant kind %T", v)
}
