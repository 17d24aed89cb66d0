package pyops

import (
	"fmt"
	"sort"
)

type Category uint8

const (
	CategoryNone Category = iota
	CategoryConst
	CategoryName
	CategoryLocal
	CategoryFree
	CategoryJRel
	CategoryJAbs
	CategoryCompare
	CategoryRaw
)

var categoryNames = [...]string{
	CategoryNone:    "none",
	CategoryConst:   "const",
	CategoryName:    "name",
	CategoryLocal:   "local",
	CategoryFree:    "free",
	CategoryJRel:    "jrel",
	CategoryJAbs:    "jabs",
	CategoryCompare: "compare",
	CategoryRaw:     "raw",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown operand category %q", text)
}

func (c Category) IsJump() bool {
	return c == CategoryJRel || c == CategoryJAbs
}

type Op struct {
	Number   byte
	Name     string
	Category Category
}

type Traits struct {
	// ExceptHandlerBlocks selects the 3.x convention of an except-handler block
	// holding the saved outer exception below the raised one.
	ExceptHandlerBlocks bool `toml:"except_handler_blocks"`
	// LegacyCalls selects 2.x call packing: low byte positional, high byte keyword pairs.
	LegacyCalls bool `toml:"legacy_calls"`
	// LegacyFunctions selects 2.x MAKE_FUNCTION where the arg counts defaults.
	LegacyFunctions bool `toml:"legacy_functions"`
	// FinallyCalls selects the 3.8 finally protocol (BEGIN_FINALLY, CALL_FINALLY, POP_FINALLY).
	FinallyCalls bool `toml:"finally_calls"`
}

type Dialect struct {
	Name         string
	Wordcode     bool
	HaveArgument byte
	ExtendedArg  byte
	CompareOps   []string
	Traits       Traits

	byNumber [256]*Op
	byName   map[string]*Op
}

// Lookup returns the opcode with the given number.
func (d *Dialect) Lookup(number byte) (*Op, bool) {
	op := d.byNumber[number]
	return op, op != nil
}

// Op returns the opcode with the given name.
func (d *Dialect) Op(name string) (*Op, bool) {
	op, ok := d.byName[name]
	return op, ok
}

func (d *Dialect) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Ops returns all opcodes sorted by number.
func (d *Dialect) Ops() []*Op {
	ret := make([]*Op, 0, len(d.byName))
	for _, op := range d.byName {
		ret = append(ret, op)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Number < ret[j].Number
	})
	return ret
}

func (d *Dialect) CompareOp(arg int) (string, error) {
	if arg < 0 || arg >= len(d.CompareOps) {
		return "", fmt.Errorf("%w: compare op %d", ErrBadOperand, arg)
	}
	return d.CompareOps[arg], nil
}

func (d *Dialect) String() string {
	return d.Name
}
