package pyasm

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
	"gopkg.in/yaml.v3"
)

// Listing is the YAML form of one code unit.
type Listing struct {
	Name      string      `yaml:"name"`
	Filename  string      `yaml:"filename"`
	Dialect   string      `yaml:"dialect"`
	Args      []string    `yaml:"args"`
	PosOnly   int         `yaml:"posonly"`
	KwOnly    []string    `yaml:"kwonly"`
	Varargs   string      `yaml:"varargs"`
	Varkw     string      `yaml:"varkw"`
	Locals    []string    `yaml:"locals"`
	CellVars  []string    `yaml:"cellvars"`
	FreeVars  []string    `yaml:"freevars"`
	Flags     []string    `yaml:"flags"`
	Code      []yaml.Node `yaml:"code"`
	Function  bool        `yaml:"function"`
	Generator bool        `yaml:"generator"`
}

var flagNames = map[string]pycode.Flags{
	"optimized":   pycode.FlagOptimized,
	"newlocals":   pycode.FlagNewLocals,
	"varargs":     pycode.FlagVarargs,
	"varkeywords": pycode.FlagVarkeywords,
	"nested":      pycode.FlagNested,
	"generator":   pycode.FlagGenerator,
	"nofree":      pycode.FlagNoFree,
}

func LoadFile(path string, defaultDialect string) (*pycode.CodeUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := Parse(content, defaultDialect)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if code.Filename == "<asm>" {
		code.Filename = path
	}
	return code, nil
}

// Parse assembles a YAML listing. The listing's dialect wins over defaultDialect.
func Parse(content []byte, defaultDialect string) (*pycode.CodeUnit, error) {
	var listing Listing
	if err := yaml.Unmarshal(content, &listing); err != nil {
		return nil, err
	}
	name := listing.Dialect
	if name == "" {
		name = defaultDialect
	}
	dialect, err := pyops.Load(name)
	if err != nil {
		return nil, err
	}
	return assembleListing(dialect, &listing, "")
}

func assembleListing(dialect *pyops.Dialect, listing *Listing, filename string) (*pycode.CodeUnit, error) {
	if listing.Dialect != "" && listing.Dialect != dialect.Name {
		return nil, fmt.Errorf("nested code %s declares dialect %s inside %s", listing.Name, listing.Dialect, dialect.Name)
	}
	name := listing.Name
	if name == "" {
		name = "<module>"
	}
	a := New(dialect, name)
	switch {
	case listing.Filename != "":
		a.Filename(listing.Filename)
	case filename != "":
		a.Filename(filename)
	}
	if listing.Function || len(listing.Args) > 0 || len(listing.KwOnly) > 0 || listing.Varargs != "" || listing.Varkw != "" {
		a.Params(Params{
			Args:    listing.Args,
			PosOnly: listing.PosOnly,
			KwOnly:  listing.KwOnly,
			Varargs: listing.Varargs,
			Varkw:   listing.Varkw,
		})
	}
	if listing.Generator {
		a.Flags(pycode.FlagGenerator)
	}
	for _, f := range listing.Flags {
		flag, ok := flagNames[f]
		if !ok {
			return nil, fmt.Errorf("%s: unknown flag %q", name, f)
		}
		a.Flags(flag)
	}
	a.Locals(listing.Locals...)
	a.CellVars(listing.CellVars...)
	a.FreeVars(listing.FreeVars...)

	for i := range listing.Code {
		if err := a.item(&listing.Code[i]); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, listing.Code[i].Line, err)
		}
	}
	return a.Assemble()
}

func (a *Assembler) item(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		a.Op(node.Value)
		return a.err

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("instruction must be a single-key mapping")
		}
		key, value := node.Content[0].Value, node.Content[1]
		switch key {
		case "label":
			a.Label(value.Value)
			return a.err
		case "line":
			n, err := strconv.Atoi(value.Value)
			if err != nil {
				return err
			}
			a.Line(n)
			return nil
		}
		op, ok := a.dialect.Op(key)
		if !ok {
			return fmt.Errorf("dialect %s has no opcode %s", a.dialect.Name, key)
		}
		var operand any
		switch op.Category {
		case pyops.CategoryConst:
			v, err := a.constNode(value)
			if err != nil {
				return err
			}
			operand = v
		case pyops.CategoryNone:
			return fmt.Errorf("%s takes no operand", key)
		case pyops.CategoryRaw:
			n, err := strconv.Atoi(value.Value)
			if err != nil {
				return err
			}
			operand = n
		default:
			if value.Tag == "!!int" && op.Category != pyops.CategoryJRel && op.Category != pyops.CategoryJAbs {
				n, err := strconv.Atoi(value.Value)
				if err != nil {
					return err
				}
				operand = Index(n)
			} else {
				operand = value.Value
			}
		}
		a.Op(key, operand)
		return a.err
	}
	return fmt.Errorf("unexpected node kind %v", node.Kind)
}

func (a *Assembler) constNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		case "!!int":
			i, ok := new(big.Int).SetString(node.Value, 0)
			if !ok {
				return nil, fmt.Errorf("bad integer %q", node.Value)
			}
			return normalizeConst(i), nil
		case "!!float":
			// integers beyond 64 bits are resolved as floats
			if i, ok := new(big.Int).SetString(node.Value, 0); ok {
				return normalizeConst(i), nil
			}
			var f float64
			if err := node.Decode(&f); err != nil {
				return nil, err
			}
			return f, nil
		case "!bytes":
			return pycode.Bytes(node.Value), nil
		case "!ellipsis":
			return pycode.Ellipsis{}, nil
		case "!complex":
			c, err := strconv.ParseComplex(node.Value, 128)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
		return node.Value, nil

	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, n := range node.Content {
			v, err := a.constNode(n)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if node.Tag == "!frozenset" {
			return pycode.FrozenSet(items), nil
		}
		return pycode.Tuple(items), nil

	case yaml.MappingNode:
		var listing Listing
		if err := node.Decode(&listing); err != nil {
			return nil, err
		}
		return assembleListing(a.dialect, &listing, a.unit.Filename)
	}
	return nil, fmt.Errorf("unexpected constant node kind %v", node.Kind)
}
