package pyops

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
)

//go:embed tables/*.toml
var tables embed.FS

type tableOp struct {
	Number   int      `toml:"number"`
	Category Category `toml:"category"`
}

type table struct {
	Name         string             `toml:"name"`
	Wordcode     bool               `toml:"wordcode"`
	HaveArgument int                `toml:"have_argument"`
	ExtendedArg  string             `toml:"extended_arg"`
	CompareOps   []string           `toml:"compare_ops"`
	Traits       Traits             `toml:"traits"`
	Ops          map[string]tableOp `toml:"ops"`
}

func fileName(name string) string {
	return "py" + strings.ReplaceAll(name, ".", "") + ".toml"
}

// Names lists the embedded dialects.
func Names() []string {
	entries, err := tables.ReadDir("tables")
	if err != nil {
		panic(err)
	}
	var ret []string
	for _, entry := range entries {
		content, err := tables.ReadFile(path.Join("tables", entry.Name()))
		if err != nil {
			panic(err)
		}
		var t struct {
			Name string `toml:"name"`
		}
		if _, err := toml.Decode(string(content), &t); err != nil {
			panic(err)
		}
		ret = append(ret, t.Name)
	}
	sort.Strings(ret)
	return ret
}

// Load parses the embedded table of the named dialect.
// Every call returns a fresh Dialect; callers keep their own.
func Load(name string) (*Dialect, error) {
	content, err := tables.ReadFile(path.Join("tables", fileName(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
	return Parse(string(content))
}

// Parse builds a Dialect from a TOML table.
func Parse(content string) (*Dialect, error) {
	var t table
	meta, err := toml.Decode(content, &t)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("dialect %s: unknown keys %v", t.Name, undecoded)
	}
	haveArgument, err := safecast.Conv[byte](t.HaveArgument)
	if err != nil {
		return nil, fmt.Errorf("dialect %s: have_argument: %w", t.Name, err)
	}
	d := &Dialect{
		Name:         t.Name,
		Wordcode:     t.Wordcode,
		HaveArgument: haveArgument,
		CompareOps:   t.CompareOps,
		Traits:       t.Traits,
		byName:       make(map[string]*Op, len(t.Ops)),
	}
	for name, o := range t.Ops {
		number, err := safecast.Conv[byte](o.Number)
		if err != nil {
			return nil, fmt.Errorf("dialect %s: opcode %s: %w", t.Name, name, err)
		}
		if prev := d.byNumber[number]; prev != nil {
			return nil, fmt.Errorf("dialect %s: opcode %d named both %s and %s", t.Name, number, prev.Name, name)
		}
		if number < haveArgument && o.Category != CategoryNone {
			return nil, fmt.Errorf("dialect %s: opcode %s takes no argument but has category %s", t.Name, name, o.Category)
		}
		op := &Op{
			Number:   number,
			Name:     name,
			Category: o.Category,
		}
		if number >= haveArgument && op.Category == CategoryNone {
			op.Category = CategoryRaw
		}
		d.byNumber[number] = op
		d.byName[name] = op
	}
	ext, ok := d.byName[t.ExtendedArg]
	if !ok {
		return nil, fmt.Errorf("dialect %s: extended arg opcode %q not in table", t.Name, t.ExtendedArg)
	}
	d.ExtendedArg = ext.Number
	return d, nil
}
