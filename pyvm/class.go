package pyvm

import (
	"fmt"
	"slices"
	"strings"
)

type Class struct {
	Name  string
	Bases []*Class
	MRO   []*Class
	Dict  *Dict
	// Meta is the metaclass; nil means type.
	Meta *Class

	builtin bool
	// final builtin classes cannot be subclassed.
	final bool
}

func (c *Class) Type() *Class {
	if c.Meta != nil {
		return c.Meta
	}
	return TypeClass
}

func (c *Class) IsBuiltin() bool {
	return c.builtin
}

func (c *Class) String() string {
	return c.Name
}

// IsSubclass reports whether base is in c's MRO.
func (c *Class) IsSubclass(base *Class) bool {
	if c == base {
		return true
	}
	return slices.Contains(c.MRO, base)
}

// Lookup searches the MRO for an attribute.
func (c *Class) Lookup(name string) (Value, *Class, bool) {
	for _, k := range c.MRO {
		if v, ok := k.Dict.GetStr(name); ok {
			return v, k, true
		}
	}
	return nil, nil, false
}

// lookupUser is Lookup restricted to classes defined by interpreted code.
func (c *Class) lookupUser(name string) (Value, bool) {
	for _, k := range c.MRO {
		if k.builtin {
			continue
		}
		if v, ok := k.Dict.GetStr(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Class) moduleName() string {
	if v, ok := c.Dict.GetStr("__module__"); ok {
		if s, ok := v.(Str); ok {
			return string(s)
		}
	}
	if c.builtin {
		return "builtins"
	}
	return "__main__"
}

func newBuiltinClass(name string, bases ...*Class) *Class {
	c := &Class{
		Name:    name,
		Bases:   bases,
		Dict:    NewDict(),
		builtin: true,
	}
	mro, err := computeMRO(c)
	if err != nil {
		panic(err)
	}
	c.MRO = mro
	return c
}

func newFinalClass(name string, bases ...*Class) *Class {
	c := newBuiltinClass(name, bases...)
	c.final = true
	return c
}

// computeMRO is the C3 linearization.
func computeMRO(c *Class) ([]*Class, error) {
	var seqs [][]*Class
	for _, b := range c.Bases {
		seqs = append(seqs, slices.Clone(b.MRO))
	}
	seqs = append(seqs, slices.Clone(c.Bases))
	result := []*Class{c}
	for {
		var rest [][]*Class
		for _, s := range seqs {
			if len(s) > 0 {
				rest = append(rest, s)
			}
		}
		if len(rest) == 0 {
			return result, nil
		}
		var candidate *Class
	find:
		for _, s := range rest {
			head := s[0]
			for _, t := range rest {
				if slices.Contains(t[1:], head) {
					continue find
				}
			}
			candidate = head
			break
		}
		if candidate == nil {
			names := make([]string, len(c.Bases))
			for i, b := range c.Bases {
				names[i] = b.Name
			}
			return nil, fmt.Errorf("Cannot create a consistent method resolution order (MRO) for bases %s", strings.Join(names, ", "))
		}
		result = append(result, candidate)
		for i, s := range rest {
			if s[0] == candidate {
				rest[i] = s[1:]
			}
		}
		seqs = rest
	}
}

// Instance is an object of a class defined by interpreted code, or of an exception class.
type Instance struct {
	Class *Class
	Dict  *Dict
}

func (i *Instance) Type() *Class {
	return i.Class
}

func NewInstance(cls *Class) *Instance {
	return &Instance{
		Class: cls,
		Dict:  NewDict(),
	}
}

func (e *Engine) newClass(meta *Class, name string, bases []*Class, ns *Dict) (*Class, error) {
	if len(bases) == 0 {
		bases = []*Class{ObjectClass}
	}
	for _, b := range bases {
		if b.final {
			return nil, NewError(TypeErrorClass, "type '%s' is not an acceptable base type", b.Name)
		}
	}
	if meta == TypeClass {
		meta = nil
	}
	c := &Class{
		Name:  name,
		Bases: bases,
		Dict:  ns.Copy(),
		Meta:  meta,
	}
	mro, err := computeMRO(c)
	if err != nil {
		return nil, NewError(TypeErrorClass, "%s", err.Error())
	}
	c.MRO = mro

	if fn, ok := c.Dict.GetStr("__new__"); ok {
		if _, ok := fn.(*Function); ok {
			c.Dict.SetStr("__new__", &StaticMethod{Func: fn})
		}
	}
	for _, name := range []string{"__init_subclass__", "__class_getitem__"} {
		if fn, ok := c.Dict.GetStr(name); ok {
			if _, ok := fn.(*Function); ok {
				c.Dict.SetStr(name, &ClassMethod{Func: fn})
			}
		}
	}
	if _, ok := c.Dict.GetStr("__qualname__"); ok {
		c.Dict.DeleteStr("__qualname__")
	}
	if v, ok := c.Dict.GetStr("__classcell__"); ok {
		cell, ok := v.(*Cell)
		if !ok {
			return nil, NewError(TypeErrorClass, "__classcell__ must be a nonlocal cell, not %s", TypeName(v))
		}
		cell.Value = c
		c.Dict.DeleteStr("__classcell__")
	}
	if eq, ok := c.Dict.GetStr("__eq__"); ok && eq != None {
		if _, ok := c.Dict.GetStr("__hash__"); !ok {
			c.Dict.SetStr("__hash__", None)
		}
	}
	return c, nil
}
