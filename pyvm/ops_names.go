package pyvm

import (
	"strings"
)

func nameError(name string) error {
	return NewError(NameErrorClass, "name '%s' is not defined", name)
}

func unboundLocal(name string) error {
	return NewError(UnboundLocalErrorClass, "local variable '%s' referenced before assignment", name)
}

func frameLocals(f *Frame) (*Dict, error) {
	if f.Locals == nil {
		return nil, internalf(ErrBadOperand, "no locals in %s", f.Code.Name)
	}
	return f.Locals, nil
}

// lookupName searches a name-scoped namespace chain.
func lookupName(name string, dicts ...*Dict) (Value, bool) {
	for _, d := range dicts {
		if v, ok := d.GetStr(name); ok {
			return v, true
		}
	}
	return nil, false
}

func derefError(f *Frame, i int) error {
	name := f.cellName(i)
	if i < len(f.Code.CellVars) {
		return unboundLocal(name)
	}
	return NewError(NameErrorClass, "free variable '%s' referenced before assignment in enclosing scope", name)
}

func namesFragment() fragment {
	return fragment{
		name: "names",
		handlers: map[string]Handler{
			"LOAD_CONST": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(in.Const)
				return WhyNone, nil
			},

			"LOAD_NAME": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				v, ok := lookupName(in.Name, locals, f.Globals, f.Builtins)
				if !ok {
					return WhyNone, nameError(in.Name)
				}
				f.Push(v)
				return WhyNone, nil
			},
			"STORE_NAME": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				locals.SetStr(in.Name, f.Pop())
				return WhyNone, nil
			},
			"DELETE_NAME": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				if !locals.DeleteStr(in.Name) {
					return WhyNone, nameError(in.Name)
				}
				return WhyNone, nil
			},

			"LOAD_GLOBAL": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v, ok := lookupName(in.Name, f.Globals, f.Builtins)
				if !ok {
					return WhyNone, nameError(in.Name)
				}
				f.Push(v)
				return WhyNone, nil
			},
			"STORE_GLOBAL": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Globals.SetStr(in.Name, f.Pop())
				return WhyNone, nil
			},
			"DELETE_GLOBAL": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if !f.Globals.DeleteStr(in.Name) {
					return WhyNone, nameError(in.Name)
				}
				return WhyNone, nil
			},

			"LOAD_FAST": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v := f.Fast[in.Arg]
				if v == nil {
					return WhyNone, unboundLocal(in.Name)
				}
				f.Push(v)
				return WhyNone, nil
			},
			"STORE_FAST": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Fast[in.Arg] = f.Pop()
				return WhyNone, nil
			},
			"DELETE_FAST": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				if f.Fast[in.Arg] == nil {
					return WhyNone, unboundLocal(in.Name)
				}
				f.Fast[in.Arg] = nil
				return WhyNone, nil
			},

			"LOAD_CLOSURE": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Push(f.Cells[in.Arg])
				return WhyNone, nil
			},
			"LOAD_DEREF": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v := f.Cells[in.Arg].Value
				if v == nil {
					return WhyNone, derefError(f, in.Arg)
				}
				f.Push(v)
				return WhyNone, nil
			},
			"STORE_DEREF": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				f.Cells[in.Arg].Value = f.Pop()
				return WhyNone, nil
			},

			"LOAD_ATTR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v, err := e.GetAttr(f.Top(), in.Name)
				if err != nil {
					return WhyNone, err
				}
				f.setTop(v)
				return WhyNone, nil
			},
			"STORE_ATTR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				obj := f.Pop()
				val := f.Pop()
				return WhyNone, e.SetAttr(obj, in.Name, val)
			},
			"DELETE_ATTR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				return WhyNone, e.DelAttr(f.Pop(), in.Name)
			},

			"IMPORT_NAME": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				fromlist := f.Pop()
				f.Pop()
				mod, err := e.importModule(in.Name, fromlist)
				if err != nil {
					return WhyNone, err
				}
				f.Push(mod)
				return WhyNone, nil
			},
			"IMPORT_FROM": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				v, err := e.GetAttr(f.Top(), in.Name)
				if err != nil {
					var pe *PyError
					if asPyError(err, &pe) && pe.Matches(AttributeErrorClass) {
						return WhyNone, NewError(ImportErrorClass, "cannot import name '%s'", in.Name)
					}
					return WhyNone, err
				}
				f.Push(v)
				return WhyNone, nil
			},
			"IMPORT_STAR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
				mod := f.Pop()
				locals, err := frameLocals(f)
				if err != nil {
					return WhyNone, err
				}
				return WhyNone, e.importStar(mod, locals)
			},
		},
	}
}

func (e *Engine) importModule(name string, fromlist Value) (Value, error) {
	mod, ok := e.modules[name]
	if !ok {
		return nil, NewError(ImportErrorClass, "No module named '%s'", name)
	}
	hasFromlist, err := e.Truth(fromlist)
	if err != nil {
		return nil, err
	}
	if top, _, dotted := strings.Cut(name, "."); dotted && !hasFromlist {
		if parent, ok := e.modules[top]; ok {
			return parent, nil
		}
		return nil, NewError(ImportErrorClass, "No module named '%s'", top)
	}
	return mod, nil
}

func (e *Engine) importStar(mod Value, locals *Dict) error {
	m, ok := mod.(*Module)
	if !ok {
		return NewError(TypeErrorClass, "import * requires a module, not %s", TypeName(mod))
	}
	if all, ok := m.Dict.GetStr("__all__"); ok {
		names, err := e.ToSlice(all)
		if err != nil {
			return err
		}
		for _, n := range names {
			s, ok := n.(Str)
			if !ok {
				return NewError(TypeErrorClass, "Item in %s.__all__ must be str, not %s", m.Name, TypeName(n))
			}
			v, ok := m.Dict.GetStr(string(s))
			if !ok {
				return NewError(AttributeErrorClass, "module '%s' has no attribute '%s'", m.Name, s)
			}
			locals.SetStr(string(s), v)
		}
		return nil
	}
	for k, v := range m.Dict.All() {
		if s, ok := k.(Str); ok && !strings.HasPrefix(string(s), "_") {
			locals.SetStr(string(s), v)
		}
	}
	return nil
}
