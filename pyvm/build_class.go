package pyvm

import (
	"slices"
)

func classBases(v Value) ([]*Class, error) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, NewError(TypeErrorClass, "bases must be a tuple")
	}
	bases := make([]*Class, len(t))
	for i, b := range t {
		c, ok := b.(*Class)
		if !ok {
			return nil, NewError(TypeErrorClass, "bases must be types")
		}
		bases[i] = c
	}
	return bases, nil
}

// mostDerivedMeta picks the metaclass that is a subclass of the metaclasses of all bases.
func mostDerivedMeta(meta *Class, bases []*Class) (*Class, error) {
	winner := meta
	for _, b := range bases {
		t := b.Type()
		if winner.IsSubclass(t) {
			continue
		}
		if t.IsSubclass(winner) {
			winner = t
			continue
		}
		return nil, NewError(TypeErrorClass, "metaclass conflict: the metaclass of a derived class must be a (non-strict) subclass of the metaclasses of all its bases")
	}
	return winner, nil
}

// buildClass is __build_class__(func, name, *bases, metaclass=None, **kwds).
func (e *Engine) buildClass(args []Value, kwargs *Dict) (Value, error) {
	if len(args) < 2 {
		return nil, NewError(TypeErrorClass, "__build_class__: not enough arguments")
	}
	body, ok := args[0].(*Function)
	if !ok {
		return nil, NewError(TypeErrorClass, "__build_class__: func must be a function")
	}
	name, ok := args[1].(Str)
	if !ok {
		return nil, NewError(TypeErrorClass, "__build_class__: name is not a string")
	}
	basesTuple := Tuple(slices.Clone(args[2:]))
	bases, err := classBases(basesTuple)
	if err != nil {
		return nil, err
	}

	kwds := NewDict()
	if kwargs != nil {
		kwds = kwargs.Copy()
	}
	var meta Value
	if m, ok := kwds.GetStr("metaclass"); ok {
		kwds.DeleteStr("metaclass")
		meta = m
	} else if len(bases) > 0 {
		meta = bases[0].Type()
	} else {
		meta = TypeClass
	}
	if m, ok := meta.(*Class); ok {
		meta, err = mostDerivedMeta(m, bases)
		if err != nil {
			return nil, err
		}
	}

	ns := NewDict()
	if prepare, ok := e.prepareMethod(meta); ok {
		v, err := e.call(prepare, []Value{name, basesTuple}, kwds)
		if err != nil {
			return nil, err
		}
		d, ok := v.(*Dict)
		if !ok {
			return nil, NewError(TypeErrorClass, "%s.__prepare__() must return a mapping, not %s", TypeName(meta), TypeName(v))
		}
		ns = d
	}

	f, err := e.newFrame(body.Code, body.Globals, ns, body.Closure)
	if err != nil {
		return nil, err
	}
	cell, err := e.runFrame(f)
	if err != nil {
		return nil, err
	}
	cls, err := e.call(meta, []Value{name, basesTuple, ns}, kwds)
	if err != nil {
		return nil, err
	}
	if c, ok := cell.(*Cell); ok {
		if c.Value == nil {
			c.Value = cls
		} else if c.Value != cls {
			return nil, NewError(TypeErrorClass, "__class__ set to %s defining '%s' as %s", reprSimple(c.Value), name, reprSimple(cls))
		}
	}
	return cls, nil
}

func (e *Engine) prepareMethod(meta Value) (Value, bool) {
	m, ok := meta.(*Class)
	if !ok {
		return nil, false
	}
	attr, ok := m.lookupUser("__prepare__")
	if !ok {
		return nil, false
	}
	return e.bind(attr, nil, m), true
}

// buildClass27 is the BUILD_CLASS opcode: the metaclass comes from __metaclass__,
// then from the first base, then from the module globals.
func (e *Engine) buildClass27(f *Frame, name, bases, methods Value) (Value, error) {
	ns, ok := methods.(*Dict)
	if !ok {
		return nil, internalf(ErrBadOperand, "BUILD_CLASS with %s methods", TypeName(methods))
	}
	classBasesList, err := classBases(bases)
	if err != nil {
		return nil, err
	}
	var meta Value
	if m, ok := ns.GetStr("__metaclass__"); ok {
		meta = m
	} else if len(classBasesList) > 0 {
		meta = classBasesList[0].Type()
	} else if m, ok := f.Globals.GetStr("__metaclass__"); ok {
		meta = m
	} else {
		meta = TypeClass
	}
	if _, ok := ns.GetStr("__module__"); !ok {
		if mod, ok := f.Globals.GetStr("__name__"); ok {
			ns.SetStr("__module__", mod)
		}
	}
	return e.call(meta, []Value{name, bases, ns}, nil)
}

// newSuper is super() with zero or two arguments.
func (e *Engine) newSuper(args []Value) (Value, error) {
	var typ, obj Value
	switch len(args) {
	case 0:
		var err error
		typ, obj, err = e.implicitSuperArgs()
		if err != nil {
			return nil, err
		}
	case 1:
		return nil, NewError(TypeErrorClass, "unbound super objects are not supported")
	case 2:
		typ, obj = args[0], args[1]
	default:
		return nil, NewError(TypeErrorClass, "super() takes at most 2 arguments (%d given)", len(args))
	}
	cls, ok := typ.(*Class)
	if !ok {
		return nil, NewError(TypeErrorClass, "super() argument 1 must be type, not %s", TypeName(typ))
	}
	if c, ok := obj.(*Class); ok && c.IsSubclass(cls) {
		return &Super{
			Class:     cls,
			Self:      c,
			SelfClass: c,
		}, nil
	}
	if obj.Type().IsSubclass(cls) {
		return &Super{
			Class:     cls,
			Self:      obj,
			SelfClass: obj.Type(),
		}, nil
	}
	return nil, NewError(TypeErrorClass, "super(type, obj): obj must be an instance or subtype of type")
}

// implicitSuperArgs reads __class__ and the first argument of the calling frame.
func (e *Engine) implicitSuperArgs() (Value, Value, error) {
	f := e.frame
	if f == nil {
		return nil, nil, NewError(RuntimeErrorClass, "super(): no current frame")
	}
	co := f.Code
	if co.ArgCount == 0 {
		return nil, nil, NewError(RuntimeErrorClass, "super(): no arguments")
	}
	obj := f.Fast[0]
	if i := slices.Index(co.CellVars, co.VarNames[0]); i >= 0 {
		obj = f.Cells[i].Value
	}
	if obj == nil {
		return nil, nil, NewError(RuntimeErrorClass, "super(): arg[0] deleted")
	}
	i := slices.Index(co.FreeVars, "__class__")
	if i < 0 {
		return nil, nil, NewError(RuntimeErrorClass, "super(): __class__ cell not found")
	}
	cls := f.Cells[len(co.CellVars)+i].Value
	if cls == nil {
		return nil, nil, NewError(RuntimeErrorClass, "super(): empty __class__ cell")
	}
	if _, ok := cls.(*Class); !ok {
		return nil, nil, NewError(RuntimeErrorClass, "super(): __class__ is not a type (%s)", TypeName(cls))
	}
	return cls, obj, nil
}
