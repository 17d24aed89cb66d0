package pyvm

// bind applies the descriptor protocol of non-data descriptors found on a class.
// A nil self means the attribute was looked up on the class itself.
func (e *Engine) bind(attr Value, self Value, cls *Class) Value {
	switch a := attr.(type) {
	case *Function:
		if self == nil {
			return a
		}
		return &BoundMethod{Self: self, Func: a}
	case *Builtin:
		if a.Method && self != nil {
			return &BoundMethod{Self: self, Func: a}
		}
	case *StaticMethod:
		return a.Func
	case *ClassMethod:
		return &BoundMethod{Self: cls, Func: a.Func}
	}
	return attr
}

// lookupSpecial finds a special method on the type of v, bound to v.
func (e *Engine) lookupSpecial(v Value, name string) (Value, bool) {
	cls := v.Type()
	attr, _, ok := cls.Lookup(name)
	if !ok || attr == None {
		return nil, false
	}
	return e.bind(attr, v, cls), true
}

// userSpecial is lookupSpecial restricted to methods defined by interpreted classes.
func (e *Engine) userSpecial(v Value, name string) (Value, bool) {
	cls := v.Type()
	if cls.builtin {
		return nil, false
	}
	attr, ok := cls.lookupUser(name)
	if !ok || attr == None {
		return nil, false
	}
	return e.bind(attr, v, cls), true
}

func (e *Engine) propertyGet(p *Property, obj Value) (Value, error) {
	if p.Get == nil || p.Get == None {
		return nil, NewError(AttributeErrorClass, "unreadable attribute")
	}
	return e.call(p.Get, []Value{obj}, nil)
}

func attributeError(v Value, name string) error {
	return NewError(AttributeErrorClass, "'%s' object has no attribute '%s'", TypeName(v), name)
}

func (e *Engine) GetAttr(v Value, name string) (Value, error) {
	switch v := v.(type) {
	case *Instance:
		return e.instanceAttr(v, name)
	case *Class:
		return e.classAttr(v, name)
	case *Module:
		if name == "__dict__" {
			return v.Dict, nil
		}
		if attr, ok := v.Dict.GetStr(name); ok {
			return attr, nil
		}
		return nil, NewError(AttributeErrorClass, "module '%s' has no attribute '%s'", v.Name, name)
	case *Super:
		return e.superAttr(v, name)
	case *Function:
		if attr, ok := functionAttr(v, name); ok {
			return attr, nil
		}
		if attr, ok := v.Dict.GetStr(name); ok {
			return attr, nil
		}
	}
	return e.builtinAttr(v, name)
}

func (e *Engine) instanceAttr(v *Instance, name string) (Value, error) {
	switch name {
	case "__class__":
		return v.Class, nil
	case "__dict__":
		return v.Dict, nil
	}
	attr, _, found := v.Class.Lookup(name)
	if found {
		if p, ok := attr.(*Property); ok {
			return e.propertyGet(p, v)
		}
	}
	if val, ok := v.Dict.GetStr(name); ok {
		return val, nil
	}
	if found {
		return e.bind(attr, v, v.Class), nil
	}
	if getattr, ok := e.userSpecial(v, "__getattr__"); ok {
		return e.call(getattr, []Value{Str(name)}, nil)
	}
	return nil, attributeError(v, name)
}

func (e *Engine) classAttr(c *Class, name string) (Value, error) {
	switch name {
	case "__name__", "__qualname__":
		return Str(c.Name), nil
	case "__bases__":
		bases := make(Tuple, len(c.Bases))
		for i, b := range c.Bases {
			bases[i] = b
		}
		return bases, nil
	case "__mro__":
		mro := make(Tuple, len(c.MRO))
		for i, k := range c.MRO {
			mro[i] = k
		}
		return mro, nil
	case "__class__":
		return c.Type(), nil
	case "__dict__":
		return c.Dict, nil
	case "__module__":
		return Str(c.moduleName()), nil
	}
	meta := c.Type()
	metaAttr, _, metaFound := meta.Lookup(name)
	if metaFound {
		if p, ok := metaAttr.(*Property); ok {
			return e.propertyGet(p, c)
		}
	}
	if attr, _, ok := c.Lookup(name); ok {
		return e.bind(attr, nil, c), nil
	}
	if metaFound {
		return e.bind(metaAttr, c, meta), nil
	}
	if name == "__doc__" {
		return None, nil
	}
	return nil, NewError(AttributeErrorClass, "type object '%s' has no attribute '%s'", c.Name, name)
}

func (e *Engine) superAttr(s *Super, name string) (Value, error) {
	if name == "__class__" {
		return SuperClass, nil
	}
	mro := s.SelfClass.MRO
	start := len(mro)
	for i, k := range mro {
		if k == s.Class {
			start = i + 1
			break
		}
	}
	for _, k := range mro[start:] {
		attr, ok := k.Dict.GetStr(name)
		if !ok {
			continue
		}
		if p, ok := attr.(*Property); ok {
			return e.propertyGet(p, s.Self)
		}
		if s.Self == Value(s.SelfClass) {
			return e.bind(attr, nil, s.SelfClass), nil
		}
		return e.bind(attr, s.Self, s.SelfClass), nil
	}
	return nil, NewError(AttributeErrorClass, "'super' object has no attribute '%s'", name)
}

func functionAttr(fn *Function, name string) (Value, bool) {
	switch name {
	case "__name__":
		return Str(fn.Name), true
	case "__qualname__":
		return Str(fn.Qualname), true
	case "__code__":
		return &Code{Unit: fn.Code}, true
	case "__doc__":
		return fn.Doc, true
	case "__globals__":
		return fn.Globals, true
	case "__dict__":
		return fn.Dict, true
	case "__defaults__":
		if fn.Defaults == nil {
			return None, true
		}
		return fn.Defaults, true
	case "__kwdefaults__":
		if fn.KwDefaults == nil {
			return None, true
		}
		return fn.KwDefaults, true
	case "__annotations__":
		if fn.Annotations == nil {
			fn.Annotations = NewDict()
		}
		return fn.Annotations, true
	case "__closure__":
		if len(fn.Closure) == 0 {
			return None, true
		}
		cells := make(Tuple, len(fn.Closure))
		for i, c := range fn.Closure {
			cells[i] = c
		}
		return cells, true
	case "__module__":
		if name, ok := fn.Globals.GetStr("__name__"); ok {
			return name, true
		}
		return None, true
	}
	return nil, false
}

func (e *Engine) builtinAttr(v Value, name string) (Value, error) {
	switch name {
	case "__class__":
		return v.Type(), nil
	case "__name__":
		switch v := v.(type) {
		case *Builtin:
			return Str(v.Name), nil
		case *Generator:
			return Str(v.Name), nil
		case *BoundMethod:
			return e.GetAttr(v.Func, name)
		}
	}
	switch v := v.(type) {
	case *BoundMethod:
		switch name {
		case "__self__":
			return v.Self, nil
		case "__func__":
			return v.Func, nil
		}
	case *Cell:
		if name == "cell_contents" {
			if v.Value == nil {
				return nil, NewError(ValueErrorClass, "Cell is empty")
			}
			return v.Value, nil
		}
	case *Code:
		switch name {
		case "co_name":
			return Str(v.Unit.Name), nil
		case "co_filename":
			return Str(v.Unit.Filename), nil
		case "co_firstlineno":
			return Int(v.Unit.FirstLine), nil
		case "co_argcount":
			return Int(v.Unit.ArgCount), nil
		case "co_flags":
			return Int(v.Unit.Flags), nil
		}
	case *Traceback:
		switch name {
		case "tb_lineno":
			return Int(v.Line), nil
		case "tb_next":
			if v.Next == nil {
				return None, nil
			}
			return v.Next, nil
		}
	}
	cls := v.Type()
	if attr, _, ok := cls.Lookup(name); ok {
		if p, ok := attr.(*Property); ok {
			return e.propertyGet(p, v)
		}
		return e.bind(attr, v, cls), nil
	}
	return nil, attributeError(v, name)
}

func (e *Engine) SetAttr(v Value, name string, val Value) error {
	switch o := v.(type) {
	case *Instance:
		if setattr, ok := e.userSpecial(o, "__setattr__"); ok {
			_, err := e.call(setattr, []Value{Str(name), val}, nil)
			return err
		}
		return e.genericSetAttr(o, name, val)
	case *Class:
		if o.builtin {
			return NewError(TypeErrorClass, "can't set attributes of built-in/extension type '%s'", o.Name)
		}
		if attr, _, ok := o.Type().Lookup(name); ok {
			if p, ok := attr.(*Property); ok && p.Set != nil && p.Set != None {
				_, err := e.call(p.Set, []Value{o, val}, nil)
				return err
			}
		}
		if name == "__name__" {
			s, ok := val.(Str)
			if !ok {
				return NewError(TypeErrorClass, "can only assign string to %s.__name__, not '%s'", o.Name, TypeName(val))
			}
			o.Name = string(s)
			return nil
		}
		o.Dict.SetStr(name, val)
		return nil
	case *Module:
		o.Dict.SetStr(name, val)
		return nil
	case *Function:
		switch name {
		case "__doc__":
			o.Doc = val
		case "__name__":
			s, ok := val.(Str)
			if !ok {
				return NewError(TypeErrorClass, "__name__ must be set to a string object")
			}
			o.Name = string(s)
		case "__qualname__":
			s, ok := val.(Str)
			if !ok {
				return NewError(TypeErrorClass, "__qualname__ must be set to a string object")
			}
			o.Qualname = string(s)
		case "__defaults__":
			switch d := val.(type) {
			case NoneType:
				o.Defaults = nil
			case Tuple:
				o.Defaults = d
			default:
				return NewError(TypeErrorClass, "__defaults__ must be set to a tuple object")
			}
		default:
			o.Dict.SetStr(name, val)
		}
		return nil
	}
	return attributeError(v, name)
}

func (e *Engine) genericSetAttr(o *Instance, name string, val Value) error {
	if attr, _, ok := o.Class.Lookup(name); ok {
		if p, ok := attr.(*Property); ok {
			if p.Set == nil || p.Set == None {
				return NewError(AttributeErrorClass, "can't set attribute")
			}
			_, err := e.call(p.Set, []Value{o, val}, nil)
			return err
		}
	}
	if name == "__class__" {
		cls, ok := val.(*Class)
		if !ok || cls.builtin && !cls.IsSubclass(BaseExceptionClass) && cls != ObjectClass {
			return NewError(TypeErrorClass, "__class__ must be set to a class, not '%s' object", TypeName(val))
		}
		o.Class = cls
		return nil
	}
	o.Dict.SetStr(name, val)
	return nil
}

func (e *Engine) DelAttr(v Value, name string) error {
	switch o := v.(type) {
	case *Instance:
		if delattr, ok := e.userSpecial(o, "__delattr__"); ok {
			_, err := e.call(delattr, []Value{Str(name)}, nil)
			return err
		}
		return e.genericDelAttr(o, name)
	case *Class:
		if o.builtin {
			return NewError(TypeErrorClass, "can't set attributes of built-in/extension type '%s'", o.Name)
		}
		if !o.Dict.DeleteStr(name) {
			return NewError(AttributeErrorClass, "%s", name)
		}
		return nil
	case *Module:
		if !o.Dict.DeleteStr(name) {
			return NewError(AttributeErrorClass, "module '%s' has no attribute '%s'", o.Name, name)
		}
		return nil
	case *Function:
		if !o.Dict.DeleteStr(name) {
			return attributeError(v, name)
		}
		return nil
	}
	return attributeError(v, name)
}

func (e *Engine) genericDelAttr(o *Instance, name string) error {
	if attr, _, ok := o.Class.Lookup(name); ok {
		if p, ok := attr.(*Property); ok {
			if p.Del == nil || p.Del == None {
				return NewError(AttributeErrorClass, "can't delete attribute")
			}
			_, err := e.call(p.Del, []Value{o}, nil)
			return err
		}
	}
	if !o.Dict.DeleteStr(name) {
		return attributeError(o, name)
	}
	return nil
}

// HasAttr is getattr that maps AttributeError to false.
func (e *Engine) HasAttr(v Value, name string) (bool, error) {
	_, err := e.GetAttr(v, name)
	if err == nil {
		return true, nil
	}
	var pe *PyError
	if asPyError(err, &pe) && pe.Matches(AttributeErrorClass) {
		return false, nil
	}
	return false, err
}
