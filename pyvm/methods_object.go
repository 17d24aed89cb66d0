package pyvm

func init() {
	defineNew(ObjectClass, objectNew)
	ObjectClass.Dict.SetStr("__init__", newMethod("__init__", objectInit))
	ObjectClass.Dict.SetStr("__init_subclass__", &ClassMethod{
		Func: NewBuiltin("__init_subclass__", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
			if kwargs.Len() > 0 {
				return nil, NewError(TypeErrorClass, "__init_subclass__() takes no keyword arguments")
			}
			return None, nil
		}),
	})

	defineNew(TypeClass, typeNew)
	TypeClass.Dict.SetStr("__init__", newMethod("__init__", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
		if n := len(args) - 1; n != 1 && n != 3 {
			return nil, NewError(TypeErrorClass, "type.__init__() takes 1 or 3 arguments")
		}
		return None, nil
	}))
	defineMethod(TypeClass, "mro", func(e *Engine, self *Class, args []Value, kwargs *Dict) (Value, error) {
		items := make([]Value, len(self.MRO))
		for i, c := range self.MRO {
			items[i] = c
		}
		return NewList(items...), nil
	})

	defineNew(BaseExceptionClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		inst := NewInstance(cls)
		initException(inst, Tuple(args))
		return inst, nil
	})
	defineMethod(BaseExceptionClass, "__init__", func(e *Engine, self *Instance, args []Value, kwargs *Dict) (Value, error) {
		if err := noKwargs(self.Class.Name, kwargs); err != nil {
			return nil, err
		}
		initException(self, Tuple(args))
		return None, nil
	})
	defineMethod(BaseExceptionClass, "with_traceback", func(e *Engine, self *Instance, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("with_traceback", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		switch args[0].(type) {
		case NoneType, *Traceback:
		default:
			return nil, NewError(TypeErrorClass, "__traceback__ must be a traceback or None")
		}
		self.Dict.SetStr("__traceback__", args[0])
		return self, nil
	})

	defineNew(PropertyClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		opts, err := unpackArgs("property", args, kwargs, 0, "fget", "fset", "fdel", "doc")
		if err != nil {
			return nil, err
		}
		p := &Property{
			Get: opts[0],
			Set: opts[1],
			Del: opts[2],
			Doc: opts[3],
		}
		if p.Doc == nil && p.Get != nil {
			if doc, err := e.GetAttr(p.Get, "__doc__"); err == nil {
				p.Doc = doc
			}
		}
		return p, nil
	})
	for _, name := range []string{"getter", "setter", "deleter"} {
		defineMethod(PropertyClass, name, func(e *Engine, self *Property, args []Value, kwargs *Dict) (Value, error) {
			if err := argCount(name, args, kwargs, 1, 1); err != nil {
				return nil, err
			}
			p := *self
			switch name {
			case "getter":
				p.Get = args[0]
			case "setter":
				p.Set = args[0]
			default:
				p.Del = args[0]
			}
			return &p, nil
		})
	}

	defineNew(StaticMethodClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("staticmethod", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		return &StaticMethod{Func: args[0]}, nil
	})
	defineNew(ClassMethodClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("classmethod", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		return &ClassMethod{Func: args[0]}, nil
	})
	defineNew(SuperClass, func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
		if err := noKwargs("super", kwargs); err != nil {
			return nil, err
		}
		return e.newSuper(args)
	})

	generatorNext := func(e *Engine, self *Generator, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("__next__", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		return e.Send(self, None)
	}
	defineMethod(GeneratorClass, "__next__", generatorNext)
	defineMethod(GeneratorClass, "next", generatorNext)
	defineMethod(GeneratorClass, "__iter__", func(e *Engine, self *Generator, args []Value, kwargs *Dict) (Value, error) {
		return self, nil
	})
	defineMethod(GeneratorClass, "send", func(e *Engine, self *Generator, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("send", args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		return e.Send(self, args[0])
	})
	defineMethod(GeneratorClass, "throw", func(e *Engine, self *Generator, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("throw", args, kwargs, 1, 3); err != nil {
			return nil, err
		}
		var val Value = None
		if len(args) > 1 {
			val = args[1]
		}
		return e.Throw(self, args[0], val)
	})
	defineMethod(GeneratorClass, "close", func(e *Engine, self *Generator, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("close", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		return None, e.Close(self)
	})

	iteratorNext := func(e *Engine, self *Iterator, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount("__next__", args, kwargs, 0, 0); err != nil {
			return nil, err
		}
		v, ok, err := self.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, stopIteration(None)
		}
		return v, nil
	}
	defineMethod(IteratorClass, "__next__", iteratorNext)
	defineMethod(IteratorClass, "next", iteratorNext)
	defineMethod(IteratorClass, "__iter__", func(e *Engine, self *Iterator, args []Value, kwargs *Dict) (Value, error) {
		return self, nil
	})
}

// overrides reports whether cls resolves name to something other than object's own.
func overrides(cls *Class, name string) bool {
	own, _ := ObjectClass.Dict.GetStr(name)
	v, _, _ := cls.Lookup(name)
	return v != own
}

func objectNew(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error) {
	if len(args) > 0 || kwargs.Len() > 0 {
		if overrides(cls, "__new__") {
			return nil, NewError(TypeErrorClass, "object.__new__() takes exactly one argument (the type to instantiate)")
		}
		if !overrides(cls, "__init__") {
			return nil, NewError(TypeErrorClass, "%s() takes no arguments", cls.Name)
		}
	}
	if cls.builtin && cls != ObjectClass && !cls.IsSubclass(BaseExceptionClass) {
		return nil, NewError(TypeErrorClass, "object.__new__(%s) is not safe, use %s.__new__()", cls.Name, cls.Name)
	}
	if cls.IsSubclass(BaseExceptionClass) {
		inst := NewInstance(cls)
		initException(inst, nil)
		return inst, nil
	}
	return NewInstance(cls), nil
}

func objectInit(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if len(args) == 0 {
		return nil, NewError(TypeErrorClass, "descriptor '__init__' of 'object' object needs an argument")
	}
	if len(args) > 1 || kwargs.Len() > 0 {
		cls := args[0].Type()
		if overrides(cls, "__init__") {
			return nil, NewError(TypeErrorClass, "object.__init__() takes exactly one argument (the instance to initialize)")
		}
		if !overrides(cls, "__new__") {
			return nil, NewError(TypeErrorClass, "%s() takes no arguments", cls.Name)
		}
	}
	return None, nil
}

func typeNew(e *Engine, meta *Class, args []Value, kwargs *Dict) (Value, error) {
	if len(args) == 1 && meta == TypeClass && kwargs.Len() == 0 {
		return args[0].Type(), nil
	}
	if len(args) != 3 {
		return nil, NewError(TypeErrorClass, "type() takes 1 or 3 arguments")
	}
	name, ok := args[0].(Str)
	if !ok {
		return nil, NewError(TypeErrorClass, "type.__new__() argument 1 must be str, not %s", TypeName(args[0]))
	}
	bases, err := classBases(args[1])
	if err != nil {
		return nil, err
	}
	ns, ok := args[2].(*Dict)
	if !ok {
		return nil, NewError(TypeErrorClass, "type.__new__() argument 3 must be dict, not %s", TypeName(args[2]))
	}
	winner, err := mostDerivedMeta(meta, bases)
	if err != nil {
		return nil, err
	}
	cls, err := e.newClass(winner, string(name), bases, ns)
	if err != nil {
		return nil, err
	}
	// __init_subclass__ runs on the nearest base.
	for _, base := range cls.MRO[1:] {
		hook, ok := base.Dict.GetStr("__init_subclass__")
		if !ok {
			continue
		}
		if _, err := e.call(e.bind(hook, nil, cls), nil, kwargs); err != nil {
			return nil, err
		}
		break
	}
	return cls, nil
}
