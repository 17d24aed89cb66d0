package pyvm

import (
	"slices"
)

// unpackArgs matches positional and keyword arguments against parameter names.
// The first required names must be present; missing optional ones come back nil.
func unpackArgs(fname string, args []Value, kwargs *Dict, required int, names ...string) ([]Value, error) {
	if len(args) > len(names) {
		if len(names) == required {
			return nil, NewError(TypeErrorClass, "%s() takes exactly %d argument%s (%d given)", fname, len(names), pluralS(len(names) != 1), len(args))
		}
		return nil, NewError(TypeErrorClass, "%s expected at most %d argument%s, got %d", fname, len(names), pluralS(len(names) != 1), len(args))
	}
	ret := make([]Value, len(names))
	copy(ret, args)
	for k, v := range kwargs.All() {
		key, _ := k.(Str)
		i := slices.Index(names, string(key))
		if i < 0 {
			return nil, NewError(TypeErrorClass, "%s() got an unexpected keyword argument '%s'", fname, key)
		}
		if ret[i] != nil {
			return nil, NewError(TypeErrorClass, "argument for %s() given by name ('%s') and position (%d)", fname, key, i+1)
		}
		ret[i] = v
	}
	for i := range required {
		if ret[i] == nil {
			return nil, NewError(TypeErrorClass, "%s() missing required argument '%s' (pos %d)", fname, names[i], i+1)
		}
	}
	return ret, nil
}

func noKwargs(fname string, kwargs *Dict) error {
	if kwargs.Len() > 0 {
		return NewError(TypeErrorClass, "%s() takes no keyword arguments", fname)
	}
	return nil
}

// argCount checks a positional-only argument count.
func argCount(fname string, args []Value, kwargs *Dict, lo, hi int) error {
	if err := noKwargs(fname, kwargs); err != nil {
		return err
	}
	switch {
	case len(args) < lo && lo == hi:
		return NewError(TypeErrorClass, "%s() takes exactly %d argument%s (%d given)", fname, lo, pluralS(lo != 1), len(args))
	case len(args) < lo:
		return NewError(TypeErrorClass, "%s expected at least %d argument%s, got %d", fname, lo, pluralS(lo != 1), len(args))
	case hi >= 0 && len(args) > hi && lo == hi:
		if hi == 0 {
			return NewError(TypeErrorClass, "%s() takes no arguments (%d given)", fname, len(args))
		}
		return NewError(TypeErrorClass, "%s() takes exactly %d argument%s (%d given)", fname, hi, pluralS(hi != 1), len(args))
	case hi >= 0 && len(args) > hi:
		return NewError(TypeErrorClass, "%s expected at most %d argument%s, got %d", fname, hi, pluralS(hi != 1), len(args))
	}
	return nil
}

// defineMethod installs a method whose receiver must be a T.
func defineMethod[T Value](cls *Class, name string, fn func(e *Engine, self T, args []Value, kwargs *Dict) (Value, error)) {
	cls.Dict.SetStr(name, newMethod(name, func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
		if len(args) == 0 {
			return nil, NewError(TypeErrorClass, "descriptor '%s' of '%s' object needs an argument", name, cls.Name)
		}
		self, ok := args[0].(T)
		if !ok {
			return nil, NewError(TypeErrorClass, "descriptor '%s' requires a '%s' object but received a '%s'", name, cls.Name, TypeName(args[0]))
		}
		return fn(e, self, args[1:], kwargs)
	}))
}

// defineNew installs __new__; fn receives the class being instantiated.
func defineNew(cls *Class, fn func(e *Engine, cls *Class, args []Value, kwargs *Dict) (Value, error)) {
	cls.Dict.SetStr("__new__", &StaticMethod{
		Func: NewBuiltin("__new__", func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
			if len(args) == 0 {
				return nil, NewError(TypeErrorClass, "%s.__new__(): not enough arguments", cls.Name)
			}
			sub, ok := args[0].(*Class)
			if !ok {
				return nil, NewError(TypeErrorClass, "%s.__new__(X): X is not a type object (%s)", cls.Name, TypeName(args[0]))
			}
			if !sub.IsSubclass(cls) {
				return nil, NewError(TypeErrorClass, "%s.__new__(%s): %s is not a subtype of %s", cls.Name, sub.Name, sub.Name, cls.Name)
			}
			return fn(e, sub, args[1:], kwargs)
		}),
	})
}

func intArg(fname string, v Value) (int64, error) {
	n, ok := asInt64(v)
	if !ok {
		return 0, NewError(TypeErrorClass, "%s() argument must be int, not %s", fname, TypeName(v))
	}
	return n, nil
}

func strArg(fname string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", NewError(TypeErrorClass, "%s() argument must be str, not %s", fname, TypeName(v))
	}
	return string(s), nil
}

// py2 reports whether the running code uses 2.x builtins semantics.
func (e *Engine) py2() bool {
	return e.frame != nil && e.frame.Behavior.py2
}
