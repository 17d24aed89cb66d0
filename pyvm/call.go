package pyvm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

func asPyError(err error, target **PyError) bool {
	return errors.As(err, target)
}

func (e *Engine) call(callable Value, args []Value, kwargs *Dict) (Value, error) {
	switch fn := callable.(type) {
	case *Function:
		return e.callFunction(fn, args, kwargs)
	case *Builtin:
		return fn.Func(e, args, kwargs)
	case *BoundMethod:
		return e.call(fn.Func, append([]Value{fn.Self}, args...), kwargs)
	case *Class:
		return e.callClass(fn, args, kwargs)
	case *StaticMethod:
		return e.call(fn.Func, args, kwargs)
	}
	if method, ok := e.lookupSpecial(callable, "__call__"); ok {
		return e.call(method, args, kwargs)
	}
	return nil, NewError(TypeErrorClass, "'%s' object is not callable", TypeName(callable))
}

func (e *Engine) callFunction(fn *Function, args []Value, kwargs *Dict) (Value, error) {
	f, err := e.newFrame(fn.Code, fn.Globals, nil, fn.Closure)
	if err != nil {
		return nil, err
	}
	if err := e.bindArgs(fn, f, args, kwargs); err != nil {
		return nil, err
	}
	if fn.Code.IsGenerator() {
		g := newGenerator(f)
		g.Name = fn.Name
		return g, nil
	}
	return e.runFrame(f)
}

// bindArgs fills the fast locals of f from a call's arguments.
func (e *Engine) bindArgs(fn *Function, f *Frame, args []Value, kwargs *Dict) error {
	co := fn.Code
	name := co.Name
	argCount := co.ArgCount
	total := argCount + co.KwOnlyArgCount
	if len(f.Fast) < co.ParamCount() {
		return &InternalError{
			Code: co,
			Err:  internalf(ErrBadOperand, "%d locals for %d parameters", len(f.Fast), co.ParamCount()),
		}
	}

	var varkw *Dict
	slot := total
	if co.HasVarargs() {
		slot++
	}
	if co.HasVarkeywords() {
		varkw = NewDict()
		f.Fast[slot] = varkw
	}

	n := min(len(args), argCount)
	copy(f.Fast, args[:n])
	if co.HasVarargs() {
		f.Fast[total] = Tuple(slices.Clone(args[n:]))
	}

	var posOnlyAsKw []string
	if kwargs != nil {
		for k, v := range kwargs.All() {
			key, ok := k.(Str)
			if !ok {
				return NewError(TypeErrorClass, "%s() keywords must be strings", name)
			}
			idx := slices.Index(co.VarNames[co.PosOnlyArgCount:total], string(key))
			if idx < 0 {
				if varkw == nil {
					if slices.Contains(co.VarNames[:co.PosOnlyArgCount], string(key)) {
						posOnlyAsKw = append(posOnlyAsKw, string(key))
						continue
					}
					return NewError(TypeErrorClass, "%s() got an unexpected keyword argument '%s'", name, key)
				}
				varkw.Set(k, v)
				continue
			}
			idx += co.PosOnlyArgCount
			if f.Fast[idx] != nil {
				return NewError(TypeErrorClass, "%s() got multiple values for argument '%s'", name, key)
			}
			f.Fast[idx] = v
		}
	}
	if len(posOnlyAsKw) > 0 {
		return NewError(TypeErrorClass, "%s() got some positional-only arguments passed as keyword arguments: '%s'", name, strings.Join(posOnlyAsKw, ", "))
	}

	if len(args) > argCount && !co.HasVarargs() {
		return e.tooManyPositional(fn, f, len(args))
	}

	if len(args) < argCount {
		required := argCount - len(fn.Defaults)
		var missing []string
		for i := len(args); i < required; i++ {
			if f.Fast[i] == nil {
				missing = append(missing, co.VarNames[i])
			}
		}
		if len(missing) > 0 {
			return missingArguments(name, "positional", missing)
		}
		for i := max(required, len(args)); i < argCount; i++ {
			if f.Fast[i] == nil {
				f.Fast[i] = fn.Defaults[i-required]
			}
		}
	}

	if co.KwOnlyArgCount > 0 {
		var missing []string
		for i := argCount; i < total; i++ {
			if f.Fast[i] != nil {
				continue
			}
			if fn.KwDefaults != nil {
				if v, ok := fn.KwDefaults.GetStr(co.VarNames[i]); ok {
					f.Fast[i] = v
					continue
				}
			}
			missing = append(missing, co.VarNames[i])
		}
		if len(missing) > 0 {
			return missingArguments(name, "keyword-only", missing)
		}
	}

	for i, cellName := range co.CellVars {
		if j := slices.Index(co.VarNames[:co.ParamCount()], cellName); j >= 0 {
			f.Cells[i].Value = f.Fast[j]
			f.Fast[j] = nil
		}
	}
	return nil
}

func (e *Engine) tooManyPositional(fn *Function, f *Frame, given int) error {
	co := fn.Code
	var sig string
	plural := co.ArgCount != 1
	if len(fn.Defaults) > 0 {
		sig = fmt.Sprintf("from %d to %d", co.ArgCount-len(fn.Defaults), co.ArgCount)
		plural = true
	} else {
		sig = fmt.Sprint(co.ArgCount)
	}
	kwGiven := 0
	for i := co.ArgCount; i < co.ArgCount+co.KwOnlyArgCount; i++ {
		if f.Fast[i] != nil {
			kwGiven++
		}
	}
	var kwSig string
	if kwGiven > 0 {
		kwSig = fmt.Sprintf(" positional argument%s (and %d keyword-only argument%s)", pluralS(given != 1), kwGiven, pluralS(kwGiven != 1))
	}
	was := "was"
	if given != 1 {
		was = "were"
	}
	return NewError(TypeErrorClass, "%s() takes %s positional argument%s but %d%s %s given", co.Name, sig, pluralS(plural), given, kwSig, was)
}

func pluralS(plural bool) string {
	if plural {
		return "s"
	}
	return ""
}

func missingArguments(name, kind string, names []string) error {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	var list string
	switch len(quoted) {
	case 1:
		list = quoted[0]
	case 2:
		list = quoted[0] + " and " + quoted[1]
	default:
		list = strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
	}
	return NewError(TypeErrorClass, "%s() missing %d required %s argument%s: %s", name, len(names), kind, pluralS(len(names) != 1), list)
}

// callClass is type.__call__, unless the metaclass overrides __call__.
func (e *Engine) callClass(cls *Class, args []Value, kwargs *Dict) (Value, error) {
	if meta := cls.Type(); meta != TypeClass {
		if fn, ok := meta.lookupUser("__call__"); ok {
			return e.call(e.bind(fn, cls, meta), args, kwargs)
		}
	}
	return e.typeCall(cls, args, kwargs)
}

func (e *Engine) typeCall(cls *Class, args []Value, kwargs *Dict) (Value, error) {
	if cls == TypeClass && len(args) == 1 && kwargs.Len() == 0 {
		return args[0].Type(), nil
	}
	newFn, _, ok := cls.Lookup("__new__")
	if !ok {
		return nil, NewError(TypeErrorClass, "cannot create '%s' instances", cls.Name)
	}
	obj, err := e.call(unwrapStatic(newFn), append([]Value{cls}, args...), kwargs)
	if err != nil {
		return nil, err
	}
	if !obj.Type().IsSubclass(cls) {
		return obj, nil
	}
	initFn, _, ok := obj.Type().Lookup("__init__")
	if !ok {
		return obj, nil
	}
	ret, err := e.call(e.bind(initFn, obj, obj.Type()), args, kwargs)
	if err != nil {
		return nil, err
	}
	if ret != None {
		return nil, NewError(TypeErrorClass, "__init__() should return None, not '%s'", TypeName(ret))
	}
	return obj, nil
}

func unwrapStatic(v Value) Value {
	if s, ok := v.(*StaticMethod); ok {
		return s.Func
	}
	return v
}

// makeException normalizes the operands of raise into an exception.
func (e *Engine) makeException(typ, val Value) (*PyError, error) {
	if val == nil {
		val = None
	}
	switch t := typ.(type) {
	case *Class:
		if !t.IsSubclass(BaseExceptionClass) {
			break
		}
		if isException(val) && val.Type().IsSubclass(t) {
			return e.exceptionError(val), nil
		}
		var args []Value
		switch v := val.(type) {
		case NoneType:
		case Tuple:
			args = v
		default:
			args = []Value{v}
		}
		inst, err := e.call(t, args, nil)
		if err != nil {
			return nil, err
		}
		if !isException(inst) {
			return nil, NewError(TypeErrorClass, "calling %s should have returned an instance of BaseException, not %s", t.Name, TypeName(inst))
		}
		return e.exceptionError(inst), nil
	case *Instance:
		if isException(t) {
			if val != None {
				return nil, NewError(TypeErrorClass, "instance exception may not have a separate value")
			}
			return e.exceptionError(t), nil
		}
	}
	return nil, NewError(TypeErrorClass, "exceptions must derive from BaseException")
}

func (e *Engine) exceptionError(inst Value) *PyError {
	s := ExceptionState{
		Type:  inst.Type(),
		Value: inst,
	}
	if tb, ok := exceptionAttr(inst, "__traceback__").(*Traceback); ok {
		s.Traceback = tb
	}
	return &PyError{
		Exception: s,
	}
}
