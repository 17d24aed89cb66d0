package pyvm

import (
	"math"
	"math/big"
	"math/cmplx"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

func (e *Engine) newBuiltins() *Dict {
	d := NewDict()
	for name, fn := range builtinFuncs {
		d.SetStr(name, NewBuiltin(name, fn))
	}
	for name, cls := range builtinClasses() {
		d.SetStr(name, cls)
	}
	for _, cls := range exceptionClasses {
		d.SetStr(cls.Name, cls)
	}
	d.SetStr("None", None)
	d.SetStr("True", True)
	d.SetStr("False", False)
	d.SetStr("Ellipsis", Ellipsis)
	d.SetStr("NotImplemented", NotImplemented)
	d.SetStr("__debug__", True)
	return d
}

func builtinClasses() map[string]*Class {
	return map[string]*Class{
		"object":       ObjectClass,
		"type":         TypeClass,
		"int":          IntClass,
		"bool":         BoolClass,
		"float":        FloatClass,
		"complex":      ComplexClass,
		"str":          StrClass,
		"bytes":        BytesClass,
		"tuple":        TupleClass,
		"list":         ListClass,
		"dict":         DictClass,
		"set":          SetClass,
		"frozenset":    FrozenSetClass,
		"range":        RangeClass,
		"slice":        SliceClass,
		"property":     PropertyClass,
		"staticmethod": StaticMethodClass,
		"classmethod":  ClassMethodClass,
		"super":        SuperClass,
		// 2.x spellings
		"unicode":    StrClass,
		"basestring": StrClass,
		"long":       IntClass,
	}
}

var builtinFuncs map[string]BuiltinFunc

func init() {
	builtinFuncs = map[string]BuiltinFunc{
		"print":            builtinPrint,
		"len":              builtinLen,
		"repr":             builtinRepr,
		"ascii":            builtinAscii,
		"format":           builtinFormat,
		"abs":              builtinAbs,
		"min":              minmax("min", "<"),
		"max":              minmax("max", ">"),
		"sum":              builtinSum,
		"pow":              builtinPow,
		"divmod":           builtinDivmod,
		"round":            builtinRound,
		"hex":              radixFormatter("hex", 'x', "0x"),
		"oct":              radixFormatter("oct", 'o', "0o"),
		"bin":              radixFormatter("bin", 'b', "0b"),
		"chr":              builtinChr,
		"unichr":           builtinChr,
		"ord":              builtinOrd,
		"isinstance":       builtinIsinstance,
		"issubclass":       builtinIssubclass,
		"callable":         builtinCallable,
		"id":               builtinID,
		"hash":             builtinHash,
		"iter":             builtinIter,
		"next":             builtinNext,
		"getattr":          builtinGetattr,
		"setattr":          builtinSetattr,
		"hasattr":          builtinHasattr,
		"delattr":          builtinDelattr,
		"sorted":           builtinSorted,
		"reversed":         builtinReversed,
		"enumerate":        builtinEnumerate,
		"zip":              builtinZip,
		"map":              builtinMap,
		"filter":           builtinFilter,
		"any":              anyAll(true),
		"all":              anyAll(false),
		"globals":          builtinGlobals,
		"locals":           builtinLocals,
		"vars":             builtinVars,
		"xrange":           builtinXrange,
		"reduce":           builtinReduce,
		"__build_class__":  builtinBuildClass,
		"__import__":       builtinImport,
	}
}

func builtinPrint(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("print", nil, kwargs, 0, "sep", "end", "file", "flush")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	for i, target := range []*string{&sep, &end} {
		switch v := opts[i].(type) {
		case nil, NoneType:
		case Str:
			*target = string(v)
		default:
			return nil, NewError(TypeErrorClass, "%s must be None or a string, not %s", []string{"sep", "end"}[i], TypeName(v))
		}
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteString(sep)
		}
		s, err := e.Str(arg)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	b.WriteString(end)
	return None, e.printWrite(opts[2], b.String())
}

func builtinLen(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("len", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n, err := e.Len(args[0])
	if err != nil {
		return nil, err
	}
	return Int(n), nil
}

func builtinRepr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("repr", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	s, err := e.Repr(args[0])
	return Str(s), err
}

func builtinAscii(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("ascii", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	s, err := e.Ascii(args[0])
	return Str(s), err
}

func builtinFormat(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("format", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(args) == 2 {
		s, err := strArg("format", args[1])
		if err != nil {
			return nil, err
		}
		spec = s
	}
	s, err := e.Format(args[0], spec)
	return Str(s), err
}

func builtinAbs(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("abs", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Bool, Int:
		n, _ := asInt64(v)
		if n == math.MinInt64 {
			return MakeBig(new(big.Int).Neg(big.NewInt(n))), nil
		}
		if n < 0 {
			n = -n
		}
		return Int(n), nil
	case *BigInt:
		return MakeBig(new(big.Int).Abs(v.V)), nil
	case Float:
		return Float(math.Abs(float64(v))), nil
	case Complex:
		return Float(cmplx.Abs(complex128(v))), nil
	}
	if m, ok := e.userSpecial(args[0], "__abs__"); ok {
		return e.call(m, nil, nil)
	}
	return nil, NewError(TypeErrorClass, "bad operand type for abs(): '%s'", TypeName(args[0]))
}

func minmax(name, op string) BuiltinFunc {
	return func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
		opts, err := unpackArgs(name, nil, kwargs, 0, "key", "default")
		if err != nil {
			return nil, err
		}
		key, def := opts[0], opts[1]
		if len(args) == 0 {
			return nil, NewError(TypeErrorClass, "%s expected 1 arguments, got 0", name)
		}
		items := args
		if len(args) == 1 {
			items, err = e.ToSlice(args[0])
			if err != nil {
				return nil, err
			}
		} else if def != nil {
			return nil, NewError(TypeErrorClass, "Cannot specify a default for %s() with multiple positional arguments", name)
		}
		if len(items) == 0 {
			if def != nil {
				return def, nil
			}
			return nil, NewError(ValueErrorClass, "%s() arg is an empty sequence", name)
		}
		var best, bestKey Value
		for _, item := range items {
			k := item
			if key != nil && key != None {
				k, err = e.call(key, []Value{item}, nil)
				if err != nil {
					return nil, err
				}
			}
			if best == nil {
				best, bestKey = item, k
				continue
			}
			better, err := e.Compare(op, k, bestKey)
			if err != nil {
				return nil, err
			}
			ok, err := e.Truth(better)
			if err != nil {
				return nil, err
			}
			if ok {
				best, bestKey = item, k
			}
		}
		return best, nil
	}
}

func builtinSum(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("sum", args, kwargs, 1, "iterable", "start")
	if err != nil {
		return nil, err
	}
	var acc Value = Int(0)
	if opts[1] != nil {
		acc = opts[1]
	}
	switch acc.(type) {
	case Str:
		return nil, NewError(TypeErrorClass, "sum() can't sum strings [use ''.join(seq) instead]")
	case Bytes:
		return nil, NewError(TypeErrorClass, "sum() can't sum bytes [use b''.join(seq) instead]")
	}
	items, err := e.ToSlice(opts[0])
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		acc, err = e.BinaryOp("+", acc, item)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinPow(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("pow", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	if len(args) == 2 || args[2] == None {
		return e.BinaryOp("**", args[0], args[1])
	}
	for _, v := range args {
		if r, ok := numericRank(v); !ok || r > rankBig {
			return nil, NewError(TypeErrorClass, "pow() 3rd argument not allowed unless all arguments are integers")
		}
	}
	base, exp, mod := toBig(args[0]), toBig(args[1]), toBig(args[2])
	if mod.Sign() == 0 {
		return nil, NewError(ValueErrorClass, "pow() 3rd argument cannot be 0")
	}
	if exp.Sign() < 0 {
		return nil, NewError(ValueErrorClass, "pow() 2nd argument cannot be negative when 3rd argument specified")
	}
	r := new(big.Int).Exp(base, exp, new(big.Int).Abs(mod))
	if r.Sign() != 0 && mod.Sign() < 0 {
		r.Add(r, mod)
	}
	return MakeBig(r), nil
}

func builtinDivmod(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("divmod", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	if m, ok := e.userSpecial(args[0], "__divmod__"); ok {
		return e.call(m, []Value{args[1]}, nil)
	}
	q, err := e.BinaryOp("//", args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := e.BinaryOp("%", args[0], args[1])
	if err != nil {
		return nil, err
	}
	return Tuple{q, r}, nil
}

func builtinRound(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("round", args, kwargs, 1, "number", "ndigits")
	if err != nil {
		return nil, err
	}
	x, nd := opts[0], opts[1]
	if m, ok := e.userSpecial(x, "__round__"); ok {
		var margs []Value
		if nd != nil {
			margs = []Value{nd}
		}
		return e.call(m, margs, nil)
	}
	digits := int64(0)
	if nd != nil && nd != None {
		n, ok, err := e.Index(nd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(TypeErrorClass, "'%s' object cannot be interpreted as an integer", TypeName(nd))
		}
		digits = n
	}
	switch v := x.(type) {
	case Bool, Int, *BigInt:
		if digits >= 0 {
			if i, ok := asInt64(v); ok {
				return Int(i), nil
			}
			return v, nil
		}
		p := new(big.Int).Exp(big.NewInt(10), big.NewInt(-digits), nil)
		n := toBig(v)
		q, r := new(big.Int).QuoRem(n, p, new(big.Int))
		twice := new(big.Int).Abs(new(big.Int).Mul(r, big.NewInt(2)))
		if c := twice.Cmp(p); c > 0 || (c == 0 && q.Bit(0) == 1) {
			if n.Sign() < 0 {
				q.Sub(q, big.NewInt(1))
			} else {
				q.Add(q, big.NewInt(1))
			}
		}
		return MakeBig(q.Mul(q, p)), nil
	case Float:
		f := float64(v)
		if e.py2() {
			p := math.Pow(10, float64(digits))
			return Float(math.Round(f*p) / p), nil
		}
		if nd == nil || nd == None {
			return floatToInt(math.RoundToEven(f))
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return v, nil
		}
		if digits < 0 {
			p := math.Pow(10, float64(-digits))
			return Float(math.RoundToEven(f/p) * p), nil
		}
		if digits > 300 {
			return v, nil
		}
		r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(digits), 64), 64)
		if err != nil {
			return nil, NewError(ValueErrorClass, "%s", err.Error())
		}
		return Float(r), nil
	}
	return nil, NewError(TypeErrorClass, "type %s doesn't define __round__ method", TypeName(x))
}

func floatToInt(f float64) (Value, error) {
	switch {
	case math.IsInf(f, 0):
		return nil, NewError(OverflowErrorClass, "cannot convert float infinity to integer")
	case math.IsNaN(f):
		return nil, NewError(ValueErrorClass, "cannot convert float NaN to integer")
	}
	f = math.Trunc(f)
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f)), nil
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return MakeBig(b), nil
}

func radixFormatter(name string, kind byte, prefix string) BuiltinFunc {
	return func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		var n *big.Int
		switch v := args[0].(type) {
		case Bool, Int, *BigInt:
			n = toBig(v)
		default:
			i, ok, err := e.Index(v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, NewError(TypeErrorClass, "'%s' object cannot be interpreted as an integer", TypeName(v))
			}
			n = big.NewInt(i)
		}
		p := prefix
		if e.py2() && kind == 'o' {
			p = "0"
			if n.Sign() == 0 {
				return Str("0"), nil
			}
		}
		digits := new(big.Int).Abs(n).Text(map[byte]int{'x': 16, 'o': 8, 'b': 2}[kind])
		if n.Sign() < 0 {
			return Str("-" + p + digits), nil
		}
		return Str(p + digits), nil
	}
}

func builtinChr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("chr", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n, err := intArg("chr", args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 || n > utf8.MaxRune {
		return nil, NewError(ValueErrorClass, "chr() arg not in range(0x110000)")
	}
	return Str(string(rune(n))), nil
}

func builtinOrd(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("ord", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Str:
		if n := utf8.RuneCountInString(string(v)); n != 1 {
			return nil, NewError(TypeErrorClass, "ord() expected a character, but string of length %d found", n)
		}
		r, _ := utf8.DecodeRuneInString(string(v))
		return Int(r), nil
	case Bytes:
		if len(v) != 1 {
			return nil, NewError(TypeErrorClass, "ord() expected a character, but string of length %d found", len(v))
		}
		return Int(v[0]), nil
	}
	return nil, NewError(TypeErrorClass, "ord() expected string of length 1, but %s found", TypeName(args[0]))
}

func classInfoMatch(fname string, cls *Class, info Value) (bool, error) {
	switch c := info.(type) {
	case *Class:
		return cls.IsSubclass(c), nil
	case Tuple:
		for _, item := range c {
			ok, err := classInfoMatch(fname, cls, item)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, NewError(TypeErrorClass, "%s() arg 2 must be a type or tuple of types", fname)
}

func builtinIsinstance(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("isinstance", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	ok, err := classInfoMatch("isinstance", args[0].Type(), args[1])
	return Bool(ok), err
}

func builtinIssubclass(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("issubclass", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	cls, ok := args[0].(*Class)
	if !ok {
		return nil, NewError(TypeErrorClass, "issubclass() arg 1 must be a class")
	}
	ok, err := classInfoMatch("issubclass", cls, args[1])
	return Bool(ok), err
}

func (e *Engine) isCallable(v Value) bool {
	switch v.(type) {
	case *Function, *Builtin, *BoundMethod, *Class:
		return true
	}
	_, ok := e.lookupSpecial(v, "__call__")
	return ok
}

func builtinCallable(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("callable", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return Bool(e.isCallable(args[0])), nil
}

func builtinID(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("id", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(args[0])
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		return Int(int64(rv.Pointer() >> 1)), nil
	}
	h, err := hashValue(args[0])
	return Int(int64(h >> 1)), err
}

func builtinHash(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("hash", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	if m, ok := e.userSpecial(args[0], "__hash__"); ok {
		ret, err := e.call(m, nil, nil)
		if err != nil {
			return nil, err
		}
		if _, ok := asInt64(ret); !ok {
			return nil, NewError(TypeErrorClass, "__hash__ method should return an integer")
		}
		return ret, nil
	}
	h, err := hashValue(args[0])
	if err != nil {
		return nil, err
	}
	return Int(int64(h)), nil
}

func builtinIter(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("iter", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return e.Iter(args[0])
	}
	fn, sentinel := args[0], args[1]
	if !e.isCallable(fn) {
		return nil, NewError(TypeErrorClass, "iter(v, w): v must be callable")
	}
	done := false
	return &Iterator{
		Name: "callable_iterator",
		Next: func() (Value, bool, error) {
			if done {
				return nil, false, nil
			}
			v, err := e.call(fn, nil, nil)
			if err != nil {
				if _, ok := StopIterationValue(err); ok {
					done = true
					return nil, false, nil
				}
				return nil, false, err
			}
			eq, err := e.Equal(v, sentinel)
			if err != nil {
				return nil, false, err
			}
			if eq {
				done = true
				return nil, false, nil
			}
			return v, true, nil
		},
	}, nil
}

func builtinNext(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("next", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	if !e.isIterator(args[0]) {
		return nil, NewError(TypeErrorClass, "'%s' object is not an iterator", TypeName(args[0]))
	}
	if g, ok := args[0].(*Generator); ok {
		v, err := e.Send(g, None)
		if err != nil && len(args) == 2 {
			if _, ok := StopIterationValue(err); ok {
				return args[1], nil
			}
		}
		return v, err
	}
	v, ok, err := e.Next(args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, stopIteration(None)
	}
	return v, nil
}

func attrName(fname string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", NewError(TypeErrorClass, "%s(): attribute name must be string", fname)
	}
	return string(s), nil
}

func builtinGetattr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("getattr", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return nil, err
	}
	v, err := e.GetAttr(args[0], name)
	if err != nil && len(args) == 3 {
		var pe *PyError
		if asPyError(err, &pe) && pe.Matches(AttributeErrorClass) {
			return args[2], nil
		}
	}
	return v, err
}

func builtinSetattr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("setattr", args, kwargs, 3, 3); err != nil {
		return nil, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return nil, err
	}
	return None, e.SetAttr(args[0], name, args[2])
}

func builtinHasattr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("hasattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return nil, err
	}
	ok, err := e.HasAttr(args[0], name)
	return Bool(ok), err
}

func builtinDelattr(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("delattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("delattr", args[1])
	if err != nil {
		return nil, err
	}
	return None, e.DelAttr(args[0], name)
}

// sortValues is a stable sort by key using the < operator.
func (e *Engine) sortValues(items []Value, key Value, reverse bool) error {
	keys := items
	if key != nil && key != None {
		keys = make([]Value, len(items))
		for i, item := range items {
			k, err := e.call(key, []Value{item}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	if reverse {
		slices.Reverse(idx)
	}
	var sortErr error
	slices.SortStableFunc(idx, func(a, b int) int {
		if sortErr != nil {
			return 0
		}
		for _, pair := range [2][2]int{{a, b}, {b, a}} {
			lt, err := e.Compare("<", keys[pair[0]], keys[pair[1]])
			if err != nil {
				sortErr = err
				return 0
			}
			ok, err := e.Truth(lt)
			if err != nil {
				sortErr = err
				return 0
			}
			if ok {
				if pair[0] == a {
					return -1
				}
				return 1
			}
		}
		return 0
	})
	if sortErr != nil {
		return sortErr
	}
	if reverse {
		slices.Reverse(idx)
	}
	sorted := make([]Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func builtinSorted(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if len(args) != 1 {
		return nil, NewError(TypeErrorClass, "sorted expected 1 argument, got %d", len(args))
	}
	opts, err := unpackArgs("sorted", nil, kwargs, 0, "key", "reverse")
	if err != nil {
		return nil, err
	}
	items, err := e.ToSlice(args[0])
	if err != nil {
		return nil, err
	}
	reverse := false
	if opts[1] != nil {
		if reverse, err = e.Truth(opts[1]); err != nil {
			return nil, err
		}
	}
	if err := e.sortValues(items, opts[0], reverse); err != nil {
		return nil, err
	}
	return NewList(items...), nil
}

func builtinReversed(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("reversed", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	seq := args[0]
	if m, ok := e.userSpecial(seq, "__reversed__"); ok {
		return e.call(m, nil, nil)
	}
	switch s := seq.(type) {
	case Str, Tuple, *List, *Range, Bytes:
		items, err := e.ToSlice(s)
		if err != nil {
			return nil, err
		}
		slices.Reverse(items)
		return sliceIterator("reversed", func() []Value { return items }), nil
	}
	if _, ok := e.userSpecial(seq, "__getitem__"); ok {
		n, err := e.Len(seq)
		if err != nil {
			return nil, err
		}
		i := n
		return &Iterator{
			Name: "reversed",
			Next: func() (Value, bool, error) {
				if i <= 0 {
					return nil, false, nil
				}
				i--
				v, err := e.GetItem(seq, Int(i))
				return v, err == nil, err
			},
		}, nil
	}
	return nil, NewError(TypeErrorClass, "'%s' object is not reversible", TypeName(seq))
}

// lazy turns an iterator into a list under 2.x semantics.
func (e *Engine) lazy(it *Iterator) (Value, error) {
	if !e.py2() {
		return it, nil
	}
	items, err := e.ToSlice(it)
	if err != nil {
		return nil, err
	}
	return NewList(items...), nil
}

func builtinEnumerate(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("enumerate", args, kwargs, 1, "iterable", "start")
	if err != nil {
		return nil, err
	}
	it, err := e.Iter(opts[0])
	if err != nil {
		return nil, err
	}
	var i Value = Int(0)
	if opts[1] != nil {
		i = opts[1]
	}
	return &Iterator{
		Name: "enumerate",
		Next: func() (Value, bool, error) {
			v, ok, err := e.Next(it)
			if err != nil || !ok {
				return nil, false, err
			}
			ret := Tuple{i, v}
			i, err = e.BinaryOp("+", i, Int(1))
			return ret, err == nil, err
		},
	}, nil
}

func (e *Engine) iterators(fname string, args []Value) ([]Value, error) {
	its := make([]Value, len(args))
	for i, arg := range args {
		it, err := e.Iter(arg)
		if err != nil {
			var pe *PyError
			if asPyError(err, &pe) && pe.Matches(TypeErrorClass) {
				return nil, NewError(TypeErrorClass, "%s argument #%d must support iteration", fname, i+1)
			}
			return nil, err
		}
		its[i] = it
	}
	return its, nil
}

// nextAll advances every iterator; ok is false when any is exhausted.
func (e *Engine) nextAll(its []Value) ([]Value, bool, error) {
	vs := make([]Value, len(its))
	for i, it := range its {
		v, ok, err := e.Next(it)
		if err != nil || !ok {
			return nil, false, err
		}
		vs[i] = v
	}
	return vs, true, nil
}

func builtinZip(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := noKwargs("zip", kwargs); err != nil {
		return nil, err
	}
	its, err := e.iterators("zip", args)
	if err != nil {
		return nil, err
	}
	return e.lazy(&Iterator{
		Name: "zip",
		Next: func() (Value, bool, error) {
			if len(its) == 0 {
				return nil, false, nil
			}
			vs, ok, err := e.nextAll(its)
			return Tuple(vs), ok, err
		},
	})
}

func builtinMap(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := noKwargs("map", kwargs); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, NewError(TypeErrorClass, "map() must have at least two arguments.")
	}
	fn := args[0]
	its, err := e.iterators("map()", args[1:])
	if err != nil {
		return nil, err
	}
	return e.lazy(&Iterator{
		Name: "map",
		Next: func() (Value, bool, error) {
			vs, ok, err := e.nextAll(its)
			if err != nil || !ok {
				return nil, false, err
			}
			if fn == None {
				if len(vs) == 1 {
					return vs[0], true, nil
				}
				return Tuple(vs), true, nil
			}
			v, err := e.call(fn, vs, nil)
			return v, err == nil, err
		},
	})
}

func builtinFilter(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("filter", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	fn := args[0]
	it, err := e.Iter(args[1])
	if err != nil {
		return nil, err
	}
	return e.lazy(&Iterator{
		Name: "filter",
		Next: func() (Value, bool, error) {
			for {
				v, ok, err := e.Next(it)
				if err != nil || !ok {
					return nil, false, err
				}
				test := v
				if fn != None {
					if test, err = e.call(fn, []Value{v}, nil); err != nil {
						return nil, false, err
					}
				}
				keep, err := e.Truth(test)
				if err != nil {
					return nil, false, err
				}
				if keep {
					return v, true, nil
				}
			}
		},
	})
}

func anyAll(isAny bool) BuiltinFunc {
	name := "all"
	if isAny {
		name = "any"
	}
	return func(e *Engine, args []Value, kwargs *Dict) (Value, error) {
		if err := argCount(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		it, err := e.Iter(args[0])
		if err != nil {
			return nil, err
		}
		for {
			v, ok, err := e.Next(it)
			if err != nil {
				return nil, err
			}
			if !ok {
				return Bool(!isAny), nil
			}
			t, err := e.Truth(v)
			if err != nil {
				return nil, err
			}
			if t == isAny {
				return Bool(isAny), nil
			}
		}
	}
}

func builtinGlobals(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("globals", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	if e.frame == nil {
		return NewDict(), nil
	}
	return e.frame.Globals, nil
}

// frameLocalsDict is locals() of f; for fast locals it is a snapshot.
func frameLocalsDict(f *Frame) *Dict {
	if f.Locals != nil {
		return f.Locals
	}
	d := NewDict()
	for i, name := range f.Code.VarNames {
		if i < len(f.Fast) && f.Fast[i] != nil {
			d.SetStr(name, f.Fast[i])
		}
	}
	for i, cell := range f.Cells {
		if cell.Value != nil {
			d.SetStr(f.cellName(i), cell.Value)
		}
	}
	return d
}

func builtinLocals(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("locals", args, kwargs, 0, 0); err != nil {
		return nil, err
	}
	if e.frame == nil {
		return NewDict(), nil
	}
	return frameLocalsDict(e.frame), nil
}

func builtinVars(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("vars", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return builtinLocals(e, nil, nil)
	}
	v, err := e.GetAttr(args[0], "__dict__")
	if err != nil {
		return nil, NewError(TypeErrorClass, "vars() argument must have __dict__ attribute")
	}
	return v, nil
}

func builtinXrange(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	return newRange(e, args, kwargs)
}

func builtinReduce(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	if err := argCount("reduce", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	items, err := e.ToSlice(args[1])
	if err != nil {
		return nil, err
	}
	var acc Value
	if len(args) == 3 {
		acc = args[2]
	}
	for _, item := range items {
		if acc == nil {
			acc = item
			continue
		}
		if acc, err = e.call(args[0], []Value{acc, item}, nil); err != nil {
			return nil, err
		}
	}
	if acc == nil {
		return nil, NewError(TypeErrorClass, "reduce() of empty sequence with no initial value")
	}
	return acc, nil
}

func builtinBuildClass(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	return e.buildClass(args, kwargs)
}

func builtinImport(e *Engine, args []Value, kwargs *Dict) (Value, error) {
	opts, err := unpackArgs("__import__", args, kwargs, 1, "name", "globals", "locals", "fromlist", "level")
	if err != nil {
		return nil, err
	}
	name, err := strArg("__import__", opts[0])
	if err != nil {
		return nil, err
	}
	var fromlist Value = None
	if opts[3] != nil {
		fromlist = opts[3]
	}
	return e.importModule(name, fromlist)
}
