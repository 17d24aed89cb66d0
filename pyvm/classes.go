package pyvm

var (
	ObjectClass = newBuiltinClass("object")
	TypeClass   = newBuiltinClass("type", ObjectClass)

	NoneClass           = newFinalClass("NoneType", ObjectClass)
	IntClass            = newFinalClass("int", ObjectClass)
	BoolClass           = newFinalClass("bool", IntClass)
	FloatClass          = newFinalClass("float", ObjectClass)
	ComplexClass        = newFinalClass("complex", ObjectClass)
	StrClass            = newFinalClass("str", ObjectClass)
	BytesClass          = newFinalClass("bytes", ObjectClass)
	TupleClass          = newFinalClass("tuple", ObjectClass)
	ListClass           = newFinalClass("list", ObjectClass)
	DictClass           = newFinalClass("dict", ObjectClass)
	SetClass            = newFinalClass("set", ObjectClass)
	FrozenSetClass      = newFinalClass("frozenset", ObjectClass)
	RangeClass          = newFinalClass("range", ObjectClass)
	SliceClass          = newFinalClass("slice", ObjectClass)
	EllipsisClass       = newFinalClass("ellipsis", ObjectClass)
	NotImplementedClass = newFinalClass("NotImplementedType", ObjectClass)
	ModuleClass         = newFinalClass("module", ObjectClass)
	CodeClass           = newFinalClass("code", ObjectClass)
	PropertyClass       = newFinalClass("property", ObjectClass)
	StaticMethodClass   = newFinalClass("staticmethod", ObjectClass)
	ClassMethodClass    = newFinalClass("classmethod", ObjectClass)
	SuperClass          = newFinalClass("super", ObjectClass)
	IteratorClass       = newFinalClass("iterator", ObjectClass)
	FunctionClass       = newFinalClass("function", ObjectClass)
	BoundMethodClass    = newFinalClass("method", ObjectClass)
	BuiltinClass        = newFinalClass("builtin_function_or_method", ObjectClass)
	CellClass           = newFinalClass("cell", ObjectClass)
	GeneratorClass      = newFinalClass("generator", ObjectClass)
	TracebackClass      = newFinalClass("traceback", ObjectClass)
	whyClass            = newFinalClass("why", ObjectClass)
)

var (
	BaseExceptionClass       = newBuiltinClass("BaseException", ObjectClass)
	KeyboardInterruptClass   = newBuiltinClass("KeyboardInterrupt", BaseExceptionClass)
	GeneratorExitClass       = newBuiltinClass("GeneratorExit", BaseExceptionClass)
	ExceptionClass           = newBuiltinClass("Exception", BaseExceptionClass)
	StopIterationClass       = newBuiltinClass("StopIteration", ExceptionClass)
	ArithmeticErrorClass     = newBuiltinClass("ArithmeticError", ExceptionClass)
	ZeroDivisionErrorClass   = newBuiltinClass("ZeroDivisionError", ArithmeticErrorClass)
	OverflowErrorClass       = newBuiltinClass("OverflowError", ArithmeticErrorClass)
	AssertionErrorClass      = newBuiltinClass("AssertionError", ExceptionClass)
	AttributeErrorClass      = newBuiltinClass("AttributeError", ExceptionClass)
	ImportErrorClass         = newBuiltinClass("ImportError", ExceptionClass)
	LookupErrorClass         = newBuiltinClass("LookupError", ExceptionClass)
	IndexErrorClass          = newBuiltinClass("IndexError", LookupErrorClass)
	KeyErrorClass            = newBuiltinClass("KeyError", LookupErrorClass)
	NameErrorClass           = newBuiltinClass("NameError", ExceptionClass)
	UnboundLocalErrorClass   = newBuiltinClass("UnboundLocalError", NameErrorClass)
	RuntimeErrorClass        = newBuiltinClass("RuntimeError", ExceptionClass)
	RecursionErrorClass      = newBuiltinClass("RecursionError", RuntimeErrorClass)
	NotImplementedErrorClass = newBuiltinClass("NotImplementedError", RuntimeErrorClass)
	TypeErrorClass           = newBuiltinClass("TypeError", ExceptionClass)
	ValueErrorClass          = newBuiltinClass("ValueError", ExceptionClass)
)

// exceptionClasses are exposed as builtins under their own names.
var exceptionClasses = []*Class{
	BaseExceptionClass,
	KeyboardInterruptClass,
	GeneratorExitClass,
	ExceptionClass,
	StopIterationClass,
	ArithmeticErrorClass,
	ZeroDivisionErrorClass,
	OverflowErrorClass,
	AssertionErrorClass,
	AttributeErrorClass,
	ImportErrorClass,
	LookupErrorClass,
	IndexErrorClass,
	KeyErrorClass,
	NameErrorClass,
	UnboundLocalErrorClass,
	RuntimeErrorClass,
	RecursionErrorClass,
	NotImplementedErrorClass,
	TypeErrorClass,
	ValueErrorClass,
}
