package pyvm

import (
	"github.com/reusee/pyrun/pycode"
)

type Frame struct {
	Code     *pycode.CodeUnit
	Behavior *Behavior
	Stack    []Value
	Blocks   []Block
	// IP is the offset of the current instruction.
	IP int
	// Fallthrough means advance past the instruction at IP before decoding the next one.
	Fallthrough bool
	// Locals is the namespace of unoptimized code; nil for functions using fast locals.
	Locals   *Dict
	Fast     []Value
	Globals  *Dict
	Builtins *Dict
	Back     *Frame
	// Cells holds cell variables followed by free variables.
	Cells []*Cell
	Line  int
	// Handled is the exception being handled in this frame.
	Handled ExceptionState
	// Raised is the exception in flight while unwinding.
	Raised      ExceptionState
	ReturnValue Value
	Generator   *Generator

	decoded *decodedCode
	started bool
}

func (f *Frame) Push(vs ...Value) {
	f.Stack = append(f.Stack, vs...)
}

func (f *Frame) Pop() Value {
	n := len(f.Stack)
	if n == 0 {
		panic(internalf(ErrStackUnderflow, "pop from empty stack"))
	}
	v := f.Stack[n-1]
	f.Stack[n-1] = nil
	f.Stack = f.Stack[:n-1]
	return v
}

// Popn removes the top n values and returns them deepest first.
func (f *Frame) Popn(n int) []Value {
	if n == 0 {
		return nil
	}
	if n < 0 || n > len(f.Stack) {
		panic(internalf(ErrStackUnderflow, "pop %d from stack of %d", n, len(f.Stack)))
	}
	start := len(f.Stack) - n
	ret := make([]Value, n)
	copy(ret, f.Stack[start:])
	clear(f.Stack[start:])
	f.Stack = f.Stack[:start]
	return ret
}

// Peek returns the n-th value from the top; Peek(1) is the top.
func (f *Frame) Peek(n int) Value {
	if n <= 0 || n > len(f.Stack) {
		panic(internalf(ErrStackUnderflow, "peek %d in stack of %d", n, len(f.Stack)))
	}
	return f.Stack[len(f.Stack)-n]
}

func (f *Frame) setPeek(n int, v Value) {
	if n <= 0 || n > len(f.Stack) {
		panic(internalf(ErrStackUnderflow, "set %d in stack of %d", n, len(f.Stack)))
	}
	f.Stack[len(f.Stack)-n] = v
}

func (f *Frame) Top() Value {
	return f.Peek(1)
}

func (f *Frame) setTop(v Value) {
	f.setPeek(1, v)
}

func (f *Frame) truncate(level int) {
	if level > len(f.Stack) {
		panic(internalf(ErrStackUnderflow, "truncate to %d from stack of %d", level, len(f.Stack)))
	}
	clear(f.Stack[level:])
	f.Stack = f.Stack[:level]
}

// Jump moves to target and suppresses the automatic advance.
func (f *Frame) Jump(target int) {
	f.IP = target
	f.Fallthrough = false
}

func (f *Frame) pushBlock(kind BlockKind, handler int) {
	f.Blocks = append(f.Blocks, Block{
		Kind:    kind,
		Handler: handler,
		Level:   len(f.Stack),
	})
}

func (f *Frame) popBlock() Block {
	n := len(f.Blocks)
	if n == 0 {
		panic(internalf(ErrBlockUnderflow, "pop from empty block stack"))
	}
	b := f.Blocks[n-1]
	f.Blocks = f.Blocks[:n-1]
	return b
}

func (f *Frame) pushException(s ExceptionState) {
	tb, val, typ := s.toStack()
	f.Push(tb, val, typ)
}

// popException pops a (traceback, value, type) triple.
func (f *Frame) popException() ExceptionState {
	typ := f.Pop()
	val := f.Pop()
	tb := f.Pop()
	return exceptionFromStack(tb, val, typ)
}

// CurrentLine is the source line of the instruction at IP.
func (f *Frame) CurrentLine() int {
	return f.Code.LineAt(f.IP)
}

func (f *Frame) cellName(i int) string {
	if i < len(f.Code.CellVars) {
		return f.Code.CellVars[i]
	}
	return f.Code.FreeVars[i-len(f.Code.CellVars)]
}
