package pyvm

import "fmt"

type TraceKind uint8

const (
	TraceCall TraceKind = iota + 1
	TraceLine
	TraceInstruction
	TraceReturn
	TraceException
	TraceYield
)

var traceKindNames = [...]string{
	TraceCall:        "call",
	TraceLine:        "line",
	TraceInstruction: "instruction",
	TraceReturn:      "return",
	TraceException:   "exception",
	TraceYield:       "yield",
}

func (k TraceKind) String() string {
	if int(k) < len(traceKindNames) && traceKindNames[k] != "" {
		return traceKindNames[k]
	}
	return fmt.Sprintf("TraceKind(%d)", k)
}

type TraceEvent struct {
	Kind    TraceKind
	Offset  int
	Opname  string
	Operand any
	Line    int
	Depth   int
	Frame   *Frame
	// Value is the returned or yielded value, or the exception value.
	Value Value
}

// Tracer observes execution. Returning false stops tracing for the rest of the run.
type Tracer func(*TraceEvent) bool

func (e *Engine) SetTracer(t Tracer) {
	e.tracer = t
}

func (e *Engine) trace(kind TraceKind, f *Frame, in *Instruction, v Value) {
	if e.tracer == nil {
		return
	}
	ev := &TraceEvent{
		Kind:   kind,
		Offset: f.IP,
		Line:   f.Line,
		Depth:  e.depth,
		Frame:  f,
		Value:  v,
	}
	if in != nil {
		ev.Opname = in.Op.Name
		ev.Operand = in.Operand()
		ev.Line = in.Line
	}
	if !e.tracer(ev) {
		e.tracer = nil
	}
}
