package traces

import (
	"fmt"
	"slices"

	"github.com/reusee/pyrun/pyvm"
)

// Chain feeds each event to every tracer still active. A tracer returning false
// is dropped; the chain stops when none is left.
func Chain(tracers ...pyvm.Tracer) pyvm.Tracer {
	tracers = slices.DeleteFunc(slices.Clone(tracers), func(t pyvm.Tracer) bool {
		return t == nil
	})
	return func(ev *pyvm.TraceEvent) bool {
		tracers = slices.DeleteFunc(tracers, func(t pyvm.Tracer) bool {
			return !t(ev)
		})
		return len(tracers) > 0
	}
}

func codeName(ev *pyvm.TraceEvent) string {
	if ev.Frame == nil || ev.Frame.Code == nil {
		return ""
	}
	return ev.Frame.Code.Name
}

func operandString(operand any) string {
	switch operand := operand.(type) {
	case nil:
		return ""
	case pyvm.Value:
		return pyvm.Describe(operand)
	case string:
		return operand
	}
	return fmt.Sprint(operand)
}
