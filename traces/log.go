package traces

import (
	"context"
	"log/slog"

	"github.com/reusee/pyrun/pyvm"
)

// Log writes every event to logger at debug level.
func Log(ctx context.Context, logger *slog.Logger) pyvm.Tracer {
	return func(ev *pyvm.TraceEvent) bool {
		args := []any{
			"kind", ev.Kind.String(),
			"code", codeName(ev),
			"line", ev.Line,
			"depth", ev.Depth,
		}
		if ev.Kind == pyvm.TraceInstruction {
			args = append(args,
				"offset", ev.Offset,
				"op", ev.Opname,
			)
			if ev.Operand != nil {
				args = append(args, "operand", operandString(ev.Operand))
			}
		}
		if ev.Value != nil {
			args = append(args, "value", pyvm.Describe(ev.Value))
		}
		logger.DebugContext(ctx, "trace", args...)
		return true
	}
}
