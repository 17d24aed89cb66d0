package traces

import (
	"github.com/reusee/pyrun/debugs"
	"github.com/reusee/pyrun/pyvm"
)

// Filter passes the events pred accepts to next.
// A predicate error is reported to onError and stops tracing.
func Filter(pred debugs.Predicate, next pyvm.Tracer, onError func(error)) pyvm.Tracer {
	return func(ev *pyvm.TraceEvent) bool {
		ok, err := pred(ev)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return false
		}
		if !ok {
			return true
		}
		return next(ev)
	}
}
