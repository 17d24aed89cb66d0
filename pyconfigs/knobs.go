package pyconfigs

import (
	"runtime"

	"github.com/reusee/pyrun/cmds"
	"github.com/reusee/pyrun/configs"
	"github.com/reusee/pyrun/vars"
)

// Dialect is used for listings that do not declare one.
type Dialect string

var _ configs.Configurable = Dialect("")

func (Dialect) ConfigExpr() string {
	return "dialect"
}

var dialectFlag = cmds.Var[string]("-dialect")

func (Module) Dialect(
	loader configs.Loader,
) Dialect {
	return Dialect(vars.FirstNonZero(
		*dialectFlag,
		configs.First[string](loader, "dialect"),
		"3.7",
	))
}

type MaxDepth int

var _ configs.Configurable = MaxDepth(0)

func (MaxDepth) ConfigExpr() string {
	return "max_depth"
}

var maxDepthFlag = cmds.Var[int]("-max-depth")

func (Module) MaxDepth(
	loader configs.Loader,
) MaxDepth {
	return MaxDepth(vars.FirstNonZero(
		*maxDepthFlag,
		configs.First[int](loader, "max_depth"),
		1000,
	))
}

// MaxInstructions bounds one run; zero is unlimited.
type MaxInstructions int

var _ configs.Configurable = MaxInstructions(0)

func (MaxInstructions) ConfigExpr() string {
	return "max_instructions"
}

var maxInstructionsFlag = cmds.Var[int]("-max-instructions")

func (Module) MaxInstructions(
	loader configs.Loader,
) MaxInstructions {
	return MaxInstructions(vars.FirstNonZero(
		*maxInstructionsFlag,
		configs.First[int](loader, "max_instructions"),
	))
}

// Trace logs every trace event.
type Trace bool

var _ configs.Configurable = Trace(false)

func (Trace) ConfigExpr() string {
	return "trace"
}

var traceFlag = cmds.Switch("-trace")

func (Module) Trace(
	loader configs.Loader,
) Trace {
	return Trace(*traceFlag || configs.First[bool](loader, "trace"))
}

// TraceDB is the sqlite file trace events are recorded to.
type TraceDB string

var _ configs.Configurable = TraceDB("")

func (TraceDB) ConfigExpr() string {
	return "trace_db"
}

var traceDBFlag = cmds.Var[string]("-trace-db")

func (Module) TraceDB(
	loader configs.Loader,
) TraceDB {
	return TraceDB(vars.FirstNonZero(
		*traceDBFlag,
		configs.First[string](loader, "trace_db"),
	))
}

// TraceFilter is a starlark expression selecting the events to record.
type TraceFilter string

var _ configs.Configurable = TraceFilter("")

func (TraceFilter) ConfigExpr() string {
	return "trace_filter"
}

var traceFilterFlag = cmds.Var[string]("-trace-filter")

func (Module) TraceFilter(
	loader configs.Loader,
) TraceFilter {
	return TraceFilter(vars.FirstNonZero(
		*traceFilterFlag,
		configs.First[string](loader, "trace_filter"),
	))
}

// Jobs is the number of files run in parallel.
type Jobs int

var _ configs.Configurable = Jobs(0)

func (Jobs) ConfigExpr() string {
	return "jobs"
}

var jobsFlag = cmds.Var[int]("-jobs")

func (Module) Jobs(
	loader configs.Loader,
) Jobs {
	return Jobs(vars.FirstNonZero(
		*jobsFlag,
		configs.First[int](loader, "jobs"),
		runtime.NumCPU(),
	))
}
