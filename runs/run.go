package runs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/reusee/pyrun/debugs"
	"github.com/reusee/pyrun/logs"
	"github.com/reusee/pyrun/modes"
	"github.com/reusee/pyrun/procs"
	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyconfigs"
	"github.com/reusee/pyrun/pyvm"
	"github.com/reusee/pyrun/traces"
)

var (
	ErrInstructionLimit = errors.New("instruction limit exceeded")
	ErrEnginePanic      = errors.New("engine panic")
)

type Result struct {
	Path    string
	Dialect string
	Globals *pyvm.Dict
	Value   pyvm.Value
	// Instructions is counted only under an instruction limit.
	Instructions int
	TraceSession string
	Duration     time.Duration
	Err          error
}

// TraceStore opens the trace database on first use; it is nil when none is configured.
type TraceStore func() (*traces.Store, error)

func (Module) TraceStore(
	path pyconfigs.TraceDB,
) TraceStore {
	return sync.OnceValues(func() (*traces.Store, error) {
		if path == "" {
			return nil, nil
		}
		return traces.Open(context.Background(), string(path))
	})
}

type Run func(ctx context.Context, path string, stdout io.Writer) (*Result, error)

type runState struct {
	ctx       context.Context
	path      string
	stdout    io.Writer
	code      *pycode.CodeUnit
	engine    *pyvm.Engine
	session   *traces.Session
	exhausted bool
	result    *Result
}

type step = procs.Func[*runState]

func (Module) Run(
	load Load,
	dialect pyconfigs.Dialect,
	maxDepth pyconfigs.MaxDepth,
	maxInstructions pyconfigs.MaxInstructions,
	trace pyconfigs.Trace,
	traceFilter pyconfigs.TraceFilter,
	traceStore TraceStore,
	logger logs.Logger,
	newSpan logs.NewSpan,
	mode modes.Mode,
) Run {

	loadCode := step(func(s *runState) (procs.Proc[*runState], error) {
		code, err := load(s.path)
		if err != nil {
			return nil, err
		}
		s.code = code
		s.result.Dialect = code.Dialect
		if s.result.Dialect == "" {
			s.result.Dialect = string(dialect)
		}
		return nil, nil
	})

	prepare := step(func(s *runState) (procs.Proc[*runState], error) {
		s.engine = pyvm.NewEngine(pyvm.Options{
			MaxDepth: int(maxDepth),
			Logger:   logger,
			Stdout:   s.stdout,
			Dialect:  string(dialect),
		})

		var sinks []pyvm.Tracer
		if trace {
			sinks = append(sinks, traces.Log(s.ctx, logger))
		}
		store, err := traceStore()
		if err != nil {
			return nil, err
		}
		if store != nil {
			session, err := store.NewSession(s.ctx, s.path, s.result.Dialect)
			if err != nil {
				return nil, err
			}
			s.session = session
			s.result.TraceSession = session.ID
			sinks = append(sinks, session.Tracer())
		}
		var tracer pyvm.Tracer
		if len(sinks) > 0 {
			tracer = traces.Chain(sinks...)
		}
		if tracer != nil && traceFilter != "" {
			pred, err := debugs.CompilePredicate(string(traceFilter))
			if err != nil {
				return nil, err
			}
			tracer = traces.Filter(pred, tracer, func(err error) {
				logger.WarnContext(s.ctx, "trace filter stopped",
					"error", err,
				)
			})
		}

		if maxInstructions > 0 {
			budget := func(ev *pyvm.TraceEvent) bool {
				if ev.Kind != pyvm.TraceInstruction {
					return true
				}
				s.result.Instructions++
				if s.result.Instructions > int(maxInstructions) {
					s.exhausted = true
					s.engine.Interrupt()
					return false
				}
				return true
			}
			if tracer != nil {
				tracer = traces.Chain(budget, tracer)
			} else {
				tracer = budget
			}
		}

		if tracer != nil {
			s.engine.SetTracer(tracer)
		}
		return nil, nil
	})

	execute := step(func(s *runState) (_ procs.Proc[*runState], err error) {
		if mode.RecoverPanics() {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: %v", ErrEnginePanic, p)
				}
			}()
		}
		stop := context.AfterFunc(s.ctx, s.engine.Interrupt)
		defer stop()
		globals := s.engine.NewGlobals("__main__")
		s.result.Globals = globals
		value, err := s.engine.RunCode(s.code, globals)
		if err != nil {
			if s.exhausted {
				err = errors.Join(ErrInstructionLimit, err)
			}
			return nil, err
		}
		s.result.Value = value
		return nil, nil
	})

	return func(ctx context.Context, path string, stdout io.Writer) (_ *Result, err error) {
		ctx, _ = newSpan(ctx, "")
		state := &runState{
			ctx:    ctx,
			path:   path,
			stdout: stdout,
			result: &Result{
				Path: path,
			},
		}
		started := time.Now()
		logger.DebugContext(ctx, "run start",
			"path", path,
		)

		defer func() {
			if state.session != nil {
				if e := state.session.Flush(); e != nil {
					err = errors.Join(err, e)
				}
			}
			state.result.Duration = time.Since(started)
			args := []any{
				"path", path,
				"dialect", state.result.Dialect,
				"duration", state.result.Duration,
			}
			if maxInstructions > 0 {
				args = append(args, "instructions", state.result.Instructions)
			}
			if err != nil {
				args = append(args, "error", err)
				err = logs.WrapSpan(ctx, fmt.Errorf("run %s: %w", path, err))
			}
			logger.DebugContext(ctx, "run done", args...)
			state.result.Err = err
		}()

		err = procs.Drive(state, procs.Proc[*runState](procs.Procs[*runState]{
			loadCode,
			prepare,
			execute,
		}))
		return state.result, err
	}
}
