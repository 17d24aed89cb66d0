package pyvm

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

const DefaultMaxDepth = 1000

type Options struct {
	// MaxDepth bounds the number of live frames; zero means DefaultMaxDepth.
	MaxDepth int
	Tracer   Tracer
	Logger   *slog.Logger
	Stdout   io.Writer
	// Dialect is used for code units that do not declare one.
	Dialect string
}

// Engine executes code units. It is not safe for concurrent use; independent engines share nothing.
type Engine struct {
	maxDepth int
	tracer   Tracer
	logger   *slog.Logger
	stdout   io.Writer
	dialect  string

	behaviors map[string]*Behavior
	decoded   map[*pycode.CodeUnit]*decodedCode
	builtins  *Dict
	modules   map[string]*Module

	frame           *Frame
	depth           int
	interrupted     atomic.Bool
	stdoutSoftspace bool
	reprActive      map[Value]bool
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		maxDepth:   opts.MaxDepth,
		tracer:     opts.Tracer,
		logger:     opts.Logger,
		stdout:     opts.Stdout,
		dialect:    opts.Dialect,
		behaviors:  make(map[string]*Behavior),
		decoded:    make(map[*pycode.CodeUnit]*decodedCode),
		modules:    make(map[string]*Module),
		reprActive: make(map[Value]bool),
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.dialect == "" {
		e.dialect = "3.7"
	}
	e.builtins = e.newBuiltins()
	for _, name := range []string{"builtins", "__builtin__"} {
		e.RegisterModule(&Module{
			Name: name,
			Dict: e.builtins,
		})
	}
	return e
}

// Builtins is the builtins namespace shared by every frame of this engine.
func (e *Engine) Builtins() *Dict {
	return e.builtins
}

// RegisterModule makes a module importable by name.
func (e *Engine) RegisterModule(mod *Module) {
	e.modules[mod.Name] = mod
}

// Interrupt asks the running code to raise KeyboardInterrupt at the next instruction. It is safe to call from any goroutine.
func (e *Engine) Interrupt() {
	e.interrupted.Store(true)
}

// Behavior returns the bound opcode behavior of a dialect.
func (e *Engine) Behavior(name string) (*Behavior, error) {
	if name == "" {
		name = e.dialect
	}
	if b, ok := e.behaviors[name]; ok {
		return b, nil
	}
	dialect, err := pyops.Load(name)
	if err != nil {
		return nil, &InternalError{
			Err: errors.Join(ErrDialectMismatch, err),
		}
	}
	b, err := bindBehavior(dialect)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("dialect bound",
		"dialect", name,
		"opcodes", b.count,
	)
	e.behaviors[name] = b
	return b, nil
}

// NewGlobals creates a module namespace named name.
func (e *Engine) NewGlobals(name string) *Dict {
	globals := NewDict()
	globals.SetStr("__name__", Str(name))
	globals.SetStr("__builtins__", &Module{
		Name: "builtins",
		Dict: e.builtins,
	})
	return globals
}

// RunCode executes a module-level code unit in globals, which may be nil.
func (e *Engine) RunCode(code *pycode.CodeUnit, globals *Dict) (Value, error) {
	if globals == nil {
		globals = e.NewGlobals("__main__")
	}
	f, err := e.newFrame(code, globals, globals, nil)
	if err != nil {
		return nil, err
	}
	v, err := e.runFrame(f)
	return v, e.hostError(err)
}

// Call invokes a callable from the host. Uncaught exceptions surface as *UncaughtError.
func (e *Engine) Call(callable Value, args []Value, kwargs *Dict) (Value, error) {
	v, err := e.call(callable, args, kwargs)
	return v, e.hostError(err)
}

func (e *Engine) hostError(err error) error {
	if err == nil || e.frame != nil {
		return err
	}
	var pe *PyError
	if errors.As(err, &pe) {
		e.logger.Debug("uncaught exception",
			"exception", pe.Exception.String(),
		)
		return &UncaughtError{
			Exception: pe.Exception,
		}
	}
	return err
}
