package pyvm

import (
	"errors"

	"github.com/reusee/pyrun/pycode"
)

func (e *Engine) newFrame(code *pycode.CodeUnit, globals, locals *Dict, closure []*Cell) (*Frame, error) {
	b, err := e.Behavior(code.Dialect)
	if err != nil {
		return nil, err
	}
	decoded, err := e.decodedFor(code, b)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		Code:     code,
		Behavior: b,
		Globals:  globals,
		Builtins: e.builtinsOf(globals),
		Fast:     make([]Value, len(code.VarNames)),
		decoded:  decoded,
	}
	switch {
	case code.Flags&pycode.FlagOptimized != 0:
	case locals != nil:
		f.Locals = locals
	case code.NewLocals():
		f.Locals = NewDict()
	default:
		f.Locals = globals
	}
	if len(closure) != len(code.FreeVars) {
		return nil, &InternalError{
			Code: code,
			Err:  internalf(ErrBadOperand, "%d free variables but closure of %d cells", len(code.FreeVars), len(closure)),
		}
	}
	f.Cells = make([]*Cell, 0, len(code.CellVars)+len(code.FreeVars))
	for range code.CellVars {
		f.Cells = append(f.Cells, &Cell{})
	}
	f.Cells = append(f.Cells, closure...)
	return f, nil
}

func (e *Engine) builtinsOf(globals *Dict) *Dict {
	if v, ok := globals.GetStr("__builtins__"); ok {
		switch v := v.(type) {
		case *Module:
			return v.Dict
		case *Dict:
			return v
		}
	}
	return e.builtins
}

// runFrame runs a non-generator frame to completion.
func (e *Engine) runFrame(f *Frame) (Value, error) {
	v, why, err := e.run(f, nil)
	if err != nil {
		return nil, err
	}
	if why == WhyYield {
		return nil, e.locate(internalf(ErrBadOperand, "yield outside a generator"), f)
	}
	return v, nil
}

// run executes f from its saved position until it returns, yields, or raises.
// A non-nil pending exception is raised at the current position before anything executes.
func (e *Engine) run(f *Frame, pending *PyError) (ret Value, why Why, err error) {
	if e.depth >= e.maxDepth {
		return nil, WhyException, NewError(RecursionErrorClass, "maximum recursion depth exceeded")
	}
	f.Back = e.frame
	e.frame = f
	e.depth++
	defer func() {
		e.frame = f.Back
		e.depth--
		if f.Generator != nil {
			f.Back = nil
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			ie, ok := p.(*InternalError)
			if !ok {
				panic(p)
			}
			ret, why, err = nil, WhyNone, e.locate(ie, f)
		}
	}()

	if !f.started {
		f.started = true
		if e.depth == e.maxDepth/2 || e.depth == e.maxDepth-1 {
			e.logger.Debug("deep call",
				"code", f.Code.Name,
				"depth", e.depth,
			)
		}
		e.trace(TraceCall, f, nil, nil)
	}

	for {
		var why Why
		var err error
		switch {
		case pending != nil:
			err = pending
			pending = nil
		case e.interrupted.Swap(false):
			e.logger.Debug("interrupted",
				"code", f.Code.Name,
				"offset", f.IP,
			)
			err = NewError(KeyboardInterruptClass, "")
		default:
			in, ferr := e.fetch(f)
			if ferr != nil {
				return nil, WhyNone, e.locate(ferr, f)
			}
			if in.handler == nil {
				return nil, WhyNone, e.locate(internalf(ErrUnknownOpcode, "%s has no behavior in dialect %s", in.Op.Name, f.Behavior.Dialect.Name), f)
			}
			why, err = in.handler(e, f, in)
		}

		if err != nil {
			var pe *PyError
			if !errors.As(err, &pe) {
				return nil, WhyNone, e.locate(err, f)
			}
			e.raise(f, pe)
			why = WhyException
		}
		if why == WhyException || why == WhyReraise {
			e.trace(TraceException, f, nil, f.Raised.Value)
		}

		if why != WhyNone && why != WhyYield {
			why = e.unwind(f, why)
		}

		switch why {
		case WhyNone:
			continue
		case WhyReturn:
			e.trace(TraceReturn, f, nil, f.ReturnValue)
			return f.ReturnValue, why, nil
		case WhyYield:
			e.trace(TraceYield, f, nil, f.ReturnValue)
			return f.ReturnValue, why, nil
		case WhyException, WhyReraise:
			exc := f.Raised
			f.Raised = ExceptionState{}
			return nil, why, &PyError{
				Exception: exc,
			}
		}
		return nil, WhyNone, e.locate(internalf(ErrBlockUnderflow, "%s outside any block", why), f)
	}
}

func (e *Engine) fetch(f *Frame) (*Instruction, error) {
	if f.Fallthrough {
		in, err := f.decoded.at(f.IP)
		if err != nil {
			return nil, err
		}
		f.IP = in.Next
	}
	in, err := f.decoded.at(f.IP)
	if err != nil {
		return nil, err
	}
	f.Fallthrough = true
	if e.tracer != nil {
		if in.Line != f.Line {
			f.Line = in.Line
			e.trace(TraceLine, f, in, nil)
		}
		e.trace(TraceInstruction, f, in, nil)
	} else {
		f.Line = in.Line
	}
	return in, nil
}

// raise makes pe the exception in flight in f, adding a traceback entry for f.
func (e *Engine) raise(f *Frame, pe *PyError) {
	exc := pe.Exception
	if exc.Traceback == nil {
		if t, ok := exceptionAttr(exc.Value, "__traceback__").(*Traceback); ok {
			exc.Traceback = t
		}
		e.logger.Debug("exception raised",
			"exception", exc.String(),
			"code", f.Code.Name,
			"offset", f.IP,
		)
	}
	exc.Traceback = &Traceback{
		Name:     f.Code.Name,
		Filename: f.Code.Filename,
		Line:     f.CurrentLine(),
		Next:     exc.Traceback,
	}
	if inst, ok := exc.Value.(*Instance); ok {
		inst.Dict.SetStr("__traceback__", exc.Traceback)
		if _, ok := inst.Dict.GetStr("__context__"); !ok {
			var context Value = None
			if handled := e.handled(f); !handled.IsZero() && handled.Value != exc.Value {
				context = handled.Value
			}
			inst.Dict.SetStr("__context__", context)
		}
	}
	f.Raised = exc
}

// handled is the exception currently being handled, searched outward from f.
func (e *Engine) handled(f *Frame) ExceptionState {
	for ; f != nil; f = f.Back {
		if !f.Handled.IsZero() {
			return f.Handled
		}
	}
	return ExceptionState{}
}

func (e *Engine) locate(err error, f *Frame) *InternalError {
	var ie *InternalError
	if !errors.As(err, &ie) {
		ie = &InternalError{
			Err: err,
		}
	}
	if ie.Code == nil {
		ie.Code = f.Code
		ie.Offset = f.IP
		if f.IP >= 0 && f.IP < len(f.decoded.instrs) {
			if in := f.decoded.instrs[f.IP]; in != nil {
				ie.Op = in.Op.Name
			}
		}
	}
	return ie
}
