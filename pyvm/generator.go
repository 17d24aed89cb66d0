package pyvm

import (
	"iter"
)

type GeneratorState uint8

const (
	GeneratorCreated GeneratorState = iota
	GeneratorRunning
	GeneratorSuspended
	GeneratorFinished
)

func (s GeneratorState) String() string {
	switch s {
	case GeneratorCreated:
		return "created"
	case GeneratorRunning:
		return "running"
	case GeneratorSuspended:
		return "suspended"
	}
	return "finished"
}

// Generator owns one suspended frame.
type Generator struct {
	Name  string
	Frame *Frame
	State GeneratorState
	// delegate is the iterator a parked YIELD_FROM forwards to.
	delegate Value
}

func (*Generator) Type() *Class { return GeneratorClass }

func newGenerator(f *Frame) *Generator {
	g := &Generator{
		Name:  f.Code.Name,
		Frame: f,
	}
	f.Generator = g
	return g
}

// Send resumes g with v. Exhaustion is reported as a StopIteration error carrying the return value.
func (e *Engine) Send(g *Generator, v Value) (Value, error) {
	if v == nil {
		v = None
	}
	switch g.State {
	case GeneratorRunning:
		return nil, NewError(ValueErrorClass, "generator already executing")
	case GeneratorFinished:
		return nil, stopIteration(None)
	case GeneratorCreated:
		if v != None {
			return nil, NewError(TypeErrorClass, "can't send non-None value to a just-started generator")
		}
	}
	if g.State != GeneratorCreated {
		g.Frame.Push(v)
	}
	return e.resume(g, nil)
}

// Throw raises an exception at the suspension point of g.
func (e *Engine) Throw(g *Generator, typ, val Value) (Value, error) {
	exc, err := e.makeException(typ, val)
	if err != nil {
		return nil, err
	}
	return e.throw(g, exc)
}

func (e *Engine) throw(g *Generator, exc *PyError) (Value, error) {
	switch g.State {
	case GeneratorRunning:
		return nil, NewError(ValueErrorClass, "generator already executing")
	case GeneratorFinished:
		return nil, exc
	}
	if g.delegate != nil {
		inner := g.delegate
		var v Value
		var err error
		if exc.Matches(GeneratorExitClass) {
			err = e.closeIterator(inner)
			if err == nil {
				err = exc
			}
		} else {
			v, err = e.throwInto(inner, exc)
		}
		if err == nil {
			return v, nil
		}
		g.delegate = nil
		f := g.Frame
		if value, ok := StopIterationValue(err); ok {
			f.Pop()
			in, ierr := f.decoded.at(f.IP)
			if ierr != nil {
				return nil, e.locate(ierr, f)
			}
			f.Jump(in.Next)
			f.Push(value)
			return e.resume(g, nil)
		}
		var pe *PyError
		if !asPyError(err, &pe) {
			return nil, err
		}
		return e.resume(g, pe)
	}
	return e.resume(g, exc)
}

func (e *Engine) throwInto(inner Value, exc *PyError) (Value, error) {
	if g, ok := inner.(*Generator); ok {
		return e.throw(g, exc)
	}
	method, err := e.GetAttr(inner, "throw")
	if err != nil {
		var pe *PyError
		if asPyError(err, &pe) && pe.Matches(AttributeErrorClass) {
			return nil, exc
		}
		return nil, err
	}
	return e.call(method, []Value{exc.Exception.Type, exc.Exception.Value}, nil)
}

func (e *Engine) closeIterator(inner Value) error {
	if g, ok := inner.(*Generator); ok {
		return e.Close(g)
	}
	method, err := e.GetAttr(inner, "close")
	if err != nil {
		return nil
	}
	_, err = e.call(method, nil, nil)
	return err
}

// Close throws GeneratorExit into g and expects it to finish.
func (e *Engine) Close(g *Generator) error {
	switch g.State {
	case GeneratorCreated, GeneratorFinished:
		g.State = GeneratorFinished
		return nil
	}
	_, err := e.throw(g, NewError(GeneratorExitClass, ""))
	if err == nil {
		return NewError(RuntimeErrorClass, "generator ignored GeneratorExit")
	}
	var pe *PyError
	if asPyError(err, &pe) && (pe.Matches(GeneratorExitClass) || pe.Matches(StopIterationClass)) {
		return nil
	}
	return err
}

func (e *Engine) resume(g *Generator, pending *PyError) (Value, error) {
	g.State = GeneratorRunning
	v, why, err := e.run(g.Frame, pending)
	if err != nil {
		g.State = GeneratorFinished
		g.delegate = nil
		var pe *PyError
		if asPyError(err, &pe) && pe.Matches(StopIterationClass) && g.Frame.Behavior.stopIterationIsError {
			re := NewError(RuntimeErrorClass, "generator raised StopIteration")
			inst := re.Exception.Value.(*Instance)
			inst.Dict.SetStr("__cause__", pe.Exception.Value)
			inst.Dict.SetStr("__context__", pe.Exception.Value)
			return nil, re
		}
		return nil, err
	}
	if why == WhyYield {
		g.State = GeneratorSuspended
		return v, nil
	}
	g.State = GeneratorFinished
	return nil, stopIteration(v)
}

// Iterate drives any iterable, yielding its values until exhaustion or error.
func (e *Engine) Iterate(iterable Value) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		it, err := e.Iter(iterable)
		if err != nil {
			yield(nil, e.hostError(err))
			return
		}
		for {
			v, ok, err := e.Next(it)
			if err != nil {
				yield(nil, e.hostError(err))
				return
			}
			if !ok {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
