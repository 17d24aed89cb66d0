package pyvm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyops"
)

var (
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrBlockUnderflow  = errors.New("block stack underflow")
	ErrDialectMismatch = errors.New("dialect mismatch")
	ErrUnknownOpcode   = pyops.ErrUnknownOpcode
	ErrBadOperand      = pyops.ErrBadOperand
	ErrTruncated       = pyops.ErrTruncated
)

// InternalError is an engine fault. It never passes through exception handlers.
type InternalError struct {
	Code   *pycode.CodeUnit
	Op     string
	Offset int
	Err    error
}

func (e *InternalError) Error() string {
	if e.Code == nil {
		return fmt.Sprintf("internal error: %v", e.Err)
	}
	if e.Op == "" {
		return fmt.Sprintf("internal error in %s: %v", e.Code.Name, e.Err)
	}
	return fmt.Sprintf("internal error in %s at %d (%s): %v", e.Code.Name, e.Offset, e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internalf(err error, format string, args ...any) *InternalError {
	return &InternalError{
		Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...),
	}
}

// UncaughtError is an interpreted exception that left the outermost frame.
type UncaughtError struct {
	Exception ExceptionState
}

func (u *UncaughtError) Error() string {
	return "uncaught exception: " + u.Exception.String()
}

// Format renders the exception chain with tracebacks, most recent call last.
func (u *UncaughtError) Format() string {
	var b strings.Builder
	formatChain(&b, u.Exception, map[Value]bool{})
	return b.String()
}

func formatChain(b *strings.Builder, s ExceptionState, seen map[Value]bool) {
	if s.Value != nil {
		seen[s.Value] = true
		cause := exceptionAttr(s.Value, "__cause__")
		context := exceptionAttr(s.Value, "__context__")
		suppress := exceptionAttr(s.Value, "__suppress_context__") == True
		switch {
		case isException(cause) && !seen[cause]:
			formatChain(b, stateOf(cause), seen)
			b.WriteString("\nThe above exception was the direct cause of the following exception:\n\n")
		case isException(context) && !suppress && !seen[context]:
			formatChain(b, stateOf(context), seen)
			b.WriteString("\nDuring handling of the above exception, another exception occurred:\n\n")
		}
	}
	if s.Traceback != nil {
		b.WriteString("Traceback (most recent call last):\n")
		for tb := s.Traceback; tb != nil; tb = tb.Next {
			fmt.Fprintf(b, "  File \"%s\", line %d, in %s\n", tb.Filename, tb.Line, tb.Name)
		}
	}
	b.WriteString(s.String())
	b.WriteString("\n")
}

func stateOf(exc Value) ExceptionState {
	s := ExceptionState{
		Type:  exc.Type(),
		Value: exc,
	}
	if tb, ok := exceptionAttr(exc, "__traceback__").(*Traceback); ok {
		s.Traceback = tb
	}
	return s
}
