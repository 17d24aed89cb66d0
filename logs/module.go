package logs

import (
	"io"
	"os"

	"github.com/reusee/dscope"
)

type Module struct {
	dscope.Module
}

// Span identifies a unit of work in log records.
type Span string

type spanKey struct{}

var SpanKey spanKey

type Writer io.Writer

func (Module) Writer() Writer {
	return os.Stderr
}
