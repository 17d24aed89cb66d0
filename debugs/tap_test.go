package debugs

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/mattn/go-isatty"
	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/logs"
	"github.com/reusee/pyrun/pyvm"
)

func TestTap(t *testing.T) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		t.Skip("stdin is a terminal")
	}
	buf := new(bytes.Buffer)
	dscope.New(
		new(Module),
	).Fork(
		func() logs.Writer {
			return buf
		},
	).Call(func(
		tap Tap,
	) {
		globals := pyvm.NewDict()
		globals.SetStr("foo", pyvm.Int(42))
		globals.SetStr("bar", pyvm.NewList(pyvm.Str("x")))
		tap(t.Context(), "test", Globals(globals))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %q", buf.String())
		}
		if !strings.Contains(lines[0], "name=bar") || !strings.Contains(lines[0], `value="[\"x\"]"`) {
			t.Fatalf("got %s", lines[0])
		}
		if !strings.Contains(lines[1], "name=foo value=42") {
			t.Fatalf("got %s", lines[1])
		}
	})
}
