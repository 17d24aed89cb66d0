package cmds

import (
	"bytes"
	"strings"
	"testing"
)

func TestUsage(t *testing.T) {
	executor := NewExecutor()
	executor.Define("foo", Sub(map[string]*Command{
		"bar": Func(func() {
		}).Desc("BAR"),
		"baz": Sub(map[string]*Command{
			"qux": Func(func() {}).Desc("QUX"),
		}).Desc("BAZ"),
	}).Desc("FOO"))
	buf := new(bytes.Buffer)
	executor.WriteUsage(buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "--help, -h, -help, help\t") {
		t.Fatalf("got %q", lines[0])
	}
	if lines[1] != "foo\tFOO" || lines[2] != "  bar\tBAR" || lines[3] != "  baz\tBAZ" || lines[4] != "    qux\tQUX" {
		t.Fatalf("got %q", lines)
	}
}

func TestUsageArgs(t *testing.T) {
	executor := NewExecutor()
	executor.Define("compile", Func(func(src, dst string) {}).Args("src", "dst").Desc("COMPILE"))
	buf := new(bytes.Buffer)
	executor.WriteUsage(buf)
	if !strings.Contains(buf.String(), "compile <src> <dst>\tCOMPILE\n") {
		t.Fatalf("got %q", buf.String())
	}
}
