package traces

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reusee/pyrun/debugs"
	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pyops"
	"github.com/reusee/pyrun/pyvm"
)

func run(t *testing.T, tracer pyvm.Tracer) {
	t.Helper()
	dialect, err := pyops.Load("3.7")
	if err != nil {
		t.Fatal(err)
	}
	code, err := pyasm.New(dialect, "<module>").
		Line(1).
		Op("LOAD_CONST", 1).
		Op("STORE_NAME", "x").
		Line(2).
		Op("LOAD_CONST", nil).
		Op("RETURN_VALUE").
		Assemble()
	if err != nil {
		t.Fatal(err)
	}
	e := pyvm.NewEngine(pyvm.Options{
		Stdout: io.Discard,
	})
	e.SetTracer(tracer)
	if _, err := e.RunCode(code, e.NewGlobals("__main__")); err != nil {
		t.Fatal(err)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	session, err := store.NewSession(ctx, "main.yaml", "3.7")
	if err != nil {
		t.Fatal(err)
	}
	run(t, session.Tracer())
	if err := session.Flush(); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != session.ID || sessions[0].Name != "main.yaml" {
		t.Fatalf("got %+v", sessions)
	}

	events, err := store.Events(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 8 {
		t.Fatalf("got %d events", len(events))
	}
	for i, event := range events {
		if event.Seq != i+1 {
			t.Fatalf("got seq %d at %d", event.Seq, i)
		}
	}
	if events[0].Kind != "call" || events[0].Code != "<module>" {
		t.Fatalf("got %+v", events[0])
	}
	if e := events[2]; e.Opname != "LOAD_CONST" || e.Operand != "1" || e.Line != 1 {
		t.Fatalf("got %+v", e)
	}
	if e := events[3]; e.Opname != "STORE_NAME" || e.Operand != "x" {
		t.Fatalf("got %+v", e)
	}
	if e := events[7]; e.Kind != "return" || e.Value != "None" {
		t.Fatalf("got %+v", e)
	}
}

func TestStoreManyEvents(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	session, err := store.NewSession(ctx, "loop", "3.7")
	if err != nil {
		t.Fatal(err)
	}
	tracer := session.Tracer()
	n := flushSize*2 + 3
	for i := range n {
		if !tracer(&pyvm.TraceEvent{
			Kind:   pyvm.TraceInstruction,
			Opname: "NOP",
			Offset: i * 2,
		}) {
			t.Fatal("tracer stopped")
		}
	}
	if err := session.Flush(); err != nil {
		t.Fatal(err)
	}
	events, err := store.Events(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != n {
		t.Fatalf("got %d", len(events))
	}
	if events[n-1].Offset != (n-1)*2 {
		t.Fatalf("got %+v", events[n-1])
	}
}

func TestChain(t *testing.T) {
	var first, second int
	run(t, Chain(
		func(ev *pyvm.TraceEvent) bool {
			first++
			return ev.Kind != pyvm.TraceLine
		},
		nil,
		func(ev *pyvm.TraceEvent) bool {
			second++
			return true
		},
	))
	if first != 2 {
		t.Fatalf("got %d", first)
	}
	if second != 8 {
		t.Fatalf("got %d", second)
	}
}

func TestFilter(t *testing.T) {
	pred, err := debugs.CompilePredicate(`kind == "instruction" and opname != "RETURN_VALUE"`)
	if err != nil {
		t.Fatal(err)
	}
	var ops []string
	run(t, Filter(pred, func(ev *pyvm.TraceEvent) bool {
		ops = append(ops, ev.Opname)
		return true
	}, nil))
	if got := strings.Join(ops, " "); got != "LOAD_CONST STORE_NAME LOAD_CONST" {
		t.Fatalf("got %s", got)
	}
}

func TestFilterError(t *testing.T) {
	pred, err := debugs.CompilePredicate(`line + "x"`)
	if err != nil {
		t.Fatal(err)
	}
	var reported error
	calls := 0
	run(t, Filter(pred, func(ev *pyvm.TraceEvent) bool {
		calls++
		return true
	}, func(err error) {
		reported = errors.Join(reported, err)
	}))
	if reported == nil {
		t.Fatal("expected error")
	}
	if calls != 0 {
		t.Fatalf("got %d", calls)
	}
}

func TestLog(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	run(t, Log(context.Background(), logger))
	out := buf.String()
	if !strings.Contains(out, "op=STORE_NAME operand=x") {
		t.Fatalf("got %s", out)
	}
	if !strings.Contains(out, "kind=return") || !strings.Contains(out, "value=None") {
		t.Fatalf("got %s", out)
	}
}
