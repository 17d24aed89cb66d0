package logs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/reusee/dscope"
)

func withLevel(t *testing.T, l slog.Level) {
	saved := level.Level()
	level.Set(l)
	t.Cleanup(func() {
		level.Set(saved)
	})
}

func TestNewSpan(t *testing.T) {
	withLevel(t, slog.LevelDebug)
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		newSpan NewSpan,
		logger Logger,
	) {
		ctx := context.Background()
		ctx1, span1 := newSpan(ctx, "")
		ctx11, span11 := newSpan(ctx1, "")
		_, span12 := newSpan(ctx11, span1)
		logger.With("k", "v").InfoContext(ctx11, "with attrs")

		lines := strings.Split(buf.String(), "\n")
		for i, want := range []string{
			"span=" + string(span1),
			"span=" + string(span11),
			"span=" + string(span12),
			"span=" + string(span11),
		} {
			if !strings.Contains(lines[i], want) {
				t.Fatalf("line %d: got %v", i, lines[i])
			}
		}
		if !strings.Contains(lines[1], "parent="+string(span1)) {
			t.Fatalf("got %v", lines[1])
		}
		if !strings.Contains(lines[2], "parent="+string(span1)) || !strings.Contains(lines[2], "creator="+string(span11)) {
			t.Fatalf("got %v", lines[2])
		}
		if !strings.Contains(lines[3], "k=v") {
			t.Fatalf("got %v", lines[3])
		}
	})
}

func TestNewSpanLevel(t *testing.T) {
	withLevel(t, slog.LevelInfo)
	buf := new(bytes.Buffer)
	dscope.New(new(Module)).Fork(
		func() Writer {
			return buf
		},
	).Call(func(
		newSpan NewSpan,
	) {
		newSpan(context.Background(), "")
		if buf.Len() != 0 {
			t.Fatalf("got %s", buf.String())
		}
	})
}

func TestWrapSpan(t *testing.T) {
	if WrapSpan(context.Background(), nil) != nil {
		t.Fatal("nil error wrapped")
	}
	bad := errors.New("bad")
	if err := WrapSpan(context.Background(), bad); err != bad {
		t.Fatalf("got %v", err)
	}
	ctx := context.WithValue(context.Background(), SpanKey, Span("abc"))
	err := WrapSpan(ctx, bad)
	if !errors.Is(err, bad) || err.Error() != "bad (span abc)" {
		t.Fatalf("got %v", err)
	}
}
