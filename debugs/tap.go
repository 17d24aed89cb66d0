package debugs

import (
	"context"
	"maps"
	"os"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/reusee/pyrun/logs"
	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Tap opens a starlark REPL over globals. Without a terminal on stdin the
// globals are logged instead.
type Tap func(ctx context.Context, what string, globals map[string]any)

func (Module) Tap(
	logger logs.Logger,
) Tap {
	return func(ctx context.Context, what string, globals map[string]any) {
		mappings := make(starlark.StringDict, len(globals))
		for name, value := range globals {
			mappings[name] = toStarlarkValue(value)
		}
		names := slices.Sorted(maps.Keys(mappings))

		if fd := os.Stdin.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			for _, name := range names {
				logger.InfoContext(ctx, "tap: "+what,
					"name", name,
					"value", mappings[name].String(),
				)
			}
			return
		}

		logger.InfoContext(ctx, "tap: "+what,
			"globals", names,
		)
		defer func() {
			logger.InfoContext(ctx, "tap end: "+what)
		}()
		thread := &starlark.Thread{
			Name: "tap " + what,
		}
		repl.REPLOptions(&syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
		}, thread, mappings)
	}
}
