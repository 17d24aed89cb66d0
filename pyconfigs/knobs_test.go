package pyconfigs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/configs"
)

func testScope(t *testing.T, content string) dscope.Scope {
	t.Helper()
	var paths []string
	if content != "" {
		path := filepath.Join(t.TempDir(), "pyrun.cue")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return dscope.New(new(Module)).Fork(
		func() configs.Loader {
			return configs.NewLoader(paths, Schema)
		},
	)
}

func TestDefaults(t *testing.T) {
	testScope(t, "").Call(func(
		dialect Dialect,
		maxDepth MaxDepth,
		maxInstructions MaxInstructions,
		trace Trace,
		traceDB TraceDB,
		jobs Jobs,
	) {
		if dialect != "3.7" {
			t.Fatalf("got %v", dialect)
		}
		if maxDepth != 1000 {
			t.Fatalf("got %v", maxDepth)
		}
		if maxInstructions != 0 || trace || traceDB != "" {
			t.Fatal("unexpected non-zero knob")
		}
		if int(jobs) != runtime.NumCPU() {
			t.Fatalf("got %v", jobs)
		}
	})
}

func TestConfigFile(t *testing.T) {
	testScope(t, `
dialect: "2.7"
max_depth: 50
trace: true
trace_filter: "kind == 'call'"
jobs: 2
`).Call(func(
		dialect Dialect,
		maxDepth MaxDepth,
		trace Trace,
		filter TraceFilter,
		jobs Jobs,
	) {
		if dialect != "2.7" || maxDepth != 50 || !trace || jobs != 2 {
			t.Fatalf("got %v %v %v %v", dialect, maxDepth, trace, jobs)
		}
		if filter != "kind == 'call'" {
			t.Fatalf("got %v", filter)
		}
	})
}

func TestSchemaRejectsUnknownDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyrun.cue")
	if err := os.WriteFile(path, []byte(`dialect: "4.0"`), 0644); err != nil {
		t.Fatal(err)
	}
	loader := configs.NewLoader([]string{path}, Schema)
	var s string
	if err := loader.AssignFirst("dialect", &s); err == nil {
		t.Fatal("expected schema error")
	}
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".pyrun.cue"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	paths := findFiles([]string{dir, filepath.Join(dir, "missing")})
	if len(paths) != 1 || filepath.Base(paths[0]) != ".pyrun.cue" {
		t.Fatalf("got %v", paths)
	}
}
