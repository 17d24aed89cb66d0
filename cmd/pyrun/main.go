package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/cmds"
	"github.com/reusee/pyrun/configs"
	"github.com/reusee/pyrun/debugs"
	"github.com/reusee/pyrun/logs"
	"github.com/reusee/pyrun/modes"
	"github.com/reusee/pyrun/pyconfigs"
	"github.com/reusee/pyrun/pyops"
	"github.com/reusee/pyrun/pyvm"
	"github.com/reusee/pyrun/runs"
)

var (
	runFiles    = cmds.Collect[string]("run")
	disFiles    = cmds.Collect[string]("dis")
	configFiles = cmds.Collect[string]("-config")
	tapFlag     = cmds.Switch("-tap")
)

type compileJob struct {
	src, dst string
}

var compileJobs []compileJob

func init() {
	cmds.Define("compile", cmds.Func(func(src, dst string) {
		compileJobs = append(compileJobs, compileJob{src, dst})
	}).Args("src", "dst").Desc("compile a listing to a code file"))
}

func main() {
	cmds.Execute(os.Args[1:])
	if len(*runFiles) == 0 && len(*disFiles) == 0 && len(compileJobs) == 0 {
		cmds.GlobalExecutor.PrintUsage()
		os.Exit(2)
	}

	scope := dscope.New(
		new(runs.Module),
		modes.ForProduction(),
	)
	if len(*configFiles) > 0 {
		// explicitly named files override flags and searched files
		var err error
		scope, err = configs.Fork(scope, configs.NewLoader(*configFiles, pyconfigs.Schema))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	exitCode := 0
	scope.Call(func(
		load runs.Load,
		compile runs.Compile,
		runAll runs.RunAll,
		traceStore runs.TraceStore,
		dialect pyconfigs.Dialect,
		tap debugs.Tap,
		logger logs.Logger,
	) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fail := func(code int, err error) {
			fmt.Fprintln(os.Stderr, err)
			exitCode = max(exitCode, code)
		}

		for _, job := range compileJobs {
			if err := compile(job.src, job.dst); err != nil {
				fail(2, err)
				return
			}
			logger.InfoContext(ctx, "compiled",
				"src", job.src,
				"dst", job.dst,
			)
		}

		for _, path := range *disFiles {
			code, err := load(path)
			if err != nil {
				fail(2, err)
				return
			}
			name := code.Dialect
			if name == "" {
				name = string(dialect)
			}
			d, err := pyops.Load(name)
			if err != nil {
				fail(2, err)
				return
			}
			if err := d.Disassemble(os.Stdout, code); err != nil {
				fail(2, err)
				return
			}
		}

		if len(*runFiles) == 0 {
			return
		}
		results, _ := runAll(ctx, *runFiles, os.Stdout)
		if store, err := traceStore(); err == nil && store != nil {
			if err := store.Close(); err != nil {
				fail(2, err)
			}
		}
		for _, result := range results {
			if result == nil {
				continue
			}
			var uncaught *pyvm.UncaughtError
			var internal *pyvm.InternalError
			switch {
			case errors.As(result.Err, &uncaught):
				fmt.Fprint(os.Stderr, uncaught.Format())
				exitCode = max(exitCode, 1)
			case errors.As(result.Err, &internal):
				fail(2, result.Err)
			case result.Err != nil:
				fail(1, result.Err)
			case *tapFlag:
				tap(ctx, result.Path, debugs.Globals(result.Globals))
			}
		}
	})

	os.Exit(exitCode)
}
