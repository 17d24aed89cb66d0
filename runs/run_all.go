package runs

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/reusee/pyrun/pyconfigs"
	"golang.org/x/sync/errgroup"
)

// RunAll runs files in parallel, each on its own engine. Outputs are written in
// the order of paths once every run finishes.
type RunAll func(ctx context.Context, paths []string, stdout io.Writer) ([]*Result, error)

func (Module) RunAll(
	run Run,
	jobs pyconfigs.Jobs,
) RunAll {
	return func(ctx context.Context, paths []string, stdout io.Writer) ([]*Result, error) {
		results := make([]*Result, len(paths))
		errs := make([]error, len(paths))
		outputs := make([]bytes.Buffer, len(paths))

		var group errgroup.Group
		group.SetLimit(max(int(jobs), 1))
		for i, path := range paths {
			group.Go(func() error {
				results[i], errs[i] = run(ctx, path, &outputs[i])
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return results, err
		}

		for i := range outputs {
			if _, err := stdout.Write(outputs[i].Bytes()); err != nil {
				return results, err
			}
		}
		return results, errors.Join(errs...)
	}
}
