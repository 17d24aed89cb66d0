package procs

import "slices"

// Proc is one step of a process. Run returns the step to run next, or nil when done.
type Proc[C any] interface {
	Run(ctx C) (Proc[C], error)
}

// Procs runs its elements in order. An element returning a next proc is replaced by it.
type Procs[C any] []Proc[C]

var _ Proc[any] = Procs[any]{}

func (p Procs[C]) Run(ctx C) (Proc[C], error) {
	for len(p) > 0 && p[0] == nil {
		p = p[1:]
	}
	if len(p) == 0 {
		return nil, nil
	}
	proc, err := p[0].Run(ctx)
	if err != nil {
		return nil, err
	}
	if proc == nil {
		if len(p) == 1 {
			return nil, nil
		}
		return p[1:], nil
	}
	next := slices.Clone(p)
	next[0] = proc
	return next, nil
}
