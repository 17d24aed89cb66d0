package pyvm

import (
	"fmt"

	"github.com/reusee/pyrun/pyops"
)

// Behavior is the opcode handler table bound to one dialect.
type Behavior struct {
	Dialect  *pyops.Dialect
	handlers [256]Handler
	count    int
	// stopIterationIsError turns StopIteration escaping a generator into RuntimeError.
	stopIterationIsError bool
	// py2 selects 2.x error messages.
	py2 bool
}

// Handler returns the handler bound to an opcode number, or nil.
func (b *Behavior) Handler(number byte) Handler {
	return b.handlers[number]
}

type fragment struct {
	name     string
	handlers map[string]Handler
}

type composition struct {
	fragments            []func() fragment
	stopIterationIsError bool
	py2                  bool
}

func compositionFor(dialect string) (composition, bool) {
	switch dialect {
	case "2.7":
		return composition{
			fragments: []func() fragment{
				stackFragment,
				operatorFragment,
				namesFragment,
				flowFragment,
				buildFragment,
				loopFragment,
				rotFourFragment,
				mapAddKeyFirstFragment,
				py27Fragment,
			},
			py2: true,
		}, true
	case "3.6":
		return composition{
			fragments: []func() fragment{
				stackFragment,
				operatorFragment,
				namesFragment,
				flowFragment,
				buildFragment,
				loopFragment,
				py3Fragment,
				call36Fragment,
				mapAddKeyFirstFragment,
				endFinally36Fragment,
				annotation36Fragment,
			},
		}, true
	case "3.7":
		return composition{
			fragments: []func() fragment{
				stackFragment,
				operatorFragment,
				namesFragment,
				flowFragment,
				buildFragment,
				loopFragment,
				py3Fragment,
				call36Fragment,
				mapAddKeyFirstFragment,
				endFinally36Fragment,
				methodFragment,
			},
			stopIterationIsError: true,
		}, true
	case "3.8":
		return composition{
			fragments: []func() fragment{
				stackFragment,
				operatorFragment,
				namesFragment,
				flowFragment,
				buildFragment,
				rotFourFragment,
				py3Fragment,
				call36Fragment,
				mapAddValueFirstFragment,
				finally38Fragment,
				methodFragment,
			},
			stopIterationIsError: true,
		}, true
	}
	return composition{}, false
}

func bindBehavior(dialect *pyops.Dialect) (*Behavior, error) {
	comp, ok := compositionFor(dialect.Name)
	if !ok {
		return nil, internalf(ErrDialectMismatch, "no behavior for dialect %s", dialect.Name)
	}
	b := &Behavior{
		Dialect:              dialect,
		stopIterationIsError: comp.stopIterationIsError,
		py2:                  comp.py2,
	}
	if err := b.bind(comp.fragments...); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Behavior) bind(fragments ...func() fragment) error {
	for _, fn := range fragments {
		frag := fn()
		for name, handler := range frag.handlers {
			op, ok := b.Dialect.Op(name)
			if !ok {
				return internalf(ErrDialectMismatch, "fragment %s binds %s, which dialect %s lacks", frag.name, name, b.Dialect.Name)
			}
			if b.handlers[op.Number] != nil {
				return &InternalError{
					Err: fmt.Errorf("fragment %s binds %s twice", frag.name, name),
				}
			}
			b.handlers[op.Number] = handler
			b.count++
		}
	}
	return nil
}
