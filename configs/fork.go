package configs

import (
	"errors"
	"reflect"

	"github.com/reusee/dscope"
)

// Fork redefines every Configurable type of scope that the loader has a value for.
func Fork(scope dscope.Scope, loader Loader) (ret dscope.Scope, err error) {
	var defs []any
	for t := range scope.AllTypes() {
		if !t.Implements(configurableType) {
			continue
		}
		zero := reflect.New(t).Elem().Interface().(Configurable)
		ptr := reflect.New(t)
		if err := loader.AssignFirst(zero.ConfigExpr(), ptr.Interface()); err != nil {
			if errors.Is(err, ErrValueNotFound) {
				continue
			}
			return scope, err
		}
		defs = append(defs, ptr.Interface())
	}
	if len(defs) == 0 {
		return scope, nil
	}
	return scope.Fork(defs...), nil
}
