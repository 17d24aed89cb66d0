package configs

import (
	"errors"
)

// First is AssignFirst returning the zero value when no file defines path.
// Invalid files panic.
func First[T any](loader Loader, path string) T {
	var value T
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			var zero T
			return zero
		}
		panic(err)
	}
	return value
}
