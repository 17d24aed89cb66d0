package configs

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Loader reads cue files lazily. Earlier files take precedence.
type Loader struct {
	sources func() ([]source, error)
}

type source struct {
	path  string
	value cue.Value
}

// NewLoader validates every file against schemaSrc, a list of cue fields the
// files may define.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		sources: sync.OnceValues(func() ([]source, error) {
			return loadSources(filePaths, schemaSrc)
		}),
	}
}

func loadSources(filePaths []string, schemaSrc string) ([]source, error) {
	// schema and files must share one runtime to unify
	ctx := cuecontext.New()

	var schema cue.Value
	if schemaSrc != "" {
		schema = ctx.CompileString("close({"+schemaSrc+"})", cue.Filename("schema"))
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("config schema: %w", err)
		}
	}

	ret := make([]source, 0, len(filePaths))
	for _, filePath := range filePaths {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		value := ctx.CompileBytes(content, cue.Filename(filePath))
		if err := value.Err(); err != nil {
			return nil, fmt.Errorf("config %s: %w", filePath, err)
		}
		if schema.Exists() {
			if err := schema.Unify(value).Validate(); err != nil {
				return nil, fmt.Errorf("config %s: %w", filePath, err)
			}
		}
		ret = append(ret, source{
			path:  filePath,
			value: value,
		})
	}
	return ret, nil
}

// AssignFirst decodes the value at path from the first file defining it.
func (l Loader) AssignFirst(path string, target any) error {
	sources, err := l.sources()
	if err != nil {
		return err
	}
	cuePath := cue.ParsePath(path)
	for _, src := range sources {
		value := src.value.LookupPath(cuePath)
		if !value.Exists() {
			continue
		}
		if err := value.Decode(target); err != nil {
			return fmt.Errorf("config %s: %s: %w", src.path, path, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", path, ErrValueNotFound)
}
