package runs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reusee/pyrun/pyasm"
	"github.com/reusee/pyrun/pycode"
	"github.com/reusee/pyrun/pyconfigs"
)

var ErrUnknownFormat = errors.New("unknown code file format")

// Load reads a code unit from a YAML listing or a msgpack code file.
type Load func(path string) (*pycode.CodeUnit, error)

func (Module) Load(
	dialect pyconfigs.Dialect,
) Load {
	return func(path string) (*pycode.CodeUnit, error) {
		switch filepath.Ext(path) {

		case ".yaml", ".yml":
			return pyasm.LoadFile(path, string(dialect))

		case ".pyvmc":
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			code, err := pycode.Decode(bufio.NewReader(f))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return code, nil

		}
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
}

// Compile writes the code unit at src as a msgpack code file at dst.
type Compile func(src, dst string) error

func (Module) Compile(
	load Load,
) Compile {
	return func(src, dst string) (err error) {
		code, err := load(src)
		if err != nil {
			return err
		}
		f, err := os.Create(dst)
		if err != nil {
			return err
		}
		defer func() {
			if e := f.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w := bufio.NewWriter(f)
		if err := pycode.Encode(w, code); err != nil {
			return fmt.Errorf("%s: %w", dst, err)
		}
		return w.Flush()
	}
}
