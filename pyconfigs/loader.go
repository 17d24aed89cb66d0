package pyconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/pyrun/configs"
	"github.com/reusee/pyrun/logs"
)

//go:embed schema.cue
var Schema string

var filenames = []string{
	"pyrun.cue",
	".pyrun.cue",
}

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {

	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file",
				"paths", paths,
			)
		}
	}()

	var dirs []string
	// working directory
	if workingDir, err := os.Getwd(); err == nil {
		dirs = append(dirs, workingDir)
	}
	// user config dir
	if configDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, configDir)
	}
	// system wide dir
	dirs = append(dirs, "/etc")

	paths = findFiles(dirs)
	return configs.NewLoader(paths, Schema)
}

func findFiles(dirs []string) (paths []string) {
	for _, dir := range dirs {
		for _, filename := range filenames {
			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return
}
