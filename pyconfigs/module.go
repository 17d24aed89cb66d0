package pyconfigs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
