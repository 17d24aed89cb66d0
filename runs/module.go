package runs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/pyrun/debugs"
	"github.com/reusee/pyrun/pyconfigs"
)

type Module struct {
	dscope.Module
	Configs pyconfigs.Module
	Debugs  debugs.Module
}
