package configs

import "reflect"

// Configurable is a provided type whose value may be overridden by a config path.
type Configurable interface {
	ConfigExpr() string
}

var configurableType = reflect.TypeFor[Configurable]()
