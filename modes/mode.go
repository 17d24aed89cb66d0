package modes

type Mode uint8

const (
	ModeProduction Mode = iota + 1
	ModeDevelopment
)

func (m Mode) String() string {
	switch m {
	case ModeProduction:
		return "production"
	case ModeDevelopment:
		return "development"
	}
	return "unknown"
}

// RecoverPanics reports whether a panic in one unit of work is turned into its
// error instead of crashing the process.
func (m Mode) RecoverPanics() bool {
	return m == ModeProduction
}
