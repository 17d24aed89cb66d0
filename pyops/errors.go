package pyops

import "errors"

var (
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrTruncated      = errors.New("truncated instruction")
	ErrBadOperand     = errors.New("bad operand")
	ErrUnknownDialect = errors.New("unknown dialect")
)
