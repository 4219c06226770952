package lwe

import (
	"errors"
)

// ErrLengthMismatch is returned when the operand lengths of a vector or
// matrix operation are inconsistent.
var ErrLengthMismatch = errors.New("length mismatch")
