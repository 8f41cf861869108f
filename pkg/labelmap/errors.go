package labelmap

import "errors"

var (
	// ErrIndexOutOfRange is returned for a slice index outside [0, frameCount)
	ErrIndexOutOfRange = errors.New("slice index out of range")

	// ErrSizeMismatch is returned when a stack is re-initialized with different dimensions
	ErrSizeMismatch = errors.New("label volume size mismatch")

	// ErrInvalidDimensions is returned for non-positive or overflowing dimensions
	ErrInvalidDimensions = errors.New("invalid label volume dimensions")
)
