package protocol

import "errors"

// Sentinel kinds for protocol errors.
var (
	ErrSizeMismatch = errors.New("payload size mismatch")
)
