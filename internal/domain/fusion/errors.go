package fusion

import "errors"

// Sentinel kinds for fusion errors.
var (
	ErrUnknownMode = errors.New("unknown fusion mode")
)
