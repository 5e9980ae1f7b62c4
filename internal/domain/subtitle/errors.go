package subtitle

import "errors"

// Sentinel kinds for subtitle errors.
var (
	ErrUnknownMode = errors.New("unknown subtitle mode")
)
