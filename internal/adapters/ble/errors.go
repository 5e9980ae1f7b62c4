package ble

import "errors"

var (
	// ErrLinkFailure wraps any failure on the connect path.
	ErrLinkFailure = errors.New("link failure")

	// ErrConnectionAborted is returned when the link was torn down by a
	// concurrent disconnect while a connection attempt was settling.
	ErrConnectionAborted = errors.New("connection aborted during setup")

	// ErrNotConnected is returned by operations that need a live link.
	ErrNotConnected = errors.New("not connected")
)
