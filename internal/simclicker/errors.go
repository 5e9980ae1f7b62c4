package simclicker

import "errors"

var (
	// ErrUnknownDevice indicates a dial for an address no simulated
	// device was registered under.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrLinkDown indicates an operation on a dead simulated link.
	ErrLinkDown = errors.New("link down")
)
