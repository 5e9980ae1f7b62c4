package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidSetup = errors.New("invalid setup")
	ErrNoExportData = errors.New("no export data")
)
