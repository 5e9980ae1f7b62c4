package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidBaseDir  = errors.New("invalid base directory")
	ErrInvalidName     = errors.New("invalid name")
	ErrNoProject       = errors.New("no active project")
	ErrProjectNotFound = errors.New("project not found")
	ErrStreamNotFound  = errors.New("stream not found")
)
