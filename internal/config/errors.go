package config

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadFile      = errors.New("load config file failed")
	ErrLoadEnv       = errors.New("load config env failed")
	ErrUnmarshal     = errors.New("unmarshal config failed")
)
