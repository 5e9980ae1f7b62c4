package ble

import (
	"time"

	"github.com/tallyops/clickerd/pkg/logger"
)

// Option configures a Session.
type Option func(*Session)

// WithName sets the operator-facing device name.
func WithName(name string) Option {
	return func(s *Session) {
		if s == nil || name == "" {
			return
		}
		s.name = name
	}
}

// WithSettleDelay overrides the post-connect settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) {
		if s == nil || d < 0 {
			return
		}
		s.settleDelay = d
	}
}

// WithHeartbeatInterval overrides the liveness probe cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Session) {
		if s == nil || d <= 0 {
			return
		}
		s.heartbeatInterval = d
	}
}

// WithReconnectBackoff overrides the wait between reconnect attempts.
func WithReconnectBackoff(d time.Duration) Option {
	return func(s *Session) {
		if s == nil || d <= 0 {
			return
		}
		s.reconnectBackoff = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if s == nil || l == nil {
			return
		}
		s.logger = l
	}
}
