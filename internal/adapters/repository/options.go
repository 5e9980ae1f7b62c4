package repository

import "github.com/tallyops/clickerd/pkg/logger"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if s == nil || l == nil {
			return
		}
		s.logger = l
	}
}
