package hub

import "github.com/tallyops/clickerd/pkg/logger"

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-listener channel buffer.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if h == nil || size <= 0 {
			return
		}
		h.bufferSize = size
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if h == nil || l == nil {
			return
		}
		h.logger = l
	}
}
