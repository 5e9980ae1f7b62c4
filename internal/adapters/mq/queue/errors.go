package queue

import "errors"

// ErrQueueClosed is returned by consumers that need a live queue.
var ErrQueueClosed = errors.New("queue closed")
