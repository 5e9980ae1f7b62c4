// Package ble manages the wireless link to one scoring device: the
// connection lifecycle, liveness detection, failure detection, and
// automatic recovery.
//
// The package does not speak to radio hardware itself. It assumes a
// platform-provided GATT client exposed through the Transport
// interface; everything above that boundary (settle timing, discovery
// cache priming, heartbeat probing, reconnect policy) lives here.
package ble

import "context"

// Transport is the platform GATT client capability for one device
// link. Implementations are expected to be safe for use from the
// session's goroutines; a Transport instance represents a single
// connection attempt's handle and is discarded on teardown.
type Transport interface {
	// Connect establishes the link.
	Connect(ctx context.Context) error

	// Disconnect tears the link down. Safe to call on a dead link.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the link is currently established.
	IsConnected() bool

	// ReadCharacteristic reads the value of a characteristic by UUID.
	ReadCharacteristic(ctx context.Context, uuid string) ([]byte, error)

	// WriteCharacteristic writes a payload to a characteristic by UUID.
	// withResponse selects an acknowledged write.
	WriteCharacteristic(ctx context.Context, uuid string, payload []byte, withResponse bool) error

	// SubscribeNotify registers a handler for notifications on a
	// characteristic. The handler may be invoked from transport-owned
	// goroutines until the link drops.
	SubscribeNotify(ctx context.Context, uuid string, handler func(payload []byte)) error

	// OnDisconnect registers a callback invoked once when the link
	// drops without a local Disconnect call.
	OnDisconnect(fn func(err error))
}

// Dialer opens a Transport for a device address. Each Dial produces a
// fresh handle; the session dials again on every reconnect attempt so
// no stale platform state survives a dead link.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Transport, error)
}
