package simclicker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/ble"
)

// Dialer resolves addresses to simulated devices. It satisfies the
// session dialer contract, so a service wired with it behaves exactly
// as it would against real hardware.
type Dialer struct {
	mu      sync.RWMutex
	devices map[string]*Device
	closed  bool

	provisionPrefix string
	clickInterval   time.Duration
	stop            chan struct{}
}

var _ ble.Dialer = (*Dialer)(nil)

// DialerOption configures a Dialer.
type DialerOption func(*Dialer)

// WithAutoProvision makes unknown addresses resolve to fresh devices
// named prefix plus address instead of failing the dial.
func WithAutoProvision(namePrefix string) DialerOption {
	return func(d *Dialer) {
		if d == nil || namePrefix == "" {
			return
		}
		d.provisionPrefix = namePrefix
	}
}

// WithAutoClicks makes every auto-provisioned device click on its own,
// at a random pace up to the given interval. Zero disables it.
func WithAutoClicks(interval time.Duration) DialerOption {
	return func(d *Dialer) {
		if d == nil || interval <= 0 {
			return
		}
		d.clickInterval = interval
	}
}

// NewDialer creates an empty registry of simulated devices.
func NewDialer(opts ...DialerOption) *Dialer {
	d := &Dialer{
		devices: make(map[string]*Device),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add registers a device under its address, replacing any previous
// registration.
func (d *Dialer) Add(dev *Device) {
	if dev == nil {
		return
	}
	d.mu.Lock()
	d.devices[dev.Addr()] = dev
	d.mu.Unlock()
}

// Device looks up a registered device by address.
func (d *Dialer) Device(addr string) (*Device, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dev, ok := d.devices[addr]
	return dev, ok
}

// Dial hands out a fresh transport bound to the addressed device.
func (d *Dialer) Dial(ctx context.Context, addr string) (ble.Transport, error) {
	d.mu.Lock()
	dev, ok := d.devices[addr]
	if !ok && d.provisionPrefix != "" && !d.closed {
		dev = NewDevice(addr, d.provisionPrefix+addr)
		d.devices[addr] = dev
		if d.clickInterval > 0 {
			go d.clickLoop(dev)
		}
		ok = true
	}
	d.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	return &transport{device: dev}, nil
}

// Close stops the autonomous click loops.
func (d *Dialer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.stop)
}

// clickLoop clicks at a random pace, mostly plus, until the dialer
// closes.
func (d *Dialer) clickLoop(dev *Device) {
	for {
		pause := d.clickInterval/2 + time.Duration(rand.Int63n(int64(d.clickInterval)))
		select {
		case <-d.stop:
			return
		case <-time.After(pause):
		}
		if rand.Intn(5) == 0 {
			dev.ClickMinus(1)
		} else {
			dev.ClickPlus(1)
		}
	}
}
