// Package simclicker provides in-memory clicker devices behind the
// transport boundary. Tests and the demo harness drive them the same
// way real hardware would be driven: notifications, heartbeat reads,
// reset writes and link drops.
package simclicker

import (
	"context"
	"sync"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/ble"
	"github.com/tallyops/clickerd/internal/domain/protocol"
)

// Event type markers emitted by the simulated firmware.
const (
	eventTypePlus  int8 = 1
	eventTypeMinus int8 = 2
)

// Device is one simulated clicker. Counters are cumulative, exactly
// like the hardware: a notification always carries the running totals.
type Device struct {
	addr string
	name string

	mu            sync.Mutex
	plus          int32
	minus         int32
	started       time.Time
	transport     *transport
	heartbeatDead bool
}

// NewDevice creates a simulated clicker with the given address and
// advertised name.
func NewDevice(addr, name string) *Device {
	return &Device{
		addr:    addr,
		name:    name,
		started: time.Now(),
	}
}

// Addr returns the device address.
func (d *Device) Addr() string { return d.addr }

// Name returns the advertised device name.
func (d *Device) Name() string { return d.name }

// ClickPlus registers n plus clicks, notifying after each one as the
// firmware does.
func (d *Device) ClickPlus(n int) {
	for i := 0; i < n; i++ {
		d.mu.Lock()
		d.plus++
		d.mu.Unlock()
		d.notify(eventTypePlus)
	}
}

// ClickMinus registers n minus clicks.
func (d *Device) ClickMinus(n int) {
	for i := 0; i < n; i++ {
		d.mu.Lock()
		d.minus++
		d.mu.Unlock()
		d.notify(eventTypeMinus)
	}
}

// Counters returns the current cumulative (plus, minus) pair.
func (d *Device) Counters() (plus, minus int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plus, d.minus
}

// DropLink simulates the link dying without a local request: the
// session's disconnect callback fires as if the radio gave up.
func (d *Device) DropLink(err error) {
	d.mu.Lock()
	t := d.transport
	d.transport = nil
	d.mu.Unlock()

	if t != nil {
		t.drop(err)
	}
}

// SetHeartbeatDead makes characteristic reads fail, which a session
// interprets as a dead link on its next probe.
func (d *Device) SetHeartbeatDead(dead bool) {
	d.mu.Lock()
	d.heartbeatDead = dead
	d.mu.Unlock()
}

// reset zeroes the counters silently, mirroring the firmware: the
// next click reports totals starting from zero.
func (d *Device) reset() {
	d.mu.Lock()
	d.plus = 0
	d.minus = 0
	d.mu.Unlock()
}

// notify pushes the current cumulative state through the live
// transport, if any.
func (d *Device) notify(eventType int8) {
	d.mu.Lock()
	evt := protocol.Event{
		CurrentTotal: d.plus - d.minus,
		EventType:    eventType,
		TotalPlus:    d.plus,
		TotalMinus:   d.minus,
		TimestampMS:  uint32(time.Since(d.started).Milliseconds()),
	}
	t := d.transport
	d.mu.Unlock()

	if t != nil {
		t.push(protocol.Encode(evt))
	}
}

func (d *Device) attach(t *transport) {
	d.mu.Lock()
	d.transport = t
	d.mu.Unlock()
}

func (d *Device) detach(t *transport) {
	d.mu.Lock()
	if d.transport == t {
		d.transport = nil
	}
	d.mu.Unlock()
}

func (d *Device) heartbeatOK() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.heartbeatDead
}

// transport is one live link to a Device, handed out per dial attempt.
type transport struct {
	device *Device

	mu        sync.Mutex
	connected bool
	notify    func(payload []byte)
	onDisc    func(err error)
}

var _ ble.Transport = (*transport)(nil)

func (t *transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	t.device.attach(t)
	return nil
}

func (t *transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	t.device.detach(t)
	return nil
}

func (t *transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *transport) ReadCharacteristic(ctx context.Context, uuid string) ([]byte, error) {
	if !t.IsConnected() {
		return nil, ErrLinkDown
	}
	if !t.device.heartbeatOK() {
		return nil, ErrLinkDown
	}
	if uuid == protocol.DeviceNameUUID {
		return []byte(t.device.Name()), nil
	}
	return nil, nil
}

func (t *transport) WriteCharacteristic(ctx context.Context, uuid string, payload []byte, withResponse bool) error {
	if !t.IsConnected() {
		return ErrLinkDown
	}
	if uuid == protocol.ScoringCharacteristicUUID && len(payload) == 1 && payload[0] == protocol.ResetCommand[0] {
		t.device.reset()
	}
	return nil
}

func (t *transport) SubscribeNotify(ctx context.Context, uuid string, handler func(payload []byte)) error {
	if !t.IsConnected() {
		return ErrLinkDown
	}
	t.mu.Lock()
	t.notify = handler
	t.mu.Unlock()
	return nil
}

func (t *transport) OnDisconnect(fn func(err error)) {
	t.mu.Lock()
	t.onDisc = fn
	t.mu.Unlock()
}

func (t *transport) push(payload []byte) {
	t.mu.Lock()
	h := t.notify
	connected := t.connected
	t.mu.Unlock()

	if connected && h != nil {
		h(payload)
	}
}

func (t *transport) drop(err error) {
	t.mu.Lock()
	t.connected = false
	fn := t.onDisc
	t.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}
