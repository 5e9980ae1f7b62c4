// Package protocol implements the binary wire protocol spoken by the
// scoring clickers. A notification payload is a fixed 17-byte
// little-endian frame; anything else is malformed and rejected whole.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// Characteristic UUIDs used by the clicker firmware.
const (
	// ServiceUUID identifies the scoring service advertised by clickers.
	ServiceUUID = "025018d0-6951-4a81-de4f-453d8dae9128"

	// ScoringCharacteristicUUID carries score notifications and accepts
	// the reset command. It is identical to the service UUID on current
	// firmware revisions.
	ScoringCharacteristicUUID = "025018d0-6951-4a81-de4f-453d8dae9128"

	// DeviceNameUUID is the standard GATT Device Name characteristic
	// (Generic Access). Present on every device, reading it never
	// interferes with scoring data, which makes it the heartbeat probe.
	DeviceNameUUID = "00002a00-0000-1000-8000-00805f9b34fb"

	// DeviceNamePrefix is the advertised-name prefix of scoring clickers.
	DeviceNamePrefix = "Counter-"
)

// ResetCommand is the single-byte payload written to the scoring
// characteristic to zero a device's counters. Write-with-response.
var ResetCommand = []byte{0x01}

// FrameSize is the exact length of a score notification payload.
const FrameSize = 17

// Field offsets inside a frame. Little-endian, no padding.
const (
	offCurrentTotal = 0  // int32
	offEventType    = 4  // int8
	offTotalPlus    = 5  // int32
	offTotalMinus   = 9  // int32
	offTimestampMS  = 13 // uint32
)

// Event is one decoded clicker notification. total_plus/total_minus are
// device-side cumulative counters (non-decreasing until a reset is
// accepted); current_total is the device's own plus-minus computation
// and is advisory only; the fusion engine recomputes authoritative
// totals itself.
type Event struct {
	CurrentTotal int32
	EventType    int8
	TotalPlus    int32
	TotalMinus   int32
	TimestampMS  uint32
}

// Decode parses a notification payload into an Event. Input must be
// exactly FrameSize bytes; any other length returns ErrSizeMismatch.
// Decoding is pure and total for well-sized input.
func Decode(data []byte) (Event, error) {
	if len(data) != FrameSize {
		return Event{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), FrameSize)
	}
	return Event{
		CurrentTotal: int32(binary.LittleEndian.Uint32(data[offCurrentTotal:])),
		EventType:    int8(data[offEventType]),
		TotalPlus:    int32(binary.LittleEndian.Uint32(data[offTotalPlus:])),
		TotalMinus:   int32(binary.LittleEndian.Uint32(data[offTotalMinus:])),
		TimestampMS:  binary.LittleEndian.Uint32(data[offTimestampMS:]),
	}, nil
}

// Encode serializes an Event into a FrameSize-byte payload. The inverse
// of Decode; used by the device simulator and round-trip tests.
func Encode(e Event) []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[offCurrentTotal:], uint32(e.CurrentTotal))
	buf[offEventType] = byte(e.EventType)
	binary.LittleEndian.PutUint32(buf[offTotalPlus:], uint32(e.TotalPlus))
	binary.LittleEndian.PutUint32(buf[offTotalMinus:], uint32(e.TotalMinus))
	binary.LittleEndian.PutUint32(buf[offTimestampMS:], e.TimestampMS)
	return buf
}
