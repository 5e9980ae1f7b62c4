// Package model holds the record types shared between the ingestion
// pipeline and the storage layer.
package model

import (
	"time"

	"github.com/tallyops/clickerd/internal/domain/protocol"
)

// Device roles as written to the event log.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

// ScoreRecord is one decoded clicker notification annotated with the
// match context it arrived under. Records for the same
// (group, contestant, judge) stream must be persisted in arrival order.
type ScoreRecord struct {
	Group      string
	Contestant string
	Judge      int // 1-based judge slot
	Role       string
	SystemTime time.Time
	Event      protocol.Event
}

// StreamKey identifies the log stream the record belongs to.
func (r ScoreRecord) StreamKey() StreamKey {
	return StreamKey{Group: r.Group, Contestant: r.Contestant, Judge: r.Judge}
}

// StreamKey names one append-only event log stream.
type StreamKey struct {
	Group      string
	Contestant string
	Judge      int
}
