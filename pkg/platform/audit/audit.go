// Package audit captures mutation events from the ownership layer. Events
// are emitted from domain logic into a channel-fed worker that persists
// them, keeping the hot path free of audit I/O.
package audit

import (
	"context"
	"time"

	"member-vault/pkg/domain"
)

// Action identifies what happened to an owned record.
type Action string

const (
	ActionProfileProvisioned Action = "profile_provisioned"
	ActionRecordCreated      Action = "record_created"
	ActionRecordUpdated      Action = "record_updated"
	ActionRecordDeleted      Action = "record_deleted"
	ActionBulkDeleteDenied   Action = "bulk_delete_denied"
)

// Event is emitted from domain logic. Keep it transport-agnostic so stores
// can fan out without knowing about HTTP.
type Event struct {
	Timestamp time.Time
	Action    Action
	UserID    domain.UserID
	Kind      string
	RecordID  int64
	RequestID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error)
}

// Recorder is the producer side handed to services. A nil *Recorder is a
// no-op so wiring audit stays optional in tests.
type Recorder struct {
	inbox chan<- Event
}

func NewRecorder(inbox chan<- Event) *Recorder {
	return &Recorder{inbox: inbox}
}

// Record enqueues an event, stamping the time. It never blocks the caller:
// when the worker is behind, the event is dropped rather than stalling a
// request.
func (r *Recorder) Record(event Event) {
	if r == nil || r.inbox == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	select {
	case r.inbox <- event:
	default:
	}
}
