package reminder

import (
	"context"
	"time"
)

// Status is the aggregate delivery status recorded for a dispatch attempt.
type Status string

const (
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// LogEntry is the immutable record of one dispatch attempt. Exactly one
// entry is written per Dispatch call, never updated afterwards.
type LogEntry struct {
	ID            string
	AppointmentID string
	Kind          Kind
	Channels      []Channel
	SentAt        time.Time
	Status        Status
}

// LogStore is the append-only reminder history. Appends must be atomic with
// respect to each other; entries must survive process restarts when backed
// by a durable store.
type LogStore interface {
	Append(ctx context.Context, entry LogEntry) error
	// MostRecent returns the newest entry of any kind for the appointment,
	// or nil when the appointment has no history.
	MostRecent(ctx context.Context, appointmentID string) (*LogEntry, error)
}
