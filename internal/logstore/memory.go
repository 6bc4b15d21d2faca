package logstore

import (
	"context"
	"sort"
	"sync"

	"github.com/clinicore/clinicremind/internal/reminder"
)

// Memory is an in-process reminder log used by tests and by deployments
// that run without Postgres. Appends are atomic with respect to each other;
// entries are never mutated after insertion.
type Memory struct {
	mu      sync.Mutex
	entries []reminder.LogEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, entry reminder.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Channels = append([]reminder.Channel(nil), entry.Channels...)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) MostRecent(_ context.Context, appointmentID string) (*reminder.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *reminder.LogEntry
	for i := range m.entries {
		e := m.entries[i]
		if e.AppointmentID != appointmentID {
			continue
		}
		// Later appends win on equal timestamps.
		if latest == nil || !e.SentAt.Before(latest.SentAt) {
			cp := e
			latest = &cp
		}
	}
	return latest, nil
}

// History returns entries for the appointment, newest first, capped at limit.
func (m *Memory) History(_ context.Context, appointmentID string, limit int) ([]reminder.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reminder.LogEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AppointmentID == appointmentID {
			out = append(out, m.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports the total number of appended entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
