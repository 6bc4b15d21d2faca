package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// memStore is a minimal in-process LogStore for engine and sweep tests.
type memStore struct {
	mu        sync.Mutex
	entries   []LogEntry
	appendErr error
	recentErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) Append(_ context.Context, entry LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memStore) MostRecent(_ context.Context, appointmentID string) (*LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recentErr[appointmentID]; err != nil {
		return nil, err
	}
	var latest *LogEntry
	for i := range m.entries {
		e := m.entries[i]
		if e.AppointmentID != appointmentID {
			continue
		}
		if latest == nil || !e.SentAt.Before(latest.SentAt) {
			cp := e
			latest = &cp
		}
	}
	return latest, nil
}

func (m *memStore) byKind(kind Kind) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type fakeTransport struct {
	mu       sync.Mutex
	err      error
	messages []string
	to       []string
}

func (f *fakeTransport) Send(_ context.Context, to string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeTransport) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDispatch_AllChannelsSucceed(t *testing.T) {
	sms := &fakeTransport{}
	chat := &fakeTransport{}
	store := newMemStore()
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{ChannelSMS: sms, ChannelChat: chat}, store, clock, testLogger())

	out, err := d.Dispatch(context.Background(), testAppointment(), KindConfirmation, "hello", []Channel{ChannelSMS, ChannelChat})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Status() != StatusSent {
		t.Fatalf("status = %s, want SENT", out.Status())
	}
	if len(sms.sent()) != 1 || len(chat.sent()) != 1 {
		t.Fatalf("expected one message per channel, got sms=%d chat=%d", len(sms.sent()), len(chat.sent()))
	}
	if store.count() != 1 {
		t.Fatalf("expected 1 log entry, got %d", store.count())
	}
}

func TestDispatch_PartialFailureIsSent(t *testing.T) {
	sms := &fakeTransport{err: errors.New("gateway down")}
	email := &fakeTransport{}
	store := newMemStore()
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{ChannelSMS: sms, ChannelEmail: email}, store, clock, testLogger())

	out, err := d.Dispatch(context.Background(), testAppointment(), KindPreVisit, "hello", []Channel{ChannelSMS, ChannelEmail})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Status() != StatusSent {
		t.Fatalf("status = %s, want SENT when one channel succeeds", out.Status())
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 channel results, got %d", len(out.Results))
	}
	if out.Results[0].Err == nil {
		t.Fatal("expected SMS result to carry the transport error")
	}
	if out.Results[1].Err != nil {
		t.Fatalf("email result: %v", out.Results[1].Err)
	}
	if store.count() != 1 {
		t.Fatalf("expected exactly 1 log entry, got %d", store.count())
	}
	if store.entries[0].Status != StatusSent {
		t.Fatalf("log status = %s, want SENT", store.entries[0].Status)
	}
}

func TestDispatch_AllChannelsFail(t *testing.T) {
	sms := &fakeTransport{err: errors.New("down")}
	store := newMemStore()
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{ChannelSMS: sms}, store, clock, testLogger())

	out, err := d.Dispatch(context.Background(), testAppointment(), KindDayOf, "hello", []Channel{ChannelSMS})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Status() != StatusFailed {
		t.Fatalf("status = %s, want FAILED", out.Status())
	}
	if store.count() != 1 {
		t.Fatalf("expected a FAILED log entry, got %d entries", store.count())
	}
	if store.entries[0].Status != StatusFailed {
		t.Fatalf("log status = %s, want FAILED", store.entries[0].Status)
	}
}

func TestDispatch_MissingTransportIsChannelFailure(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{}, store, clock, testLogger())

	out, err := d.Dispatch(context.Background(), testAppointment(), KindFollowUp, "hello", []Channel{ChannelChat})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.Status() != StatusFailed {
		t.Fatalf("status = %s, want FAILED", out.Status())
	}
}

func TestDispatch_StoreErrorSurfaced(t *testing.T) {
	sms := &fakeTransport{}
	store := newMemStore()
	store.appendErr = errors.New("db unavailable")
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{ChannelSMS: sms}, store, clock, testLogger())

	out, err := d.Dispatch(context.Background(), testAppointment(), KindConfirmation, "hello", []Channel{ChannelSMS})
	if err == nil {
		t.Fatal("expected append error to surface")
	}
	// Delivery still happened and the outcome reports it.
	if out.Status() != StatusSent {
		t.Fatalf("status = %s, want SENT despite store failure", out.Status())
	}
	if len(sms.sent()) != 1 {
		t.Fatalf("expected message delivered, got %d", len(sms.sent()))
	}
}

func TestDispatch_EmailUsesEmailAddress(t *testing.T) {
	email := &fakeTransport{}
	store := newMemStore()
	clock := newFakeClock(time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC))
	d := NewDispatcher(Registry{ChannelEmail: email}, store, clock, testLogger())

	if _, err := d.Dispatch(context.Background(), testAppointment(), KindConfirmation, "hello", []Channel{ChannelEmail}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(email.to) != 1 || email.to[0] != "amit@example.com" {
		t.Fatalf("email sent to %v, want amit@example.com", email.to)
	}
}
