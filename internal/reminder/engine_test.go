package reminder

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestEngine(now time.Time) (*Engine, *fakeClock, *memStore, *fakeTransport) {
	clock := newFakeClock(now)
	store := newMemStore()
	sms := &fakeTransport{}
	d := NewDispatcher(Registry{ChannelSMS: sms, ChannelChat: &fakeTransport{}}, store, clock, testLogger())
	return NewEngine(d, clock, testLogger()), clock, store, sms
}

func TestSchedule_ConfirmationAlwaysArmed(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, _, _, _ := newTestEngine(now)

	// Appointment already in the past; every offset-based kind is skipped
	// but the confirmation still fires at T+5min.
	appt := testAppointment()
	appt.StartTime = time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

	s := engine.Schedule(context.Background(), appt, DefaultConfig())

	states := s.States()
	if states[KindConfirmation] != StateArmed {
		t.Fatalf("CONFIRMATION state = %s, want ARMED", states[KindConfirmation])
	}
	fireAt, ok := s.FireAt(KindConfirmation)
	if !ok || !fireAt.Equal(now.Add(5*time.Minute)) {
		t.Fatalf("CONFIRMATION fireAt = %s, want %s", fireAt, now.Add(5*time.Minute))
	}
	for _, kind := range []Kind{KindPreVisit, KindDayOf, KindFollowUp} {
		if states[kind] != StateSkipped {
			t.Fatalf("%s state = %s, want SKIPPED", kind, states[kind])
		}
	}
}

func TestSchedule_PreVisitSkippedWhenAppointmentTooClose(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, _, _, _ := newTestEngine(now)

	// 10 hours away: the 24h pre-visit point has already passed.
	appt := testAppointment()
	appt.StartTime = now.Add(10 * time.Hour)

	s := engine.Schedule(context.Background(), appt, DefaultConfig())

	states := s.States()
	if states[KindPreVisit] != StateSkipped {
		t.Fatalf("PRE_VISIT state = %s, want SKIPPED", states[KindPreVisit])
	}
	if states[KindDayOf] != StateArmed {
		t.Fatalf("DAY_OF state = %s, want ARMED", states[KindDayOf])
	}
	if states[KindFollowUp] != StateArmed {
		t.Fatalf("FOLLOW_UP state = %s, want ARMED", states[KindFollowUp])
	}
}

func TestSchedule_FireTimesFromOffsets(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, clock, store, _ := newTestEngine(now)

	// Appointment 2024-01-20T10:00, default offsets:
	// CONFIRMATION 01-19T09:05, PRE_VISIT 01-19T10:00,
	// DAY_OF 01-20T08:00, FOLLOW_UP 01-20T11:00 — all in the future.
	appt := testAppointment()
	s := engine.Schedule(context.Background(), appt, DefaultConfig())

	wantFireAt := map[Kind]time.Time{
		KindConfirmation: time.Date(2024, 1, 19, 9, 5, 0, 0, time.UTC),
		KindPreVisit:     time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC),
		KindDayOf:        time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC),
		KindFollowUp:     time.Date(2024, 1, 20, 11, 0, 0, 0, time.UTC),
	}
	for kind, want := range wantFireAt {
		got, ok := s.FireAt(kind)
		if !ok || !got.Equal(want) {
			t.Fatalf("%s fireAt = %s, want %s", kind, got, want)
		}
		if s.States()[kind] != StateArmed {
			t.Fatalf("%s state = %s, want ARMED", kind, s.States()[kind])
		}
	}

	// Walk the clock past every fire time and verify dispatch order.
	clock.Advance(5 * time.Minute) // 09:05 confirmation
	if got := len(store.byKind(KindConfirmation)); got != 1 {
		t.Fatalf("after 09:05: confirmation entries = %d, want 1", got)
	}
	clock.Advance(55 * time.Minute) // 10:00 pre-visit
	if got := len(store.byKind(KindPreVisit)); got != 1 {
		t.Fatalf("after 10:00: pre-visit entries = %d, want 1", got)
	}
	clock.Advance(22 * time.Hour) // next day 08:00 day-of
	if got := len(store.byKind(KindDayOf)); got != 1 {
		t.Fatalf("after 08:00: day-of entries = %d, want 1", got)
	}
	clock.Advance(3 * time.Hour) // 11:00 follow-up
	if got := len(store.byKind(KindFollowUp)); got != 1 {
		t.Fatalf("after 11:00: follow-up entries = %d, want 1", got)
	}

	if store.count() != 4 {
		t.Fatalf("total entries = %d, want 4", store.count())
	}
	for kind, state := range s.States() {
		if state != StateFired {
			t.Fatalf("%s state = %s, want FIRED", kind, state)
		}
	}
}

func TestSchedule_LaterNowSkipsPreVisit(t *testing.T) {
	now := time.Date(2024, 1, 19, 11, 0, 0, 0, time.UTC)
	engine, _, _, _ := newTestEngine(now)

	appt := testAppointment() // 2024-01-20T10:00; pre-visit point 01-19T10:00 already past
	s := engine.Schedule(context.Background(), appt, DefaultConfig())

	if got := s.States()[KindPreVisit]; got != StateSkipped {
		t.Fatalf("PRE_VISIT state = %s, want SKIPPED", got)
	}
	if got := s.States()[KindDayOf]; got != StateArmed {
		t.Fatalf("DAY_OF state = %s, want ARMED", got)
	}
}

func TestSchedule_DayOfMessageSubstitutesHours(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, clock, _, sms := newTestEngine(now)

	cfg := DefaultConfig()
	cfg.Messages[KindDayOf] = "see you in {hours} hours"
	s := engine.Schedule(context.Background(), testAppointment(), cfg)

	fireAt, _ := s.FireAt(KindDayOf)
	clock.Advance(fireAt.Sub(now))

	found := false
	for _, msg := range sms.sent() {
		if msg == "see you in 2 hours" {
			found = true
		}
	}
	if !found {
		t.Fatalf("day-of message missing hours substitution, sent: %v", sms.sent())
	}
}

func TestSchedule_DispatchFailureStillTransitionsToFired(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	store := newMemStore()
	failing := &fakeTransport{err: errors.New("down")}
	d := NewDispatcher(Registry{ChannelSMS: failing, ChannelChat: failing}, store, clock, testLogger())
	engine := NewEngine(d, clock, testLogger())

	s := engine.Schedule(context.Background(), testAppointment(), DefaultConfig())
	clock.Advance(5 * time.Minute)

	if got := s.States()[KindConfirmation]; got != StateFired {
		t.Fatalf("CONFIRMATION state = %s, want FIRED despite failure", got)
	}
	entries := store.byKind(KindConfirmation)
	if len(entries) != 1 || entries[0].Status != StatusFailed {
		t.Fatalf("expected one FAILED entry, got %+v", entries)
	}
}

func TestSchedule_CancelStopsTimer(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, clock, store, _ := newTestEngine(now)

	s := engine.Schedule(context.Background(), testAppointment(), DefaultConfig())

	if !s.Cancel(KindPreVisit) {
		t.Fatal("expected Cancel to report an armed timer")
	}
	if s.Cancel(KindPreVisit) {
		t.Fatal("second Cancel should report false")
	}

	clock.Advance(48 * time.Hour)
	if got := len(store.byKind(KindPreVisit)); got != 0 {
		t.Fatalf("cancelled pre-visit still fired %d times", got)
	}
	if got := s.States()[KindPreVisit]; got != StateCancelled {
		t.Fatalf("PRE_VISIT state = %s, want CANCELLED", got)
	}
}

func TestSchedule_CancelAll(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, clock, store, _ := newTestEngine(now)

	s := engine.Schedule(context.Background(), testAppointment(), DefaultConfig())
	s.CancelAll()

	clock.Advance(72 * time.Hour)
	if store.count() != 0 {
		t.Fatalf("cancelled schedule still produced %d entries", store.count())
	}
}

func TestScheduleRegistry_ReplaceCancelsPrevious(t *testing.T) {
	now := time.Date(2024, 1, 19, 9, 0, 0, 0, time.UTC)
	engine, clock, store, _ := newTestEngine(now)
	registry := NewScheduleRegistry()

	first := engine.Schedule(context.Background(), testAppointment(), DefaultConfig())
	registry.Replace(first)

	second := engine.Schedule(context.Background(), testAppointment(), DefaultConfig())
	registry.Replace(second)

	for kind, state := range first.States() {
		if state == StateArmed {
			t.Fatalf("first schedule %s still armed after replace", kind)
		}
	}
	if registry.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", registry.Len())
	}

	// Only the second schedule's confirmation fires.
	clock.Advance(5 * time.Minute)
	if got := len(store.byKind(KindConfirmation)); got != 1 {
		t.Fatalf("confirmation entries = %d, want 1", got)
	}

	if !registry.Cancel(testAppointment().ID) {
		t.Fatal("expected Cancel to find the handle")
	}
	if registry.Cancel(testAppointment().ID) {
		t.Fatal("expected second Cancel to report false")
	}
}
