package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clinicore/clinicremind/internal/model"
)

// Engine computes fire times for the lifecycle reminder kinds and arms
// one-shot timers for them. Timers are fire-and-forget: a dispatch failure
// is logged as FAILED and the entry still transitions to FIRED, and a
// missed fire is not recoverable here.
type Engine struct {
	dispatcher *Dispatcher
	clock      Clock
	logger     *slog.Logger
}

func NewEngine(dispatcher *Dispatcher, clock Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{dispatcher: dispatcher, clock: clock, logger: logger}
}

// Schedule arms timers for the appointment and returns a handle the caller
// can use to inspect or cancel them. Fire times:
//
//	CONFIRMATION  now + ConfirmationDelay   (always armed)
//	PRE_VISIT     start - PreVisitLead      (skipped when already past)
//	DAY_OF        start - DayOfLead         (skipped when already past)
//	FOLLOW_UP     start + FollowUpDelay     (skipped when already past)
//
// The engine does not deduplicate against earlier schedules for the same
// appointment; callers re-scheduling must cancel the previous handle first.
// The appointment is captured by value and not re-read before firing.
func (e *Engine) Schedule(ctx context.Context, appt model.Appointment, cfg Config) *Schedule {
	cfg = cfg.normalized()
	now := e.clock.Now()

	s := &Schedule{
		appt:    appt,
		entries: make(map[Kind]*scheduleEntry, 4),
	}

	plan := []struct {
		kind   Kind
		fireAt time.Time
		always bool
	}{
		{KindConfirmation, now.Add(cfg.Timing.ConfirmationDelay), true},
		{KindPreVisit, appt.StartTime.Add(-cfg.Timing.PreVisitLead), false},
		{KindDayOf, appt.StartTime.Add(-cfg.Timing.DayOfLead), false},
		{KindFollowUp, appt.StartTime.Add(cfg.Timing.FollowUpDelay), false},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plan {
		entry := &scheduleEntry{state: StatePending, fireAt: p.fireAt}
		s.entries[p.kind] = entry

		if !p.always && !p.fireAt.After(now) {
			entry.state = StateSkipped
			continue
		}

		delay := p.fireAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		kind := p.kind
		entry.state = StateArmed
		entry.timer = e.clock.AfterFunc(delay, func() {
			e.fire(ctx, s, kind, cfg)
		})
		e.logger.Info("reminder armed",
			"appointment_id", appt.ID,
			"kind", string(kind),
			"fire_at", p.fireAt.UTC().Format(time.RFC3339),
		)
	}
	return s
}

func (e *Engine) fire(ctx context.Context, s *Schedule, kind Kind, cfg Config) {
	s.mu.Lock()
	entry := s.entries[kind]
	if entry == nil || entry.state != StateArmed {
		s.mu.Unlock()
		return
	}
	entry.state = StateFired
	s.mu.Unlock()

	var vars Vars
	if kind == KindDayOf {
		vars.Hours = int(cfg.Timing.DayOfLead / time.Hour)
	}
	message := Render(cfg.Messages[kind], s.appt, vars)

	outcome, err := e.dispatcher.Dispatch(ctx, s.appt, kind, message, cfg.Channels)
	if err != nil {
		// Delivery may have happened; only the log write needs external retry.
		e.logger.Error("reminder log append failed",
			"appointment_id", s.appt.ID,
			"kind", string(kind),
			"err", err,
		)
		return
	}
	e.logger.Info("reminder fired",
		"appointment_id", s.appt.ID,
		"kind", string(kind),
		"status", string(outcome.Status()),
	)
}

// Schedule is the cancellation handle returned per appointment: one entry
// per lifecycle kind, guarded by a single mutex since timer callbacks run
// concurrently with callers.
type Schedule struct {
	appt model.Appointment

	mu      sync.Mutex
	entries map[Kind]*scheduleEntry
}

type scheduleEntry struct {
	state  State
	fireAt time.Time
	timer  Timer
}

func (s *Schedule) AppointmentID() string { return s.appt.ID }

// States returns a snapshot of the per-kind state machine.
func (s *Schedule) States() map[Kind]State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Kind]State, len(s.entries))
	for kind, entry := range s.entries {
		out[kind] = entry.state
	}
	return out
}

// FireAt returns the computed fire time for a kind and whether that kind
// exists on this schedule.
func (s *Schedule) FireAt(kind Kind) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[kind]
	if !ok {
		return time.Time{}, false
	}
	return entry.fireAt, true
}

// Cancel stops the armed timer for a kind. It reports false when the kind
// was not armed (already fired, skipped, or cancelled).
func (s *Schedule) Cancel(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(kind)
}

// CancelAll stops every armed timer, e.g. when the appointment leaves the
// SCHEDULED status.
func (s *Schedule) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.entries {
		s.cancelLocked(kind)
	}
}

func (s *Schedule) cancelLocked(kind Kind) bool {
	entry, ok := s.entries[kind]
	if !ok || entry.state != StateArmed {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.state = StateCancelled
	return true
}
