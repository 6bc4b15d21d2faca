package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicore/clinicremind/internal/model"
)

// AppointmentSource lists the appointments the sweep scans. Backed by the
// bookings database in the service, by a slice in tests.
type AppointmentSource interface {
	ListScheduled(ctx context.Context) ([]model.Appointment, error)
}

// SweepFailure records one appointment the sweep could not process.
type SweepFailure struct {
	AppointmentID string
	Err           error
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Scanned  int
	Notified int
	Skipped  int
	Failures []SweepFailure
}

// Sweeper periodically re-notifies patients about upcoming appointments,
// bypassing the per-appointment timers. A cooldown measured from the most
// recent log entry of any kind keeps it from spamming.
type Sweeper struct {
	source     AppointmentSource
	store      LogStore
	dispatcher *Dispatcher
	cfg        Config
	logger     *slog.Logger
}

func NewSweeper(source AppointmentSource, store LogStore, dispatcher *Dispatcher, cfg Config, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		source:     source,
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg.normalized(),
		logger:     logger,
	}
}

// Sweep scans every SCHEDULED appointment within the lookahead window and
// dispatches a PROACTIVE reminder for those past the cooldown. It is
// idempotent for a fixed now and log snapshot: the entry written by one run
// puts the appointment inside the cooldown for the next (unless the
// cooldown is zero). One appointment's failure never stops the rest; only
// a source listing error aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	appts, err := s.source.ListScheduled(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list appointments: %w", err)
	}

	var res SweepResult
	for _, appt := range appts {
		if appt.Status != model.StatusScheduled {
			continue
		}
		res.Scanned++

		daysUntil := ceilDays(appt.StartTime.Sub(now))
		if daysUntil <= 0 || daysUntil > s.cfg.LookaheadDays {
			res.Skipped++
			continue
		}

		last, err := s.store.MostRecent(ctx, appt.ID)
		if err != nil {
			res.Failures = append(res.Failures, SweepFailure{AppointmentID: appt.ID, Err: err})
			s.logger.Error("sweep: reminder history lookup failed", "appointment_id", appt.ID, "err", err)
			continue
		}
		if last != nil {
			cooldown := time.Duration(s.cfg.CooldownDays) * 24 * time.Hour
			if now.Sub(last.SentAt) < cooldown {
				res.Skipped++
				continue
			}
		}

		message := Render(s.cfg.Messages[KindProactive], appt, Vars{Days: daysUntil})
		if _, err := s.dispatcher.Dispatch(ctx, appt, KindProactive, message, s.cfg.Channels); err != nil {
			res.Failures = append(res.Failures, SweepFailure{AppointmentID: appt.ID, Err: err})
			s.logger.Error("sweep: dispatch not fully recorded", "appointment_id", appt.ID, "err", err)
			continue
		}
		res.Notified++
	}

	s.logger.Info("sweep complete",
		"scanned", res.Scanned,
		"notified", res.Notified,
		"skipped", res.Skipped,
		"failures", len(res.Failures),
	)
	return res, nil
}

// ceilDays rounds a positive duration up to whole days; non-positive
// durations round toward zero or below so past appointments are excluded.
func ceilDays(d time.Duration) int {
	const day = 24 * time.Hour
	n := int(d / day)
	if d%day > 0 {
		n++
	}
	return n
}
