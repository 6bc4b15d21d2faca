package reminder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clinicore/clinicremind/internal/model"
)

// Transport delivers a rendered message to one address. Implementations are
// expected to bound their own delivery time (HTTP client timeouts, SMTP
// deadlines); the dispatcher adds none of its own.
type Transport interface {
	Send(ctx context.Context, to string, message string) error
}

// Registry maps each channel to its transport.
type Registry map[Channel]Transport

// ChannelResult is the outcome of one channel's delivery attempt.
type ChannelResult struct {
	Channel Channel
	Err     error
}

// Outcome aggregates a dispatch: per-channel results plus the log entry
// that was appended for the attempt.
type Outcome struct {
	Results []ChannelResult
	Entry   LogEntry
}

func (o Outcome) Status() Status { return o.Entry.Status }

// Dispatcher fans a rendered message out to the configured channels and
// records exactly one log entry per call.
type Dispatcher struct {
	transports Registry
	store      LogStore
	clock      Clock
	logger     *slog.Logger

	// OnResult, when set, is invoked after the log entry has been appended.
	// The service uses it to enqueue reminder.sent / reminder.failed events.
	OnResult func(ctx context.Context, appt model.Appointment, entry LogEntry)
}

func NewDispatcher(transports Registry, store LogStore, clock Clock, logger *slog.Logger) *Dispatcher {
	if clock == nil {
		clock = SystemClock()
	}
	return &Dispatcher{
		transports: transports,
		store:      store,
		clock:      clock,
		logger:     logger,
	}
}

// Dispatch attempts delivery on every channel in the order given. A failure
// on one channel does not abort the others. One log entry is always
// appended: SENT if at least one channel succeeded, FAILED otherwise. A
// store append failure is returned to the caller for external retry; the
// outcome still reflects what was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, appt model.Appointment, kind Kind, message string, channels []Channel) (Outcome, error) {
	results := make([]ChannelResult, 0, len(channels))
	anySent := false
	for _, ch := range channels {
		err := d.sendOne(ctx, ch, appt, message)
		if err != nil {
			d.logger.Error("channel delivery failed",
				"appointment_id", appt.ID,
				"kind", string(kind),
				"channel", string(ch),
				"err", err,
			)
		} else {
			anySent = true
		}
		results = append(results, ChannelResult{Channel: ch, Err: err})
	}

	status := StatusFailed
	if anySent {
		status = StatusSent
	}
	entry := LogEntry{
		ID:            uuid.NewString(),
		AppointmentID: appt.ID,
		Kind:          kind,
		Channels:      append([]Channel(nil), channels...),
		SentAt:        d.clock.Now().UTC(),
		Status:        status,
	}
	outcome := Outcome{Results: results, Entry: entry}

	if err := d.store.Append(ctx, entry); err != nil {
		return outcome, fmt.Errorf("append reminder log: %w", err)
	}
	if d.OnResult != nil {
		d.OnResult(ctx, appt, entry)
	}
	return outcome, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, ch Channel, appt model.Appointment, message string) error {
	t, ok := d.transports[ch]
	if !ok {
		return fmt.Errorf("no transport registered for channel %s", ch)
	}
	var to string
	switch ch {
	case ChannelSMS, ChannelChat:
		to = appt.Phone
	case ChannelEmail:
		to = appt.Email
	default:
		return fmt.Errorf("unknown channel %s", ch)
	}
	if to == "" {
		return fmt.Errorf("appointment %s has no address for channel %s", appt.ID, ch)
	}
	return t.Send(ctx, to, message)
}
