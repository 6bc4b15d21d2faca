package logstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/clinicore/clinicremind/internal/reminder"
	"github.com/clinicore/clinicremind/libs/db"
)

// Postgres persists the reminder log in the reminder_log table. Rows are
// insert-only; concurrent appends rely on the database, not on any
// process-local locking.
type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Append(ctx context.Context, entry reminder.LogEntry) error {
	channels := make([]string, 0, len(entry.Channels))
	for _, ch := range entry.Channels {
		channels = append(channels, string(ch))
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO reminder_log (id, appointment_id, kind, channels, sent_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.AppointmentID, string(entry.Kind), channels, entry.SentAt, string(entry.Status))
	return err
}

func (p *Postgres) MostRecent(ctx context.Context, appointmentID string) (*reminder.LogEntry, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, appointment_id, kind, channels, sent_at, status
		FROM reminder_log
		WHERE appointment_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`, appointmentID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// History returns the newest entries for an appointment, capped at limit.
func (p *Postgres) History(ctx context.Context, appointmentID string, limit int) ([]reminder.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, appointment_id, kind, channels, sent_at, status
		FROM reminder_log
		WHERE appointment_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2
	`, appointmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []reminder.LogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (reminder.LogEntry, error) {
	var entry reminder.LogEntry
	var kind, status string
	var channels []string
	if err := row.Scan(&entry.ID, &entry.AppointmentID, &kind, &channels, &entry.SentAt, &status); err != nil {
		return reminder.LogEntry{}, err
	}
	entry.Kind = reminder.Kind(kind)
	entry.Status = reminder.Status(status)
	for _, ch := range channels {
		entry.Channels = append(entry.Channels, reminder.Channel(ch))
	}
	return entry, nil
}
