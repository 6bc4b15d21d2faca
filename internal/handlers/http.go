package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clinicore/clinicremind/internal/reminder"
)

// Sweeper runs one proactive sweep pass.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (reminder.SweepResult, error)
}

// HistoryStore reads back the reminder log for one appointment.
type HistoryStore interface {
	History(ctx context.Context, appointmentID string, limit int) ([]reminder.LogEntry, error)
}

type Handler struct {
	sweeper Sweeper
	history HistoryStore
	clock   reminder.Clock
}

func New(sweeper Sweeper, history HistoryStore, clock reminder.Clock) *Handler {
	if clock == nil {
		clock = reminder.SystemClock()
	}
	return &Handler{sweeper: sweeper, history: history, clock: clock}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sweep", h.TriggerSweep)
	mux.HandleFunc("/v1/appointments/{id}/reminders", h.ReminderHistory)
}

// TriggerSweep runs an on-demand sweep and returns its report.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.sweeper.Sweep(r.Context(), h.clock.Now())
	if err != nil {
		http.Error(w, "sweep failed", http.StatusInternalServerError)
		return
	}

	failures := make([]map[string]string, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, map[string]string{
			"appointment_id": f.AppointmentID,
			"error":          f.Err.Error(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"scanned":  res.Scanned,
		"notified": res.Notified,
		"skipped":  res.Skipped,
		"failures": failures,
	})
}

// ReminderHistory lists the reminder log for one appointment, newest first.
func (h *Handler) ReminderHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	appointmentID := strings.TrimSpace(r.PathValue("id"))
	if appointmentID == "" {
		http.Error(w, "missing appointment id", http.StatusBadRequest)
		return
	}

	entries, err := h.history.History(r.Context(), appointmentID, 100)
	if err != nil {
		http.Error(w, "failed to load reminder history", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		channels := make([]string, 0, len(e.Channels))
		for _, ch := range e.Channels {
			channels = append(channels, string(ch))
		}
		out = append(out, map[string]any{
			"id":       e.ID,
			"kind":     string(e.Kind),
			"channels": channels,
			"sent_at":  e.SentAt.UTC().Format(time.RFC3339),
			"status":   string(e.Status),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointment_id": appointmentID,
		"reminders":      out,
	})
}
