package appointments

import (
	"context"

	"github.com/clinicore/clinicremind/internal/model"
	"github.com/clinicore/clinicremind/libs/db"
)

// Repository mirrors booked appointments into the local appointments table
// so the proactive sweep has something to scan. The booking system stays
// the owner of the records; this side only tracks the snapshot it was told
// about plus status transitions.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert records the appointment snapshot carried on a booked event.
// Re-booking the same id replaces the previous snapshot.
func (r *Repository) Upsert(ctx context.Context, appt model.Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, patient_name, phone, email, doctor_name, start_time, status, visit_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			doctor_name = EXCLUDED.doctor_name,
			start_time = EXCLUDED.start_time,
			status = EXCLUDED.status,
			visit_type = EXCLUDED.visit_type,
			updated_at = now()
	`, appt.ID, appt.PatientName, appt.Phone, appt.Email, appt.DoctorName, appt.StartTime, string(appt.Status), appt.VisitType)
	return err
}

// SetStatus moves an appointment out of (or back into) SCHEDULED.
func (r *Repository) SetStatus(ctx context.Context, appointmentID string, status model.AppointmentStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, appointmentID, string(status))
	return err
}

// ListScheduled returns every appointment still in SCHEDULED status. It
// implements reminder.AppointmentSource for the sweep.
func (r *Repository) ListScheduled(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_name, phone, email, doctor_name, start_time, status, visit_type, created_at
		FROM appointments
		WHERE status = 'SCHEDULED'
		ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var status string
		if err := rows.Scan(&a.ID, &a.PatientName, &a.Phone, &a.Email, &a.DoctorName, &a.StartTime, &status, &a.VisitType, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Status = model.AppointmentStatus(status)
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
