package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// Appointment is a read-only snapshot of a booked visit. It is owned by the
// external booking system; the reminder engine captures a copy at scheduling
// time and never re-reads it between arming and firing.
type Appointment struct {
	ID          string
	PatientName string
	Phone       string
	Email       string
	DoctorName  string
	StartTime   time.Time
	Status      AppointmentStatus
	VisitType   string
	CreatedAt   time.Time
}
