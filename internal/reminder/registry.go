package reminder

import "sync"

// ScheduleRegistry tracks the live Schedule handle per appointment so that
// re-bookings and cancellations can stop armed timers. At most one handle
// per appointment is kept; replacing cancels the previous one, which keeps
// the one-armed-timer-per-kind invariant at the caller level where it
// belongs.
type ScheduleRegistry struct {
	mu        sync.Mutex
	schedules map[string]*Schedule
}

func NewScheduleRegistry() *ScheduleRegistry {
	return &ScheduleRegistry{schedules: make(map[string]*Schedule)}
}

// Replace stores the handle for its appointment, cancelling any previous
// handle's armed timers first.
func (r *ScheduleRegistry) Replace(s *Schedule) {
	r.mu.Lock()
	prev := r.schedules[s.AppointmentID()]
	r.schedules[s.AppointmentID()] = s
	r.mu.Unlock()
	if prev != nil {
		prev.CancelAll()
	}
}

// Cancel stops all armed timers for an appointment and drops its handle.
// It reports whether a handle was present.
func (r *ScheduleRegistry) Cancel(appointmentID string) bool {
	r.mu.Lock()
	s, ok := r.schedules[appointmentID]
	delete(r.schedules, appointmentID)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.CancelAll()
	return true
}

// Get returns the live handle for an appointment, if any.
func (r *ScheduleRegistry) Get(appointmentID string) (*Schedule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[appointmentID]
	return s, ok
}

// Len reports how many appointments currently have handles.
func (r *ScheduleRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.schedules)
}
