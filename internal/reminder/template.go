package reminder

import (
	"strconv"
	"strings"

	"github.com/clinicore/clinicremind/internal/model"
)

// Vars carries the numeric substitutions only some kinds use: {hours} for
// day-of reminders, {days} for proactive ones. A zero value means the
// placeholder is not substituted and is left verbatim.
type Vars struct {
	Hours int
	Days  int
}

// Render substitutes placeholder tokens in a message template. Each
// placeholder is replaced at most once (first occurrence); repeated uses of
// the same placeholder in one template are deliberately not all replaced.
// Unknown placeholders are left verbatim. Render never fails.
func Render(template string, appt model.Appointment, vars Vars) string {
	out := template
	out = strings.Replace(out, "{patientName}", appt.PatientName, 1)
	out = strings.Replace(out, "{date}", appt.StartTime.Format("Mon, 02 Jan 2006"), 1)
	out = strings.Replace(out, "{time}", appt.StartTime.Format("15:04"), 1)
	out = strings.Replace(out, "{doctor}", appt.DoctorName, 1)
	out = strings.Replace(out, "{token}", Token(appt.ID), 1)
	if vars.Hours > 0 {
		out = strings.Replace(out, "{hours}", strconv.Itoa(vars.Hours), 1)
	}
	if vars.Days > 0 {
		out = strings.Replace(out, "{days}", strconv.Itoa(vars.Days), 1)
	}
	return out
}

// Token derives a short check-in reference from an appointment id: the last
// six characters, upper-cased. Shorter ids are upper-cased whole.
func Token(appointmentID string) string {
	if len(appointmentID) > 6 {
		appointmentID = appointmentID[len(appointmentID)-6:]
	}
	return strings.ToUpper(appointmentID)
}
