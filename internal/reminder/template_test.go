package reminder

import (
	"testing"
	"time"

	"github.com/clinicore/clinicremind/internal/model"
)

func testAppointment() model.Appointment {
	return model.Appointment{
		ID:          "APT_0000001234AB",
		PatientName: "Amit",
		Phone:       "+15550100",
		Email:       "amit@example.com",
		DoctorName:  "Dr. X",
		StartTime:   time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC),
		Status:      model.StatusScheduled,
	}
}

func TestRender_Basic(t *testing.T) {
	got := Render("Hi {patientName}, see {doctor} at {time}", testAppointment(), Vars{})
	want := "Hi Amit, see Dr. X at 10:00"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_UnknownPlaceholderLeftVerbatim(t *testing.T) {
	got := Render("Hello {patientName}, your {thing} is ready", testAppointment(), Vars{})
	want := "Hello Amit, your {thing} is ready"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_SinglePassReplacesFirstOccurrenceOnly(t *testing.T) {
	got := Render("{patientName} and {patientName}", testAppointment(), Vars{})
	want := "Amit and {patientName}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRender_HoursAndDays(t *testing.T) {
	appt := testAppointment()

	got := Render("in {hours} hours", appt, Vars{Hours: 2})
	if got != "in 2 hours" {
		t.Fatalf("hours: got %q", got)
	}

	got = Render("in {days} day(s)", appt, Vars{Days: 3})
	if got != "in 3 day(s)" {
		t.Fatalf("days: got %q", got)
	}

	// Without values the placeholders stay verbatim.
	got = Render("in {hours} hours, {days} days", appt, Vars{})
	if got != "in {hours} hours, {days} days" {
		t.Fatalf("unset: got %q", got)
	}
}

func TestRender_TokenAndDate(t *testing.T) {
	got := Render("{date} ref {token}", testAppointment(), Vars{})
	want := "Sat, 20 Jan 2024 ref 1234AB"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToken(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"APT_0000001234AB", "1234AB"},
		{"abc123xyz", "123XYZ"},
		{"ab12", "AB12"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Token(tc.id); got != tc.want {
			t.Fatalf("Token(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
