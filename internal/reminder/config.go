package reminder

import "time"

// Defaults applied by DefaultConfig and by normalized() for fields left empty.
const (
	DefaultConfirmationDelay = 5 * time.Minute
	DefaultPreVisitLead      = 24 * time.Hour
	DefaultDayOfLead         = 2 * time.Hour
	DefaultFollowUpDelay     = 1 * time.Hour
	DefaultCooldownDays      = 3
	DefaultLookaheadDays     = 7
)

// Timing holds the offsets that anchor each lifecycle kind to the
// appointment time (confirmation is anchored to booking time instead).
type Timing struct {
	ConfirmationDelay time.Duration
	PreVisitLead      time.Duration
	DayOfLead         time.Duration
	FollowUpDelay     time.Duration
}

// Config controls which channels reminders go out on, when each kind fires,
// and the message template per kind. Callers start from DefaultConfig and
// override individual fields; anything left zero falls back to the default
// when the engine or sweeper normalizes the config.
type Config struct {
	Channels []Channel
	Timing   Timing
	Messages map[Kind]string

	// CooldownDays is the minimum number of days since the last reminder of
	// any kind before the sweep re-notifies an appointment. Zero disables
	// the cooldown; negative values are clamped to zero.
	CooldownDays int

	// LookaheadDays bounds how far ahead the sweep looks for upcoming
	// appointments.
	LookaheadDays int
}

func DefaultConfig() Config {
	return Config{
		Channels:      []Channel{ChannelSMS, ChannelChat},
		Timing:        Timing{DefaultConfirmationDelay, DefaultPreVisitLead, DefaultDayOfLead, DefaultFollowUpDelay},
		Messages:      defaultMessages(),
		CooldownDays:  DefaultCooldownDays,
		LookaheadDays: DefaultLookaheadDays,
	}
}

func defaultMessages() map[Kind]string {
	return map[Kind]string{
		KindConfirmation: "Hi {patientName}, your appointment with {doctor} on {date} at {time} is confirmed. Ref {token}.",
		KindPreVisit:     "Hi {patientName}, reminder: your appointment with {doctor} is tomorrow, {date} at {time}. Ref {token}.",
		KindDayOf:        "Hi {patientName}, your appointment with {doctor} is in {hours} hours, today at {time}.",
		KindFollowUp:     "Hi {patientName}, thank you for visiting {doctor} today. Reply to this message if you have any questions.",
		KindProactive:    "Hi {patientName}, you have an upcoming appointment with {doctor} in {days} day(s), on {date} at {time}. Ref {token}.",
	}
}

// normalized fills anything left empty so the engine and sweeper never see a
// half-built config.
func (c Config) normalized() Config {
	if len(c.Channels) == 0 {
		c.Channels = []Channel{ChannelSMS, ChannelChat}
	}
	if c.Timing.ConfirmationDelay <= 0 {
		c.Timing.ConfirmationDelay = DefaultConfirmationDelay
	}
	if c.Timing.PreVisitLead <= 0 {
		c.Timing.PreVisitLead = DefaultPreVisitLead
	}
	if c.Timing.DayOfLead <= 0 {
		c.Timing.DayOfLead = DefaultDayOfLead
	}
	if c.Timing.FollowUpDelay <= 0 {
		c.Timing.FollowUpDelay = DefaultFollowUpDelay
	}
	defaults := defaultMessages()
	if c.Messages == nil {
		c.Messages = defaults
	} else {
		merged := make(map[Kind]string, len(defaults))
		for kind, tmpl := range defaults {
			merged[kind] = tmpl
		}
		for kind, tmpl := range c.Messages {
			if tmpl != "" {
				merged[kind] = tmpl
			}
		}
		c.Messages = merged
	}
	if c.CooldownDays < 0 {
		c.CooldownDays = 0
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = DefaultLookaheadDays
	}
	return c
}
