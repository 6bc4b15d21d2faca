package reminder

import (
	"fmt"
	"strings"
)

// Kind identifies one of the lifecycle notification types, plus the
// proactive type fired by the sweep.
type Kind string

const (
	KindConfirmation Kind = "CONFIRMATION"
	KindPreVisit     Kind = "PRE_VISIT"
	KindDayOf        Kind = "DAY_OF"
	KindFollowUp     Kind = "FOLLOW_UP"
	KindProactive    Kind = "PROACTIVE"
)

// LifecycleKinds are the kinds armed per appointment by the engine, in the
// order they are evaluated. KindProactive is owned by the sweep and is never
// armed as a timer.
func LifecycleKinds() []Kind {
	return []Kind{KindConfirmation, KindPreVisit, KindDayOf, KindFollowUp}
}

// Channel is a delivery channel. The set is closed; dispatch switches over
// it exhaustively instead of matching provider strings.
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelChat  Channel = "CHAT"
	ChannelEmail Channel = "EMAIL"
)

// ParseChannel accepts the channel name in any case, with surrounding
// whitespace, as it arrives from env configuration.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ChannelSMS, ChannelChat, ChannelEmail:
		return c, nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// State tracks a (appointment, kind) pair through the engine.
type State int

const (
	StatePending State = iota
	StateArmed
	StateFired
	StateSkipped
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateArmed:
		return "ARMED"
	case StateFired:
		return "FIRED"
	case StateSkipped:
		return "SKIPPED"
	case StateCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}
