package alarm

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultLabel is shown when an alarm has no label of its own.
const DefaultLabel = "Alarm"

// ID identifies an alarm definition in storage.
type ID int64

// String returns the decimal form of the identifier.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Alarm is the alarm currently presented to the user.
type Alarm struct {
	// ID is the storage identifier of the alarm.
	ID ID
	// Label is the user supplied display text.
	Label string
}

// LabelOrDefault returns the label or DefaultLabel when it is empty.
func (a Alarm) LabelOrDefault() string {
	if a.Label == "" {
		return DefaultLabel
	}

	return a.Label
}

// SnoozedLabel returns the notification title used while the alarm is snoozed.
func (a Alarm) SnoozedLabel() string {
	return fmt.Sprintf("%s (snoozed)", a.LabelOrDefault())
}

// Snooze describes a pending re-fire of an alarm.
type Snooze struct {
	// AlarmID is the alarm that will fire again.
	AlarmID ID
	// Label is the notification title.
	Label string
	// FireTime is when the alarm fires again.
	FireTime time.Time
}
