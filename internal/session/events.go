package session

import (
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/motion"
)

// Event is a trigger applied to a session by its event loop.
type Event interface {
	event()
}

type (
	// SnoozePressed is the snooze button.
	SnoozePressed struct{}
	// SnoozeLongPressed is a long press on the snooze button.
	SnoozeLongPressed struct{}
	// DismissPressed is the dismiss button.
	DismissPressed struct{}
	// BackPressed is the back or cancel input.
	BackPressed struct{}

	// Killed reports that the alert playback for AlarmID stopped on its own.
	Killed struct {
		AlarmID alarm.ID
	}
	// ForeignSnooze is a snooze broadcast by another actor.
	ForeignSnooze struct {
		AlarmID alarm.ID
	}
	// ForeignDismiss is a dismiss broadcast by another actor.
	ForeignDismiss struct {
		AlarmID alarm.ID
	}

	// KeyPressed is a hardware key transition.
	KeyPressed struct {
		Code alarm.KeyCode
		Up   bool
	}

	// OrientationChanged carries an already fused orientation.
	OrientationChanged struct {
		Orientation motion.Orientation
	}
	// SensorReading carries a raw accelerometer or magnetometer reading.
	SensorReading struct {
		Source motion.Source
		Values motion.Vector
	}

	// Refreshed replaces the presented alarm while the session is active.
	Refreshed struct {
		Alarm alarm.Alarm
	}
	// AlarmRemoved reports that the alarm definition no longer exists.
	AlarmRemoved struct {
		AlarmID alarm.ID
	}

	// ChallengeDigit is a keypad digit.
	ChallengeDigit struct {
		Digit int
	}
	// ChallengeBackspace removes the last typed digit.
	ChallengeBackspace struct{}
	// ChallengeReset clears the typed answer.
	ChallengeReset struct{}
	// ChallengeSubmit checks the typed answer.
	ChallengeSubmit struct{}

	// barrier is closed by Run once every event queued before it was applied.
	barrier struct {
		applied chan struct{}
	}
)

func (SnoozePressed) event()      {}
func (SnoozeLongPressed) event()  {}
func (DismissPressed) event()     {}
func (BackPressed) event()        {}
func (Killed) event()             {}
func (ForeignSnooze) event()      {}
func (ForeignDismiss) event()     {}
func (KeyPressed) event()         {}
func (OrientationChanged) event() {}
func (SensorReading) event()      {}
func (Refreshed) event()          {}
func (AlarmRemoved) event()       {}
func (ChallengeDigit) event()     {}
func (ChallengeBackspace) event() {}
func (ChallengeReset) event()     {}
func (ChallengeSubmit) event()    {}
func (barrier) event()            {}
