package session

import (
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Effect is a side effect requested by a transition.
type Effect interface {
	effect()
}

type (
	// PersistSnooze stores the re-fire time of the alarm.
	PersistSnooze struct {
		Snooze alarm.Snooze
	}
	// ShowSnoozeNotification replaces the ongoing notification with the snoozed one.
	ShowSnoozeNotification struct {
		Snooze alarm.Snooze
	}
	// StopPlayback stops the alert sound and vibration.
	StopPlayback struct {
		AlarmID alarm.ID
	}
	// CancelNotification removes the alarm notification.
	CancelNotification struct {
		AlarmID alarm.ID
	}
)

func (PersistSnooze) effect()          {}
func (ShowSnoozeNotification) effect() {}
func (StopPlayback) effect()           {}
func (CancelNotification) effect()     {}

// Cause explains what ended a session.
type Cause string

const (
	// CauseUser is a button press.
	CauseUser Cause = "user"
	// CauseVolumeKey is a volume or camera key.
	CauseVolumeKey Cause = "volume_key"
	// CauseMotion is the pick-up gesture.
	CauseMotion Cause = "motion"
	// CauseChallenge is a correctly solved challenge.
	CauseChallenge Cause = "challenge"
	// CauseBroadcast is a snooze or dismiss signal from another actor.
	CauseBroadcast Cause = "broadcast"
	// CauseKilled is the alert playback stopping on its own.
	CauseKilled Cause = "killed"
	// CauseAbandoned is a shutdown while the session was still active.
	CauseAbandoned Cause = "abandoned"
)
