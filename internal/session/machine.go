package session

import (
	"time"

	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/motion"
)

// Settings is captured once when a session starts and never re-read.
type Settings struct {
	// VolumeKeyPolicy decides what volume and camera key-ups do.
	VolumeKeyPolicy alarm.VolumeKeyPolicy
	// SnoozeMinutes is the snooze length, at least one minute.
	SnoozeMinutes int
	// DualModeButton makes a long press on snooze dismiss the alarm.
	DualModeButton bool
	// RequireChallenge routes user dismissals through the arithmetic gate.
	RequireChallenge bool
}

// DefaultSnoozeMinutes is used when settings carry a non-positive snooze length.
const DefaultSnoozeMinutes = 10

// SnoozeDuration returns the snooze length.
func (s Settings) SnoozeDuration() time.Duration {
	minutes := s.SnoozeMinutes
	if minutes < 1 {
		minutes = DefaultSnoozeMinutes
	}

	return time.Duration(minutes) * time.Minute
}

// Result is the outcome of applying one event.
type Result struct {
	// Effects are the side effects to run, in order.
	Effects []Effect
	// Ended is true when the event moved the session into a terminal state.
	Ended bool
	// Cause explains the terminal transition.
	Cause Cause
	// ChallengeOpened is true when a dismissal opened the challenge gate.
	ChallengeOpened bool
	// Submit is the challenge result for ChallengeSubmit events.
	Submit challenge.SubmitResult
	// AutoDismissed is true when the motion detector fired.
	AutoDismissed bool
}

// machine holds the session state. apply is its only mutator.
type machine struct {
	settings       Settings
	alarm          alarm.Alarm
	state          alarm.State
	snoozeEnabled  bool
	snoozeFireTime time.Time
	detector       *motion.Detector
	fusion         motion.Fusion
	generator      *challenge.Generator
	gate           *challenge.Gate
}

func newMachine(a alarm.Alarm, settings Settings, generator *challenge.Generator) *machine {
	return &machine{
		settings:      settings,
		alarm:         a,
		state:         alarm.StateActive,
		snoozeEnabled: true,
		detector:      motion.NewDetector(),
		generator:     generator,
	}
}

// apply runs one event against the state. Events after a terminal state are ignored.
//
//nolint:cyclop // One case per event kind reads better than a dispatch table.
func (m *machine) apply(ev Event, now time.Time) Result {
	if m.state.IsTerminal() {
		return Result{}
	}

	switch e := ev.(type) {
	case SnoozePressed:
		return m.snooze(now, CauseUser)
	case SnoozeLongPressed:
		if !m.settings.DualModeButton {
			return Result{}
		}

		return m.userDismiss(CauseUser)
	case DismissPressed:
		return m.userDismiss(CauseUser)
	case Killed:
		if e.AlarmID != m.alarm.ID {
			return Result{}
		}

		return m.dismiss(true, alarm.StateKilled, CauseKilled)
	case ForeignSnooze:
		if e.AlarmID != m.alarm.ID {
			return Result{}
		}

		return m.snooze(now, CauseBroadcast)
	case ForeignDismiss:
		if e.AlarmID != m.alarm.ID {
			return Result{}
		}

		return m.dismiss(false, alarm.StateDismissed, CauseBroadcast)
	case KeyPressed:
		return m.key(e, now)
	case OrientationChanged:
		return m.orientation(e.Orientation)
	case SensorReading:
		o, ok := m.fusion.Update(e.Source, e.Values)
		if !ok {
			return Result{}
		}

		return m.orientation(o)
	case Refreshed:
		m.alarm = e.Alarm
	case AlarmRemoved:
		if e.AlarmID == m.alarm.ID {
			m.snoozeEnabled = false
		}
	case ChallengeDigit:
		if m.gate != nil {
			m.gate.AppendDigit(e.Digit)
		}
	case ChallengeBackspace:
		if m.gate != nil {
			m.gate.Backspace()
		}
	case ChallengeReset:
		if m.gate != nil {
			m.gate.Reset()
		}
	case ChallengeSubmit:
		return m.submit()
	case BackPressed:
	}

	return Result{}
}

// snooze is a no-op once the backing alarm is gone.
func (m *machine) snooze(now time.Time, cause Cause) Result {
	if !m.snoozeEnabled {
		return Result{}
	}

	fireTime := now.Add(m.settings.SnoozeDuration())
	snooze := alarm.Snooze{
		AlarmID:  m.alarm.ID,
		Label:    m.alarm.SnoozedLabel(),
		FireTime: fireTime,
	}

	m.state = alarm.StateSnoozed
	m.snoozeFireTime = fireTime

	return Result{
		Effects: []Effect{
			PersistSnooze{Snooze: snooze},
			ShowSnoozeNotification{Snooze: snooze},
			StopPlayback{AlarmID: m.alarm.ID},
		},
		Ended: true,
		Cause: cause,
	}
}

// userDismiss dismisses directly or opens the challenge gate first.
func (m *machine) userDismiss(cause Cause) Result {
	if !m.settings.RequireChallenge {
		return m.dismiss(false, alarm.StateDismissed, cause)
	}

	if m.gate != nil {
		return Result{}
	}

	m.gate = challenge.NewGate(m.generator)

	return Result{ChallengeOpened: true}
}

func (m *machine) dismiss(killed bool, final alarm.State, cause Cause) Result {
	m.state = final

	result := Result{Ended: true, Cause: cause}
	if !killed {
		result.Effects = []Effect{
			CancelNotification{AlarmID: m.alarm.ID},
			StopPlayback{AlarmID: m.alarm.ID},
		}
	}

	return result
}

func (m *machine) key(e KeyPressed, now time.Time) Result {
	if !e.Code.IsAlertKey() || !e.Up {
		return Result{}
	}

	switch m.settings.VolumeKeyPolicy {
	case alarm.VolumeKeySnooze:
		return m.snooze(now, CauseVolumeKey)
	case alarm.VolumeKeyDismiss:
		return m.userDismiss(CauseVolumeKey)
	default:
		return Result{}
	}
}

func (m *machine) orientation(o motion.Orientation) Result {
	if !m.detector.Observe(o) {
		return Result{}
	}

	result := m.userDismiss(CauseMotion)
	result.AutoDismissed = true

	return result
}

func (m *machine) submit() Result {
	if m.gate == nil {
		return Result{}
	}

	res := m.gate.Submit()
	if res != challenge.SubmitCorrect {
		return Result{Submit: res}
	}

	result := m.dismiss(false, alarm.StateDismissed, CauseChallenge)
	result.Submit = res

	return result
}
