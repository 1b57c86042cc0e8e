package session

import (
	"time"

	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Snapshot is a read-only view of a session for presentation.
type Snapshot struct {
	Alarm          alarm.Alarm
	State          alarm.State
	SnoozeEnabled  bool
	SnoozeFireTime time.Time
	// Challenge is nil until a dismissal opens the gate.
	Challenge *ChallengeView
}

// ChallengeView is what the keypad screen shows. The answer is never exposed.
type ChallengeView struct {
	Question    string
	Input       string
	Display     string
	SubmitLabel string
	Outcome     challenge.Outcome
}

// Snapshot returns the state as of the last applied event.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if snap.Challenge != nil {
		view := *snap.Challenge
		snap.Challenge = &view
	}

	return snap
}

// State returns the lifecycle state as of the last applied event.
func (s *Session) State() alarm.State {
	return s.Snapshot().State
}

// publish copies the machine into the shared snapshot.
func (s *Session) publish() {
	snap := s.machine.snapshot()

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func (m *machine) snapshot() Snapshot {
	snap := Snapshot{
		Alarm:          m.alarm,
		State:          m.state,
		SnoozeEnabled:  m.snoozeEnabled,
		SnoozeFireTime: m.snoozeFireTime,
	}

	if m.gate != nil {
		snap.Challenge = &ChallengeView{
			Question:    m.gate.Question().Text,
			Input:       m.gate.Input(),
			Display:     m.gate.Display(),
			SubmitLabel: m.gate.SubmitLabel(),
			Outcome:     m.gate.Outcome(),
		}
	}

	return snap
}
