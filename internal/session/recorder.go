package session

import (
	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Recorder receives session counters.
type Recorder interface {
	SessionStarted()
	SessionEnded(state alarm.State, cause Cause)
	AutoDismissTriggered()
	ChallengeSubmitted(result challenge.SubmitResult)
	CollaboratorFailed(operation string)
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted()                           {}
func (nopRecorder) SessionEnded(alarm.State, Cause)           {}
func (nopRecorder) AutoDismissTriggered()                     {}
func (nopRecorder) ChallengeSubmitted(challenge.SubmitResult) {}
func (nopRecorder) CollaboratorFailed(string)                 {}
