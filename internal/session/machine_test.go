package session

import (
	"math"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/motion"
)

var testNow = time.Date(2026, 10, 17, 6, 30, 0, 0, time.UTC)

func newTestMachine(settings Settings) *machine {
	generator := challenge.NewGenerator(rand.New(rand.NewPCG(1, 2)))

	return newMachine(alarm.Alarm{ID: 7, Label: "Work"}, settings, generator)
}

func effectsOf(r Result) []Effect {
	return r.Effects
}

// TestMachine_SnoozeScenario covers the fire time, effects and idempotency of snooze.
func TestMachine_SnoozeScenario(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{SnoozeMinutes: 10})

	result := m.apply(SnoozePressed{}, testNow)
	require.True(t, result.Ended)
	require.Equal(t, CauseUser, result.Cause)
	require.Equal(t, alarm.StateSnoozed, m.state)
	require.Equal(t, testNow.Add(600*time.Second), m.snoozeFireTime)

	snooze := alarm.Snooze{AlarmID: 7, Label: "Work (snoozed)", FireTime: testNow.Add(10 * time.Minute)}
	require.Equal(t, []Effect{
		PersistSnooze{Snooze: snooze},
		ShowSnoozeNotification{Snooze: snooze},
		StopPlayback{AlarmID: 7},
	}, effectsOf(result))

	second := m.apply(SnoozePressed{}, testNow.Add(time.Second))
	require.Empty(t, second.Effects)
	require.False(t, second.Ended)
	require.Equal(t, testNow.Add(10*time.Minute), m.snoozeFireTime)
}

// TestMachine_DismissEffects checks killed and user dismissals issue the right side effects.
func TestMachine_DismissEffects(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})
	result := m.apply(DismissPressed{}, testNow)
	require.Equal(t, alarm.StateDismissed, m.state)
	require.Equal(t, []Effect{CancelNotification{AlarmID: 7}, StopPlayback{AlarmID: 7}}, result.Effects)

	m = newTestMachine(Settings{})
	result = m.apply(Killed{AlarmID: 7}, testNow)
	require.True(t, result.Ended)
	require.Equal(t, CauseKilled, result.Cause)
	require.Equal(t, alarm.StateKilled, m.state)
	require.Empty(t, result.Effects)
}

// TestMachine_TerminalStatesAreFinal ensures nothing leaves a terminal state.
func TestMachine_TerminalStatesAreFinal(t *testing.T) {
	t.Parallel()

	events := []Event{
		SnoozePressed{}, DismissPressed{}, Killed{AlarmID: 7}, ForeignSnooze{AlarmID: 7},
		ForeignDismiss{AlarmID: 7}, KeyPressed{Code: alarm.KeyVolumeUp, Up: true},
		Refreshed{Alarm: alarm.Alarm{ID: 9}}, ChallengeSubmit{},
	}

	for _, first := range events[:5] {
		m := newTestMachine(Settings{VolumeKeyPolicy: alarm.VolumeKeyDismiss})
		require.True(t, m.apply(first, testNow).Ended)

		final := m.state
		for _, ev := range events {
			r := m.apply(ev, testNow)
			require.False(t, r.Ended)
			require.Empty(t, r.Effects)
		}

		require.Equal(t, final, m.state)
		require.Equal(t, alarm.ID(7), m.alarm.ID)
	}
}

// TestMachine_ForeignSignalsMatchID verifies that signals for other alarms are ignored.
func TestMachine_ForeignSignalsMatchID(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})
	for _, ev := range []Event{ForeignDismiss{AlarmID: 5}, ForeignSnooze{AlarmID: 5}, Killed{AlarmID: 5}} {
		r := m.apply(ev, testNow)
		require.Empty(t, r.Effects)
		require.False(t, r.Ended)
	}

	require.Equal(t, alarm.StateActive, m.state)

	r := m.apply(ForeignDismiss{AlarmID: 7}, testNow)
	require.Equal(t, CauseBroadcast, r.Cause)
	require.Equal(t, alarm.StateDismissed, m.state)

	m = newTestMachine(Settings{SnoozeMinutes: 5})
	r = m.apply(ForeignSnooze{AlarmID: 7}, testNow)
	require.Equal(t, CauseBroadcast, r.Cause)
	require.Equal(t, alarm.StateSnoozed, m.state)
	require.Equal(t, testNow.Add(5*time.Minute), m.snoozeFireTime)
}

// TestMachine_KeyPolicy dispatches key-ups per policy and ignores key-downs.
func TestMachine_KeyPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		policy alarm.VolumeKeyPolicy
		want   alarm.State
	}{
		{policy: alarm.VolumeKeyDisabled, want: alarm.StateActive},
		{policy: alarm.VolumeKeySnooze, want: alarm.StateSnoozed},
		{policy: alarm.VolumeKeyDismiss, want: alarm.StateDismissed},
	}

	for _, tc := range cases {
		for _, code := range []alarm.KeyCode{alarm.KeyVolumeUp, alarm.KeyVolumeDown, alarm.KeyCamera, alarm.KeyFocus} {
			m := newTestMachine(Settings{VolumeKeyPolicy: tc.policy})

			m.apply(KeyPressed{Code: code, Up: false}, testNow)
			require.Equal(t, alarm.StateActive, m.state)

			r := m.apply(KeyPressed{Code: code, Up: true}, testNow)
			require.Equal(t, tc.want, m.state, tc.policy.String())

			if tc.want != alarm.StateActive {
				require.Equal(t, CauseVolumeKey, r.Cause)
			}
		}

		m := newTestMachine(Settings{VolumeKeyPolicy: tc.policy})
		m.apply(KeyPressed{Code: alarm.KeyUnknown, Up: true}, testNow)
		require.Equal(t, alarm.StateActive, m.state)
	}
}

// TestMachine_RefreshAndBack keeps the lifecycle while updating content.
func TestMachine_RefreshAndBack(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})
	m.apply(Refreshed{Alarm: alarm.Alarm{ID: 11, Label: "Second"}}, testNow)
	require.Equal(t, alarm.Alarm{ID: 11, Label: "Second"}, m.alarm)
	require.Equal(t, alarm.StateActive, m.state)

	r := m.apply(BackPressed{}, testNow)
	require.Empty(t, r.Effects)
	require.Equal(t, alarm.StateActive, m.state)

	// Signals now target the refreshed alarm.
	m.apply(ForeignDismiss{AlarmID: 7}, testNow)
	require.Equal(t, alarm.StateActive, m.state)
	m.apply(ForeignDismiss{AlarmID: 11}, testNow)
	require.Equal(t, alarm.StateDismissed, m.state)
}

// TestMachine_AlarmRemovedDisablesSnooze verifies snooze becomes a no-op while dismiss still works.
func TestMachine_AlarmRemovedDisablesSnooze(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{VolumeKeyPolicy: alarm.VolumeKeySnooze})

	m.apply(AlarmRemoved{AlarmID: 3}, testNow)
	require.True(t, m.snoozeEnabled)

	m.apply(AlarmRemoved{AlarmID: 7}, testNow)
	require.False(t, m.snoozeEnabled)
	require.Equal(t, alarm.StateActive, m.state)

	require.Empty(t, m.apply(SnoozePressed{}, testNow).Effects)
	require.Empty(t, m.apply(ForeignSnooze{AlarmID: 7}, testNow).Effects)
	require.Empty(t, m.apply(KeyPressed{Code: alarm.KeyCamera, Up: true}, testNow).Effects)
	require.Equal(t, alarm.StateActive, m.state)

	m.apply(DismissPressed{}, testNow)
	require.Equal(t, alarm.StateDismissed, m.state)
}

// TestMachine_DualModeButton maps a long press to dismiss only when enabled.
func TestMachine_DualModeButton(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})
	m.apply(SnoozeLongPressed{}, testNow)
	require.Equal(t, alarm.StateActive, m.state)

	m = newTestMachine(Settings{DualModeButton: true})
	m.apply(SnoozeLongPressed{}, testNow)
	require.Equal(t, alarm.StateDismissed, m.state)
}

// windowOf returns eight orientations whose tilt deltas sum to 8*average.
func windowOf(average int) []motion.Orientation {
	out := make([]motion.Orientation, motion.WindowSize)
	out[motion.WindowSize-1] = motion.Orientation{Azimuth: float64(average*motion.WindowSize) * math.Pi / 180}

	return out
}

// TestMachine_MotionAutoDismiss replays window averages 10, 10, 60.
func TestMachine_MotionAutoDismiss(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})

	for _, avg := range []int{10, 10} {
		for _, o := range windowOf(avg) {
			require.False(t, m.apply(OrientationChanged{Orientation: o}, testNow).Ended)
		}
	}

	window := windowOf(20)
	for _, o := range window[:len(window)-1] {
		require.False(t, m.apply(OrientationChanged{Orientation: o}, testNow).Ended)
	}

	// Average 20 is within the threshold of 10.
	require.False(t, m.apply(OrientationChanged{Orientation: window[len(window)-1]}, testNow).Ended)

	var last Result
	for _, o := range windowOf(65) {
		last = m.apply(OrientationChanged{Orientation: o}, testNow)
	}

	require.True(t, last.AutoDismissed)
	require.True(t, last.Ended)
	require.Equal(t, CauseMotion, last.Cause)
	require.Equal(t, alarm.StateDismissed, m.state)
	require.Equal(t, []Effect{CancelNotification{AlarmID: 7}, StopPlayback{AlarmID: 7}}, last.Effects)
}

// TestMachine_SensorReadingsNeedBothSources keeps auto-dismiss inert without a magnetometer.
func TestMachine_SensorReadingsNeedBothSources(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{})

	for i := 0; i < 10*motion.WindowSize; i++ {
		gravity := motion.Vector{0, 0, 9.81}
		if i%2 == 1 {
			gravity = motion.Vector{0, 0, -9.81}
		}

		r := m.apply(SensorReading{Source: motion.SourceAccelerometer, Values: gravity}, testNow)
		require.False(t, r.Ended)
	}

	require.Equal(t, 0, m.detector.PreviousAverage())
	require.Empty(t, m.detector.Window())
}

// TestMachine_ChallengeGatesUserDismiss opens the gate and dismisses on the right answer.
func TestMachine_ChallengeGatesUserDismiss(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{RequireChallenge: true, VolumeKeyPolicy: alarm.VolumeKeyDismiss})

	// Input before the gate exists is ignored.
	require.Equal(t, challenge.SubmitIgnored, m.apply(ChallengeSubmit{}, testNow).Submit)
	m.apply(ChallengeDigit{Digit: 1}, testNow)

	r := m.apply(DismissPressed{}, testNow)
	require.True(t, r.ChallengeOpened)
	require.False(t, r.Ended)
	require.Empty(t, r.Effects)
	require.Equal(t, alarm.StateActive, m.state)
	require.Empty(t, m.gate.Input())

	// A second dismissal keeps the same gate.
	q := m.gate.Question()
	require.False(t, m.apply(KeyPressed{Code: alarm.KeyVolumeDown, Up: true}, testNow).ChallengeOpened)
	require.Equal(t, q, m.gate.Question())

	for _, r := range strconv.Itoa(q.Answer + 1) {
		m.apply(ChallengeDigit{Digit: int(r - '0')}, testNow)
	}

	wrong := m.apply(ChallengeSubmit{}, testNow)
	require.Equal(t, challenge.SubmitWrong, wrong.Submit)
	require.Equal(t, alarm.StateActive, m.state)
	require.Empty(t, m.gate.Input())

	m.apply(ChallengeDigit{Digit: 9}, testNow)
	m.apply(ChallengeBackspace{}, testNow)
	m.apply(ChallengeDigit{Digit: 9}, testNow)
	m.apply(ChallengeReset{}, testNow)
	require.Empty(t, m.gate.Input())

	for _, r := range strconv.Itoa(m.gate.Question().Answer) {
		m.apply(ChallengeDigit{Digit: int(r - '0')}, testNow)
	}

	right := m.apply(ChallengeSubmit{}, testNow)
	require.Equal(t, challenge.SubmitCorrect, right.Submit)
	require.True(t, right.Ended)
	require.Equal(t, CauseChallenge, right.Cause)
	require.Equal(t, alarm.StateDismissed, m.state)
	require.Equal(t, []Effect{CancelNotification{AlarmID: 7}, StopPlayback{AlarmID: 7}}, right.Effects)
}

// TestMachine_ChallengeDoesNotGateExternalSignals lets broadcasts and kills bypass the gate.
func TestMachine_ChallengeDoesNotGateExternalSignals(t *testing.T) {
	t.Parallel()

	m := newTestMachine(Settings{RequireChallenge: true})
	m.apply(ForeignDismiss{AlarmID: 7}, testNow)
	require.Equal(t, alarm.StateDismissed, m.state)

	m = newTestMachine(Settings{RequireChallenge: true})
	m.apply(DismissPressed{}, testNow)
	m.apply(Killed{AlarmID: 7}, testNow)
	require.Equal(t, alarm.StateKilled, m.state)

	m = newTestMachine(Settings{RequireChallenge: true})
	m.apply(DismissPressed{}, testNow)
	m.apply(SnoozePressed{}, testNow)
	require.Equal(t, alarm.StateSnoozed, m.state)
}

// TestSettings_SnoozeDuration falls back to the default for invalid values.
func TestSettings_SnoozeDuration(t *testing.T) {
	t.Parallel()

	require.Equal(t, 10*time.Minute, Settings{}.SnoozeDuration())
	require.Equal(t, time.Minute, Settings{SnoozeMinutes: 1}.SnoozeDuration())
	require.Equal(t, 25*time.Minute, Settings{SnoozeMinutes: 25}.SnoozeDuration())
}
