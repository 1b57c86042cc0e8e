package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/logger"
	"github.com/oshokin/alarm-alert/internal/motion"
)

// Playback controls the alert sound and vibration.
type Playback interface {
	StopAlertPlayback(ctx context.Context, id alarm.ID) error
}

// Notifier renders the alarm notification.
type Notifier interface {
	CancelNotification(ctx context.Context, id alarm.ID) error
	UpdateSnoozeNotification(ctx context.Context, snooze alarm.Snooze) error
}

// Store is the alarm storage the session needs.
type Store interface {
	SaveSnoozeTime(ctx context.Context, id alarm.ID, fireTime time.Time) error
	AlarmExists(ctx context.Context, id alarm.ID) (bool, error)
}

// Dependencies groups the collaborators of a session.
type Dependencies struct {
	Playback Playback
	Notifier Notifier
	Store    Store
}

// DefaultQueueSize is the event buffer of a session.
const DefaultQueueSize = 64

// Session owns one firing alarm until it is snoozed, dismissed or killed.
// Every trigger is queued and applied by Run, one at a time.
type Session struct {
	deps      Dependencies
	recorder  Recorder
	now       func() time.Time
	generator *challenge.Generator

	events chan Event
	done   chan struct{}

	// machine is only touched by the Run goroutine.
	machine *machine

	mu       sync.RWMutex
	snapshot Snapshot

	teardownOnce sync.Once
	teardownMu   sync.Mutex
	teardowns    []func()
}

// Option configures a session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithGenerator sets the challenge question generator.
func WithGenerator(g *challenge.Generator) Option {
	return func(s *Session) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithQueueSize sets the event buffer length.
func WithQueueSize(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.events = make(chan Event, size)
		}
	}
}

// New creates an active session for a. Call Run to start processing events.
func New(a alarm.Alarm, settings Settings, deps Dependencies, opts ...Option) *Session {
	s := &Session{
		deps:     deps,
		recorder: nopRecorder{},
		now:      time.Now,
		events:   make(chan Event, DefaultQueueSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil {
		s.generator = challenge.NewGenerator(nil)
	}

	s.machine = newMachine(a, settings, s.generator)
	s.snapshot = s.machine.snapshot()

	return s
}

// Run applies queued events until the session ends or ctx is canceled and
// returns the final state. Teardown always runs before Run returns.
func (s *Session) Run(ctx context.Context) alarm.State {
	defer s.teardown()

	ctx = logger.WithName(ctx, "session")
	s.recorder.SessionStarted()

	logger.InfoKV(ctx, "Alert session started", "alarm_id", s.machine.alarm.ID, "label", s.machine.alarm.LabelOrDefault())

	for {
		select {
		case <-ctx.Done():
			logger.InfoKV(ctx, "Alert session abandoned", "alarm_id", s.machine.alarm.ID)
			s.recorder.SessionEnded(s.machine.state, CauseAbandoned)

			return s.machine.state
		case ev := <-s.events:
			if b, ok := ev.(barrier); ok {
				close(b.applied)

				continue
			}

			if s.handle(ctx, ev) {
				return s.machine.state
			}
		}
	}
}

// handle applies one event and runs its effects. It reports whether the session ended.
func (s *Session) handle(ctx context.Context, ev Event) bool {
	result := s.machine.apply(ev, s.now())

	if result.AutoDismissed {
		s.recorder.AutoDismissTriggered()
		logger.InfoKV(ctx, "Pick-up gesture detected", "alarm_id", s.machine.alarm.ID)
	}

	if result.ChallengeOpened {
		logger.InfoKV(ctx, "Dismiss challenge opened", "alarm_id", s.machine.alarm.ID)
	}

	if _, ok := ev.(ChallengeSubmit); ok && result.Submit != challenge.SubmitIgnored {
		s.recorder.ChallengeSubmitted(result.Submit)
		logger.DebugKV(ctx, "Challenge answer submitted", "alarm_id", s.machine.alarm.ID, "result", result.Submit)
	}

	for _, effect := range result.Effects {
		s.execute(ctx, effect)
	}

	s.publish()

	if !result.Ended {
		return false
	}

	s.recorder.SessionEnded(s.machine.state, result.Cause)
	s.logEnd(ctx, result)

	return true
}

func (s *Session) logEnd(ctx context.Context, result Result) {
	kvs := []any{"alarm_id", s.machine.alarm.ID, "state", s.machine.state, "cause", result.Cause}

	switch s.machine.state {
	case alarm.StateSnoozed:
		minutes := int(s.machine.settings.SnoozeDuration() / time.Minute)
		kvs = append(kvs, "fire_time", s.machine.snoozeFireTime.Format(time.RFC3339))

		logger.InfoKV(ctx, "Alarm set for "+pluralMinutes(minutes)+" from now.", kvs...)
	case alarm.StateKilled:
		logger.InfoKV(ctx, "Alarm killed", kvs...)
	default:
		logger.InfoKV(ctx, "Alarm dismissed", kvs...)
	}
}

// execute runs one effect. Collaborator failures are logged and absorbed.
func (s *Session) execute(ctx context.Context, effect Effect) {
	var (
		operation string
		err       error
	)

	switch e := effect.(type) {
	case PersistSnooze:
		operation = "persist_snooze"
		if s.deps.Store != nil {
			err = s.deps.Store.SaveSnoozeTime(ctx, e.Snooze.AlarmID, e.Snooze.FireTime)
		}
	case ShowSnoozeNotification:
		operation = "snooze_notification"
		if s.deps.Notifier != nil {
			err = s.deps.Notifier.UpdateSnoozeNotification(ctx, e.Snooze)
		}
	case CancelNotification:
		operation = "cancel_notification"
		if s.deps.Notifier != nil {
			err = s.deps.Notifier.CancelNotification(ctx, e.AlarmID)
		}
	case StopPlayback:
		operation = "stop_playback"
		if s.deps.Playback != nil {
			err = s.deps.Playback.StopAlertPlayback(ctx, e.AlarmID)
		}
	}

	if err != nil {
		s.recorder.CollaboratorFailed(operation)
		logger.ErrorKV(ctx, "Alert side effect failed", "operation", operation, "error", err)
	}
}

// Submit queues ev. It returns false once the session has ended or ctx is done.
func (s *Session) Submit(ctx context.Context, ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// TrySubmit queues ev without waiting. It returns false when the queue is
// full or the session has ended.
func (s *Session) TrySubmit(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Flush waits until every event queued before the call has been applied,
// the session has ended or ctx is done.
func (s *Session) Flush(ctx context.Context) {
	b := barrier{applied: make(chan struct{})}
	if !s.Submit(ctx, b) {
		return
	}

	select {
	case <-b.applied:
	case <-s.done:
	case <-ctx.Done():
	}
}

// Snooze presses the snooze button.
func (s *Session) Snooze(ctx context.Context) bool {
	return s.Submit(ctx, SnoozePressed{})
}

// SnoozeLongPress long-presses the snooze button.
func (s *Session) SnoozeLongPress(ctx context.Context) bool {
	return s.Submit(ctx, SnoozeLongPressed{})
}

// Dismiss presses the dismiss button.
func (s *Session) Dismiss(ctx context.Context) bool {
	return s.Submit(ctx, DismissPressed{})
}

// Kill reports that the alert playback for id died on its own.
func (s *Session) Kill(ctx context.Context, id alarm.ID) bool {
	return s.Submit(ctx, Killed{AlarmID: id})
}

// ForeignSnooze delivers a snooze broadcast for id.
func (s *Session) ForeignSnooze(ctx context.Context, id alarm.ID) bool {
	return s.Submit(ctx, ForeignSnooze{AlarmID: id})
}

// ForeignDismiss delivers a dismiss broadcast for id.
func (s *Session) ForeignDismiss(ctx context.Context, id alarm.ID) bool {
	return s.Submit(ctx, ForeignDismiss{AlarmID: id})
}

// KeyEvent delivers a hardware key and reports whether it was consumed.
// Alert keys are always consumed; only key-ups reach the event loop.
func (s *Session) KeyEvent(ctx context.Context, code alarm.KeyCode, up bool) bool {
	if !code.IsAlertKey() {
		return false
	}

	if up {
		s.Submit(ctx, KeyPressed{Code: code, Up: true})
	}

	return true
}

// Back swallows the back input.
func (s *Session) Back(context.Context) bool {
	return true
}

// Orientation delivers a fused orientation sample.
func (s *Session) Orientation(ctx context.Context, o motion.Orientation) bool {
	return s.Submit(ctx, OrientationChanged{Orientation: o})
}

// SensorReading delivers a raw accelerometer or magnetometer reading.
// Readings are dropped while the queue is full.
func (s *Session) SensorReading(source motion.Source, values motion.Vector) bool {
	return s.TrySubmit(SensorReading{Source: source, Values: values})
}

// Refresh presents a newly fired alarm in this session.
func (s *Session) Refresh(ctx context.Context, a alarm.Alarm) bool {
	return s.Submit(ctx, Refreshed{Alarm: a})
}

// Resume checks that the alarm still exists and disables snooze when it does not.
func (s *Session) Resume(ctx context.Context) {
	if s.deps.Store == nil {
		return
	}

	id := s.Snapshot().Alarm.ID

	exists, err := s.deps.Store.AlarmExists(ctx, id)
	if err != nil {
		s.recorder.CollaboratorFailed("lookup_alarm")
		logger.ErrorKV(ctx, "Alarm lookup failed", "alarm_id", id, "error", err)

		return
	}

	if !exists {
		logger.WarnKV(ctx, "Alarm no longer exists, snooze disabled", "alarm_id", id)
		s.Submit(ctx, AlarmRemoved{AlarmID: id})
	}
}

// ChallengeDigit types a keypad digit.
func (s *Session) ChallengeDigit(ctx context.Context, d int) bool {
	return s.Submit(ctx, ChallengeDigit{Digit: d})
}

// ChallengeBackspace removes the last typed digit.
func (s *Session) ChallengeBackspace(ctx context.Context) bool {
	return s.Submit(ctx, ChallengeBackspace{})
}

// ChallengeReset clears the typed answer.
func (s *Session) ChallengeReset(ctx context.Context) bool {
	return s.Submit(ctx, ChallengeReset{})
}

// ChallengeSubmit checks the typed answer.
func (s *Session) ChallengeSubmit(ctx context.Context) bool {
	return s.Submit(ctx, ChallengeSubmit{})
}

// OnTeardown registers fn to run once when the session ends.
// Functions run in reverse registration order.
func (s *Session) OnTeardown(fn func()) {
	s.teardownMu.Lock()
	defer s.teardownMu.Unlock()

	s.teardowns = append(s.teardowns, fn)
}

// Done is closed after teardown.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// teardown runs the registered functions exactly once.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.teardownMu.Lock()
		fns := s.teardowns
		s.teardowns = nil
		s.teardownMu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}

		close(s.done)
	})
}

func pluralMinutes(n int) string {
	if n == 1 {
		return "1 minute"
	}

	return strconv.Itoa(n) + " minutes"
}
