package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
	"github.com/oshokin/alarm-alert/internal/broadcast"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/logger"
	repo "github.com/oshokin/alarm-alert/internal/repository/alarms"
	"github.com/oshokin/alarm-alert/internal/session"
)

// service supervises alert sessions: a firing alarm starts a session, or
// refreshes the one still active, and every input is routed to the current one.
type service struct {
	// settings are captured by every new session.
	settings session.Settings
	// deps are the session collaborators.
	deps session.Dependencies
	// repo stores alarm definitions. Nil disables registration and lookups.
	repo repo.Repository
	// options are applied to every new session.
	options []session.Option

	// runCtx outlives RPC contexts; sessions run on it.
	runCtx context.Context //nolint:containedctx // Sessions must survive the RPC that fired them.
	// cancelRun ends runCtx.
	cancelRun context.CancelFunc
	// wg tracks running sessions.
	wg sync.WaitGroup

	// fireMu serializes Fire.
	fireMu sync.Mutex
	// mu protects current and sensorsAttached. Never held while waiting on a session.
	mu sync.Mutex
	// current is the latest session, possibly already ended.
	current *session.Session
	// sensorsAttached is true while sensor readings are routed to current.
	sensorsAttached bool
}

var _ api.Service = (*service)(nil)

// newService creates a supervisor whose sessions run until parent is canceled or stop is called.
func newService(
	parent context.Context,
	settings session.Settings,
	deps session.Dependencies,
	repository repo.Repository,
	options ...session.Option,
) *service {
	runCtx, cancel := context.WithCancel(parent)

	return &service{
		settings:  settings,
		deps:      deps,
		repo:      repository,
		options:   options,
		runCtx:    runCtx,
		cancelRun: cancel,
	}
}

// Fire presents a. An active session is refreshed in place, otherwise a new session starts.
func (s *service) Fire(ctx context.Context, a alarm.Alarm) (session.Snapshot, error) {
	a, err := s.register(ctx, a)
	if err != nil {
		return session.Snapshot{}, err
	}

	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	if cur := s.session(); cur != nil && cur.State() == alarm.StateActive {
		cur.Refresh(ctx, a)
		cur.Flush(ctx)

		// The session may have ended before the refresh was applied.
		snap := cur.Snapshot()
		if snap.State == alarm.StateActive && snap.Alarm.ID == a.ID {
			logger.InfoKV(ctx, "Active alert refreshed", "alarm_id", a.ID, "label", a.LabelOrDefault())

			return snap, nil
		}
	}

	sess := session.New(a, s.settings, s.deps, s.options...)
	sess.OnTeardown(func() { s.detachSensors(sess) })

	s.mu.Lock()
	s.current = sess
	s.sensorsAttached = true
	s.mu.Unlock()

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		sess.Run(logger.WithKV(s.runCtx, "alarm_id", a.ID))
	}()

	logger.InfoKV(ctx, "Alert fired", "alarm_id", a.ID, "label", a.LabelOrDefault())

	return sess.Snapshot(), nil
}

// register stores a new alarm definition or fills in the stored label.
func (s *service) register(ctx context.Context, a alarm.Alarm) (alarm.Alarm, error) {
	if s.repo == nil {
		return a, nil
	}

	stored, err := s.repo.Alarm(ctx, a.ID)

	switch {
	case errors.Is(err, repo.ErrNotFound):
		// First firing, keep the definition for later existence checks.
	case err != nil:
		return a, fmt.Errorf("load alarm: %w", err)
	case a.Label == "" || a.Label == stored.Label:
		return stored, nil
	}

	a, err = s.repo.CreateAlarm(ctx, a)
	if err != nil {
		return a, fmt.Errorf("store alarm: %w", err)
	}

	return a, nil
}

// detachSensors stops routing sensor readings to sess.
func (s *service) detachSensors(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == sess && s.sensorsAttached {
		s.sensorsAttached = false

		logger.Debug(s.runCtx, "Sensor listener released")
	}
}

// session returns the current session or nil.
func (s *service) session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// act applies input to the current session and returns the snapshot afterwards.
func (s *service) act(ctx context.Context, input func(*session.Session)) (session.Snapshot, error) {
	sess := s.session()
	if sess == nil {
		return session.Snapshot{}, api.ErrNoSession
	}

	input(sess)
	sess.Flush(ctx)

	return sess.Snapshot(), nil
}

// Snooze presses the snooze button.
func (s *service) Snooze(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.Snooze(ctx) })
}

// SnoozeLongPress long-presses the snooze button.
func (s *service) SnoozeLongPress(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.SnoozeLongPress(ctx) })
}

// Dismiss presses the dismiss button.
func (s *service) Dismiss(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.Dismiss(ctx) })
}

// Back presses back.
func (s *service) Back(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.Back(ctx) })
}

// Key delivers a hardware key and reports whether the session consumed it.
func (s *service) Key(ctx context.Context, code alarm.KeyCode, up bool) (bool, session.Snapshot, error) {
	var consumed bool

	snap, err := s.act(ctx, func(sess *session.Session) { consumed = sess.KeyEvent(ctx, code, up) })

	return consumed, snap, err
}

// Digit types a challenge digit.
func (s *service) Digit(ctx context.Context, d int) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.ChallengeDigit(ctx, d) })
}

// Backspace removes the last challenge digit.
func (s *service) Backspace(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.ChallengeBackspace(ctx) })
}

// ResetAnswer clears the challenge answer.
func (s *service) ResetAnswer(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.ChallengeReset(ctx) })
}

// SubmitAnswer checks the challenge answer.
func (s *service) SubmitAnswer(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.ChallengeSubmit(ctx) })
}

// Resume re-checks that the presented alarm still exists.
func (s *service) Resume(ctx context.Context) (session.Snapshot, error) {
	return s.act(ctx, func(sess *session.Session) { sess.Resume(ctx) })
}

// RemoveAlarm deletes an alarm definition. A session presenting it loses snooze.
func (s *service) RemoveAlarm(ctx context.Context, id alarm.ID) error {
	if s.repo == nil {
		return api.ErrAlarmNotFound
	}

	if err := s.repo.DeleteAlarm(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return api.ErrAlarmNotFound
		}

		return fmt.Errorf("delete alarm: %w", err)
	}

	logger.InfoKV(ctx, "Alarm removed", "alarm_id", id)

	if sess := s.session(); sess != nil {
		sess.Resume(ctx)
		sess.Flush(ctx)
	}

	return nil
}

// Status returns the current session.
func (s *service) Status(context.Context) (session.Snapshot, error) {
	sess := s.session()
	if sess == nil {
		return session.Snapshot{}, api.ErrNoSession
	}

	return sess.Snapshot(), nil
}

// HandleSignal routes a broadcast signal to the current session.
func (s *service) HandleSignal(ctx context.Context, sig broadcast.Signal) {
	s.mu.Lock()
	sess, sensors := s.current, s.sensorsAttached
	s.mu.Unlock()

	if sess == nil {
		if sig.Kind != broadcast.SignalSensor {
			logger.DebugKV(ctx, "Signal without an alert session", "kind", sig.Kind, "alarm_id", sig.AlarmID)
		}

		return
	}

	switch sig.Kind {
	case broadcast.SignalKilled:
		sess.Kill(ctx, sig.AlarmID)
	case broadcast.SignalSnooze:
		sess.ForeignSnooze(ctx, sig.AlarmID)
	case broadcast.SignalDismiss:
		sess.ForeignDismiss(ctx, sig.AlarmID)
	case broadcast.SignalSensor:
		if sensors && !sess.SensorReading(sig.Source, sig.Values) {
			logger.DebugKV(ctx, "Sensor reading dropped", "source", sig.Source)
		}
	}
}

// stop abandons running sessions and blocks until every one has returned.
func (s *service) stop() {
	s.cancelRun()
	s.wg.Wait()
}
