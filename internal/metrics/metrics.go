package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/session"
)

const metricPrefix = "alarm_alert_"

// Metrics bundles alert session metrics. It implements session.Recorder.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsActive    prometheus.Gauge
	SessionsEnded     *prometheus.CounterVec
	AutoDismisses     prometheus.Counter
	ChallengeSubmits  *prometheus.CounterVec
	CollaboratorFails *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var _ session.Recorder = (*Metrics)(nil)

// New constructs the metrics and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sessions_started_total",
			Help: "Total alert sessions started",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "sessions_active",
			Help: "Alert sessions currently running",
		}),
		SessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sessions_ended_total",
				Help: "Total alert sessions ended by final state and cause",
			},
			[]string{"state", "cause"},
		),
		AutoDismisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "auto_dismiss_total",
			Help: "Total pick-up gestures detected",
		}),
		ChallengeSubmits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "challenge_submits_total",
				Help: "Total challenge answers by result",
			},
			[]string{"result"},
		),
		CollaboratorFails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collaborator_failures_total",
				Help: "Total failed side effects by operation",
			},
			[]string{"operation"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsActive,
		m.SessionsEnded,
		m.AutoDismisses,
		m.ChallengeSubmits,
		m.CollaboratorFails,
	)

	return m
}

// SessionStarted counts a new session.
func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// SessionEnded counts a terminal transition.
func (m *Metrics) SessionEnded(state alarm.State, cause session.Cause) {
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(state.String(), string(cause)).Inc()
}

// AutoDismissTriggered counts a detected pick-up gesture.
func (m *Metrics) AutoDismissTriggered() {
	m.AutoDismisses.Inc()
}

// ChallengeSubmitted counts an answer.
func (m *Metrics) ChallengeSubmitted(result challenge.SubmitResult) {
	m.ChallengeSubmits.WithLabelValues(result.String()).Inc()
}

// CollaboratorFailed counts a failed side effect.
func (m *Metrics) CollaboratorFailed(operation string) {
	m.CollaboratorFails.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
