package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/motion"
)

// Inbound topics carry signals from other actors about a firing alarm.
const (
	// TopicKilled reports that the alert playback stopped on its own.
	TopicKilled = "alarm/alert/killed"
	// TopicSnooze asks the alert to snooze.
	TopicSnooze = "alarm/alert/snooze"
	// TopicDismiss asks the alert to dismiss.
	TopicDismiss = "alarm/alert/dismiss"
	// TopicAccelerometer carries raw accelerometer readings.
	TopicAccelerometer = "alarm/sensor/accelerometer"
	// TopicMagneticField carries raw magnetometer readings.
	TopicMagneticField = "alarm/sensor/magnetic_field"
)

// Outbound topics carry commands for the playback and notification actors.
const (
	// TopicStopPlayback stops the alert sound and vibration.
	TopicStopPlayback = "alarm/klaxon/stop"
	// TopicCancelNotification removes the alarm notification.
	TopicCancelNotification = "alarm/notification/cancel"
	// TopicSnoozeNotification shows the snoozed notification.
	TopicSnoozeNotification = "alarm/notification/snooze"
)

// SignalTopics are the alarm signal topics.
var SignalTopics = []string{TopicKilled, TopicSnooze, TopicDismiss}

// SensorTopics are the sensor reading topics.
var SensorTopics = []string{TopicAccelerometer, TopicMagneticField}

// SignalKind identifies an inbound signal.
type SignalKind string

const (
	// SignalKilled means the playback for the alarm is gone.
	SignalKilled SignalKind = "killed"
	// SignalSnooze asks to snooze the alarm.
	SignalSnooze SignalKind = "snooze"
	// SignalDismiss asks to dismiss the alarm.
	SignalDismiss SignalKind = "dismiss"
	// SignalSensor carries a sensor reading for whichever alarm is active.
	SignalSensor SignalKind = "sensor"
)

// Signal is one inbound message. AlarmID is set for alarm signals,
// Source and Values for sensor readings.
type Signal struct {
	Kind    SignalKind
	AlarmID alarm.ID
	Source  motion.Source
	Values  motion.Vector
}

// Handler receives decoded inbound signals.
type Handler func(ctx context.Context, sig Signal)

// Bus connects alert sessions to the rest of the system. It implements the
// session Playback and Notifier collaborators.
type Bus interface {
	// Subscribe delivers inbound signals to h until Close.
	Subscribe(ctx context.Context, h Handler) error

	StopAlertPlayback(ctx context.Context, id alarm.ID) error
	CancelNotification(ctx context.Context, id alarm.ID) error
	UpdateSnoozeNotification(ctx context.Context, snooze alarm.Snooze) error

	// Close disconnects from the broker.
	Close() error
}

var (
	// ErrUnknownTopic is returned for messages on a topic the bus does not handle.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrMissingAlarmID is returned for signals without an alarm id.
	ErrMissingAlarmID = errors.New("alarm id is required")
	// ErrSensorValues is returned for readings without three axes.
	ErrSensorValues = errors.New("sensor reading needs three values")
)

// CommandPayload addresses an outbound command or an inbound signal to an alarm.
type CommandPayload struct {
	AlarmID int64 `json:"alarm_id"`
}

// SensorPayload is one raw sensor reading.
type SensorPayload struct {
	Values []float64 `json:"values"`
}

// SnoozePayload describes the snoozed notification.
type SnoozePayload struct {
	AlarmID  int64  `json:"alarm_id"`
	Label    string `json:"label"`
	FireTime string `json:"fire_time"`
}

// FormatCommand creates the JSON payload for a command addressed to id.
func FormatCommand(id alarm.ID) ([]byte, error) {
	return json.Marshal(CommandPayload{AlarmID: int64(id)})
}

// FormatSnooze creates the JSON payload for the snoozed notification.
func FormatSnooze(snooze alarm.Snooze) ([]byte, error) {
	return json.Marshal(SnoozePayload{
		AlarmID:  int64(snooze.AlarmID),
		Label:    snooze.Label,
		FireTime: snooze.FireTime.UTC().Format(time.RFC3339),
	})
}

// FormatSensor creates the JSON payload for a sensor reading.
func FormatSensor(values motion.Vector) ([]byte, error) {
	return json.Marshal(SensorPayload{Values: values[:]})
}

// ParseSignal decodes an inbound message.
func ParseSignal(topic string, payload []byte) (Signal, error) {
	var kind SignalKind

	switch topic {
	case TopicAccelerometer:
		return parseSensor(motion.SourceAccelerometer, topic, payload)
	case TopicMagneticField:
		return parseSensor(motion.SourceMagneticField, topic, payload)
	case TopicKilled:
		kind = SignalKilled
	case TopicSnooze:
		kind = SignalSnooze
	case TopicDismiss:
		kind = SignalDismiss
	default:
		return Signal{}, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var p CommandPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Signal{}, fmt.Errorf("decode %s payload: %w", topic, err)
	}

	if p.AlarmID == 0 {
		return Signal{}, ErrMissingAlarmID
	}

	return Signal{Kind: kind, AlarmID: alarm.ID(p.AlarmID)}, nil
}

func parseSensor(source motion.Source, topic string, payload []byte) (Signal, error) {
	var p SensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Signal{}, fmt.Errorf("decode %s payload: %w", topic, err)
	}

	if len(p.Values) < len(motion.Vector{}) {
		return Signal{}, ErrSensorValues
	}

	sig := Signal{Kind: SignalSensor, Source: source}
	copy(sig.Values[:], p.Values)

	return sig, nil
}
