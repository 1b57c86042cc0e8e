package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/logger"
)

const (
	// DefaultClientID is the MQTT client id of the daemon.
	DefaultClientID = "alarm-alert"

	connectTimeout    = 10 * time.Second
	reconnectInterval = 5 * time.Second
	disconnectQuiesce = 1000
)

var (
	errConnectTimeout   = errors.New("connection timeout")
	errPublishTimeout   = errors.New("publish timeout")
	errSubscribeTimeout = errors.New("subscribe timeout")
)

// RealBus exchanges messages with an MQTT broker.
type RealBus struct {
	client  paho.Client
	timeout time.Duration
}

var _ Bus = (*RealBus)(nil)

// NewRealBus connects to broker. timeout bounds every publish.
func NewRealBus(broker, clientID string, timeout time.Duration) (*RealBus, error) {
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectInterval)

	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errConnectTimeout
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealBus{
		client:  client,
		timeout: timeout,
	}, nil
}

// Subscribe registers h for every inbound topic.
func (b *RealBus) Subscribe(ctx context.Context, h Handler) error {
	ctx = logger.WithName(ctx, "broadcast")

	filters := make(map[string]byte, len(SignalTopics)+len(SensorTopics))
	for _, topic := range SignalTopics {
		// Signals at least once, sensor readings at most once.
		filters[topic] = 1
	}

	for _, topic := range SensorTopics {
		filters[topic] = 0
	}

	token := b.client.SubscribeMultiple(filters, func(_ paho.Client, msg paho.Message) {
		sig, err := ParseSignal(msg.Topic(), msg.Payload())
		if err != nil {
			logger.WarnKV(ctx, "Dropping malformed signal", "topic", msg.Topic(), "error", err)

			return
		}

		if sig.Kind != SignalSensor {
			logger.DebugKV(ctx, "Signal received", "kind", sig.Kind, "alarm_id", sig.AlarmID)
		}

		h(ctx, sig)
	})

	if !token.WaitTimeout(b.timeout) {
		return errSubscribeTimeout
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

// StopAlertPlayback publishes the stop command.
func (b *RealBus) StopAlertPlayback(ctx context.Context, id alarm.ID) error {
	payload, err := FormatCommand(id)
	if err != nil {
		return fmt.Errorf("format stop payload: %w", err)
	}

	return b.publish(ctx, TopicStopPlayback, payload)
}

// CancelNotification publishes the cancel command.
func (b *RealBus) CancelNotification(ctx context.Context, id alarm.ID) error {
	payload, err := FormatCommand(id)
	if err != nil {
		return fmt.Errorf("format cancel payload: %w", err)
	}

	return b.publish(ctx, TopicCancelNotification, payload)
}

// UpdateSnoozeNotification publishes the snoozed notification.
func (b *RealBus) UpdateSnoozeNotification(ctx context.Context, snooze alarm.Snooze) error {
	payload, err := FormatSnooze(snooze)
	if err != nil {
		return fmt.Errorf("format snooze payload: %w", err)
	}

	return b.publish(ctx, TopicSnoozeNotification, payload)
}

func (b *RealBus) publish(ctx context.Context, topic string, payload []byte) error {
	token := b.client.Publish(topic, 1, false, payload)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: %s", errPublishTimeout, topic)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

// IsConnected reports whether the client is connected.
func (b *RealBus) IsConnected() bool {
	return b.client.IsConnected()
}

// Close disconnects from the broker.
func (b *RealBus) Close() error {
	b.client.Disconnect(disconnectQuiesce)

	return nil
}
