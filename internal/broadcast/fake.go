package broadcast

import (
	"context"
	"sync"

	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Message is one published payload.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeBus records published commands and lets tests inject inbound signals.
// Safe for concurrent use.
type FakeBus struct {
	mu sync.Mutex

	handler    Handler
	handlerCtx context.Context //nolint:containedctx // Mirrors the context captured by a paho subscription.

	published []Message

	// PublishError, if set, is returned by every publish.
	PublishError error

	closed bool
}

var _ Bus = (*FakeBus)(nil)

// NewFakeBus creates a FakeBus for testing.
func NewFakeBus() *FakeBus {
	return new(FakeBus)
}

// Subscribe stores h for Deliver.
func (f *FakeBus) Subscribe(ctx context.Context, h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handler = h
	f.handlerCtx = ctx

	return nil
}

// Deliver decodes a raw inbound message and passes it to the subscriber.
func (f *FakeBus) Deliver(topic string, payload []byte) error {
	sig, err := ParseSignal(topic, payload)
	if err != nil {
		return err
	}

	f.mu.Lock()
	h, ctx := f.handler, f.handlerCtx
	f.mu.Unlock()

	if h != nil {
		h(ctx, sig)
	}

	return nil
}

// StopAlertPlayback records the stop command.
func (f *FakeBus) StopAlertPlayback(_ context.Context, id alarm.ID) error {
	payload, err := FormatCommand(id)
	if err != nil {
		return err
	}

	return f.record(TopicStopPlayback, payload)
}

// CancelNotification records the cancel command.
func (f *FakeBus) CancelNotification(_ context.Context, id alarm.ID) error {
	payload, err := FormatCommand(id)
	if err != nil {
		return err
	}

	return f.record(TopicCancelNotification, payload)
}

// UpdateSnoozeNotification records the snoozed notification.
func (f *FakeBus) UpdateSnoozeNotification(_ context.Context, snooze alarm.Snooze) error {
	payload, err := FormatSnooze(snooze)
	if err != nil {
		return err
	}

	return f.record(TopicSnoozeNotification, payload)
}

func (f *FakeBus) record(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.published = append(f.published, Message{Topic: topic, Payload: payload})

	return nil
}

// Published returns a copy of the recorded messages.
func (f *FakeBus) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Message(nil), f.published...)
}

// Topics returns the topics of the recorded messages in order.
func (f *FakeBus) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	topics := make([]string, 0, len(f.published))
	for _, m := range f.published {
		topics = append(topics, m.Topic)
	}

	return topics
}

// Close marks the bus as closed.
func (f *FakeBus) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Closed reports whether Close was called.
func (f *FakeBus) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}
