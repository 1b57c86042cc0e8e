//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
	"github.com/oshokin/alarm-alert/internal/config"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
)

// Client wraps the AlertService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api calls AlertService methods by name.
	api *api.AlertServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is attached to every input when set.
	actor *Actor
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches actor to every request.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errInvalidAlarmID is returned for non-positive alarm ids.
	errInvalidAlarmID = errors.New("alarm id must be positive")
	// errNotConnected is returned by a Client that was not created by Dial.
	errNotConnected = errors.New("client is not connected")
)

// Dial establishes a gRPC connection to the alarm-alert daemon.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm-alert daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewAlertServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Fire presents alarm id with an optional label.
func (c *Client) Fire(ctx context.Context, id alarm.ID, label string) (api.Status, error) {
	if id <= 0 {
		return api.Status{}, errInvalidAlarmID
	}

	fields := map[string]*structpb.Value{
		api.FieldAlarmID: structpb.NewNumberValue(float64(id)),
	}

	if label != "" {
		fields[api.FieldLabel] = structpb.NewStringValue(label)
	}

	return c.call(ctx, api.MethodFire, fields)
}

// Snooze presses the snooze button.
func (c *Client) Snooze(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodSnooze, nil)
}

// SnoozeLongPress long-presses the snooze button.
func (c *Client) SnoozeLongPress(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodSnoozeLongPress, nil)
}

// Dismiss presses the dismiss button.
func (c *Client) Dismiss(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodDismiss, nil)
}

// Back presses back.
func (c *Client) Back(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodBack, nil)
}

// Key sends a hardware key transition, e.g. "volume_up".
func (c *Client) Key(ctx context.Context, key string, up bool) (api.Status, error) {
	return c.call(ctx, api.MethodKey, map[string]*structpb.Value{
		api.FieldKey: structpb.NewStringValue(key),
		api.FieldUp:  structpb.NewBoolValue(up),
	})
}

// Digit types one challenge digit.
func (c *Client) Digit(ctx context.Context, d int) (api.Status, error) {
	return c.call(ctx, api.MethodDigit, map[string]*structpb.Value{
		api.FieldDigit: structpb.NewNumberValue(float64(d)),
	})
}

// Backspace removes the last challenge digit.
func (c *Client) Backspace(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodBackspace, nil)
}

// ResetAnswer clears the challenge answer.
func (c *Client) ResetAnswer(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodResetAnswer, nil)
}

// SubmitAnswer checks the challenge answer.
func (c *Client) SubmitAnswer(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodSubmitAnswer, nil)
}

// Resume re-checks that the presented alarm still exists.
func (c *Client) Resume(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodResume, nil)
}

// Status returns the current alert session.
func (c *Client) Status(ctx context.Context) (api.Status, error) {
	return c.call(ctx, api.MethodStatus, nil)
}

// RemoveAlarm deletes the alarm definition id.
func (c *Client) RemoveAlarm(ctx context.Context, id alarm.ID) error {
	if id <= 0 {
		return errInvalidAlarmID
	}

	if c.api == nil {
		return errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.api.Call(callCtx, api.MethodRemoveAlarm, c.request(map[string]*structpb.Value{
		api.FieldAlarmID: structpb.NewNumberValue(float64(id)),
	}))
	if err != nil {
		return fmt.Errorf("remove alarm: %w", err)
	}

	return nil
}

// call invokes method and decodes the returned snapshot.
func (c *Client) call(ctx context.Context, method string, fields map[string]*structpb.Value) (api.Status, error) {
	if c.api == nil {
		return api.Status{}, errNotConnected
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Call(callCtx, method, c.request(fields))
	if err != nil {
		return api.Status{}, fmt.Errorf("%s: %w", method, err)
	}

	st, err := api.DecodeStatus(resp)
	if err != nil {
		return api.Status{}, fmt.Errorf("decode %s response: %w", method, err)
	}

	return st, nil
}

// request builds a request message and attaches the actor.
func (c *Client) request(fields map[string]*structpb.Value) *structpb.Struct {
	if fields == nil {
		fields = make(map[string]*structpb.Value, 1)
	}

	if c.actor != nil {
		fields[api.FieldActor] = structpb.NewStructValue(c.actor.Struct())
	}

	return &structpb.Struct{Fields: fields}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
