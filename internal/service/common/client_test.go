//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_RejectsInvalidAlarmID fails before any call is made.
func TestClient_RejectsInvalidAlarmID(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Fire(context.Background(), 0, "")
	require.ErrorIs(t, err, errInvalidAlarmID)

	require.ErrorIs(t, c.RemoveAlarm(context.Background(), -1), errInvalidAlarmID)

	_, err = c.Status(context.Background())
	require.ErrorIs(t, err, errNotConnected)
}

// TestClient_RequestCarriesActor attaches the actor to every request.
func TestClient_RequestCarriesActor(t *testing.T) {
	t.Parallel()

	c := new(Client)
	require.Nil(t, c.request(nil).GetFields()[api.FieldActor])

	WithActor(&Actor{Hostname: "kitchen", Username: "o.shokin"})(c)

	actor := c.request(nil).GetFields()[api.FieldActor].GetStructValue()
	require.Equal(t, "kitchen", api.String(actor, "hostname"))
	require.Equal(t, "o.shokin", api.String(actor, "username"))
}
