package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
	"github.com/oshokin/alarm-alert/internal/challenge"
	"github.com/oshokin/alarm-alert/internal/config"
	"github.com/oshokin/alarm-alert/internal/logger"
	"github.com/oshokin/alarm-alert/internal/service/common"
)

// Options configures one alarm-alert-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string

	// Retry keeps calling until the daemon answers or ctx is canceled.
	Retry bool
}

// Action is one input sent to the daemon.
type Action func(ctx context.Context, client *common.Client) (api.Status, error)

// defaultRetryInterval defines the delay between attempts when Retry is set.
const defaultRetryInterval = 1 * time.Second

// Run connects to the daemon, performs action and logs the resulting session.
func Run(ctx context.Context, opts *Options, name string, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-alert-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	// Connect to the daemon with timeout from config.
	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor),
	)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending input", "server_address", serverAddress, "input", name)

	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		st, err := action(ctx, client)
		if err == nil {
			logger.Infof(ctx, "Alert %s", FormatStatus(st))

			return true, nil
		}

		if !opts.Retry {
			return false, err
		}

		// Log error but continue retrying for transient failures.
		logger.ErrorKV(ctx, "Input failed, retrying", "input", name, "error", err)

		return false, nil
	}

	// Attempt immediately before starting retry loop.
	if done, err := attempt(); err != nil || done {
		return err
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// FormatStatus converts a session status to a readable log message.
func FormatStatus(st api.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d %q %s", st.AlarmID, st.Label, st.State)

	if !st.SnoozeEnabled {
		b.WriteString(", snooze unavailable")
	}

	if !st.SnoozeFireTime.IsZero() {
		fmt.Fprintf(&b, ", rings again at %s", st.SnoozeFireTime.Local().Format(time.Kitchen))
	}

	if c := st.Challenge; c != nil {
		fmt.Fprintf(&b, ", solve %s [%s]", c.Display, c.SubmitLabel)

		if c.Outcome == challenge.OutcomeCorrect.String() {
			fmt.Fprintf(&b, " (%s)", c.Outcome)
		}
	}

	return b.String()
}
