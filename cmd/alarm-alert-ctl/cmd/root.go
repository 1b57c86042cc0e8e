package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
	"github.com/oshokin/alarm-alert/internal/config"
	"github.com/oshokin/alarm-alert/internal/domain/alarm"
	"github.com/oshokin/alarm-alert/internal/service/client"
	"github.com/oshokin/alarm-alert/internal/service/common"
	"github.com/oshokin/alarm-alert/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the daemon address from config.
	serverAddress string
	// wait retries fire until the daemon answers.
	wait bool
	// keyDown sends a key-down transition instead of key-up.
	keyDown bool

	// rootCmd represents the base command for sending alert inputs.
	rootCmd = &cobra.Command{
		Use:   "alarm-alert-ctl",
		Short: "Send inputs to the alarm alert daemon.",
		Long: `Sends one input to the running alarm-alert daemon and prints the alert afterwards.

Use fire to present an alarm, then snooze, dismiss or the volume keys to end it.
When dismissing requires a challenge, type the answer with digit and confirm with submit.
The daemon address is loaded from configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the alarm-alert-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run sends action with the shared flags.
func run(name string, retry bool, action client.Action) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return client.Run(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Retry:         retry,
	}, name, action)
}

// inputCommand builds a command for a client method without arguments.
func inputCommand(use, short string, method func(*common.Client, context.Context) (api.Status, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return run(use, false, func(ctx context.Context, c *common.Client) (api.Status, error) {
				return method(c, ctx)
			})
		},
	}
}

var (
	errInvalidAlarmID = errors.New("alarm id must be a positive integer")
	errInvalidDigit   = errors.New("digit must be between 0 and 9")
)

func parseAlarmID(s string) (alarm.ID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidAlarmID, s)
	}

	return alarm.ID(id), nil
}

func fireCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fire <alarm-id> [label]",
		Short: "Present a firing alarm.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseAlarmID(args[0])
			if err != nil {
				return err
			}

			var label string
			if len(args) > 1 {
				label = args[1]
			}

			return run("fire", wait, func(ctx context.Context, c *common.Client) (api.Status, error) {
				return c.Fire(ctx, id, label)
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "retry until the daemon answers")

	return cmd
}

func keyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key <volume_up|volume_down|camera|focus>",
		Short: "Send a hardware key transition.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run("key", false, func(ctx context.Context, c *common.Client) (api.Status, error) {
				st, err := c.Key(ctx, args[0], !keyDown)
				if err == nil && !st.Consumed {
					fmt.Fprintf(os.Stderr, "key %q is not handled by the alert screen\n", args[0])
				}

				return st, err
			})
		},
	}

	cmd.Flags().BoolVar(&keyDown, "down", false, "send key-down instead of key-up")

	return cmd
}

func digitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "digit <0-9>",
		Short: "Type a challenge digit.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := strconv.Atoi(args[0])
			if err != nil || d < 0 || d > 9 {
				return fmt.Errorf("%w: %q", errInvalidDigit, args[0])
			}

			return run("digit", false, func(ctx context.Context, c *common.Client) (api.Status, error) {
				return c.Digit(ctx, d)
			})
		},
	}
}

func removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <alarm-id>",
		Short: "Delete an alarm definition; a ringing alert for it can no longer snooze.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := parseAlarmID(args[0])
			if err != nil {
				return err
			}

			return run("remove", false, func(ctx context.Context, c *common.Client) (api.Status, error) {
				if err := c.RemoveAlarm(ctx, id); err != nil {
					return api.Status{}, err
				}

				st, err := c.Status(ctx)
				if status.Code(err) == codes.FailedPrecondition {
					// Nothing is ringing.
					return api.Status{AlarmID: id, Label: alarm.DefaultLabel, State: "removed"}, nil
				}

				return st, err
			})
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "daemon address, overrides config")

	rootCmd.AddCommand(
		fireCommand(),
		inputCommand("snooze", "Press the snooze button.", (*common.Client).Snooze),
		inputCommand("long-press", "Long-press the snooze button.", (*common.Client).SnoozeLongPress),
		inputCommand("dismiss", "Press the dismiss button.", (*common.Client).Dismiss),
		inputCommand("back", "Press back.", (*common.Client).Back),
		keyCommand(),
		digitCommand(),
		inputCommand("backspace", "Remove the last challenge digit.", (*common.Client).Backspace),
		inputCommand("reset", "Clear the challenge answer.", (*common.Client).ResetAnswer),
		inputCommand("submit", "Submit the challenge answer.", (*common.Client).SubmitAnswer),
		inputCommand("resume", "Re-check that the presented alarm still exists.", (*common.Client).Resume),
		inputCommand("status", "Show the current alert.", (*common.Client).Status),
		removeCommand(),
	)
}
