package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-alert/internal/config"
	"github.com/oshokin/alarm-alert/internal/service/server"
	"github.com/oshokin/alarm-alert/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// database overrides the SQLite file from the configuration.
	database string
	// allowMultiple skips the single instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the alert daemon.
	rootCmd = &cobra.Command{
		Use:   "alarm-alert [listen-address]",
		Short: "Run the alarm alert daemon.",
		Long: `Starts the daemon that presents firing alarms and decides how they end.

A fired alarm stays active until it is snoozed, dismissed or killed. Inputs arrive
over gRPC (see alarm-alert-ctl), signals and sensor readings over MQTT.
Only the port from listen_addr config is used for listening (e.g., :7700).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:7700).
Alarm definitions and snooze times are kept in a SQLite file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				Database:      database,
				AllowMultiple: allowMultiple,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-alert CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&database, "database", "d", "", "path to the SQLite database, overrides config")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
