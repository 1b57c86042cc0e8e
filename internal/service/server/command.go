package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/alarm-alert/internal/api/grpc/alert"
	"github.com/oshokin/alarm-alert/internal/broadcast"
	"github.com/oshokin/alarm-alert/internal/config"
	"github.com/oshokin/alarm-alert/internal/logger"
	"github.com/oshokin/alarm-alert/internal/metrics"
	repository "github.com/oshokin/alarm-alert/internal/repository/alarms"
	"github.com/oshokin/alarm-alert/internal/service/instance"
	"github.com/oshokin/alarm-alert/internal/session"
	"github.com/oshokin/alarm-alert/internal/version"
)

// ExecutableName is the daemon binary name.
const ExecutableName = "alarm-alert"

// Options controls the alarm-alert process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// Database overrides the SQLite path from the settings.
	Database string
	// AllowMultiple skips the single instance check.
	AllowMultiple bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

const metricsShutdownTimeout = 5 * time.Second

// Run starts the daemon and blocks until context is canceled or the server stops.
// Loads configuration first, then opens the store, the broadcast bus and the
// metrics listener before serving the control API.
//
//nolint:funlen // Linear startup sequence.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, ExecutableName)
	logger.InfoKV(ctx, "Starting", version.Fields()...)

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := logger.ApplyLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("apply log level: %w", err)
	}

	if !opts.AllowMultiple {
		if err := instance.Ensure(instance.Executable(ExecutableName)); err != nil {
			return err
		}
	}

	// Use Database from config unless overridden by command line option.
	database := settings.Database
	if opts.Database != "" {
		database = opts.Database
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	store, err := repository.Open(ctx, database)
	if err != nil {
		return fmt.Errorf("open alarm store: %w", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close alarm store", "error", err)
		}
	}()

	m := metrics.New()
	deps := session.Dependencies{Store: store}

	var bus broadcast.Bus

	if settings.MQTTBroker != "" {
		realBus, err := broadcast.NewRealBus(settings.MQTTBroker, broadcast.DefaultClientID, settings.Timeout)
		if err != nil {
			return fmt.Errorf("connect broadcast bus: %w", err)
		}

		bus = realBus
		deps.Playback = realBus
		deps.Notifier = realBus

		defer func() {
			if err := realBus.Close(); err != nil {
				logger.ErrorKV(ctx, "Failed to close broadcast bus", "error", err)
			}
		}()
	} else {
		logger.Warn(ctx, "No MQTT broker configured, broadcasts are disabled")
	}

	// Sessions outlive single RPCs and stop together with the daemon,
	// including when Serve fails before ctx is canceled.
	svc := newService(ctx, settings.SessionSettings(), deps, store, session.WithRecorder(m))
	defer svc.stop()

	if bus != nil {
		if err := bus.Subscribe(ctx, svc.HandleSignal); err != nil {
			return fmt.Errorf("subscribe to signals: %w", err)
		}
	}

	if settings.MetricsAddress != "" {
		stop := serveMetrics(ctx, settings.MetricsAddress, m)
		defer stop()
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with alert service.
	grpcServer := grpc.NewServer()
	api.RegisterAlertServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Alarm alert listening",
		"listen_address", listenAddress,
		"database", database,
		"mqtt_broker", settings.MQTTBroker,
		"volume_key_policy", settings.VolumeKeyPolicy,
		"snooze_minutes", settings.SnoozeMinutes,
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// serveMetrics exposes the Prometheus registry and returns a stop function.
func serveMetrics(ctx context.Context, address string, m *metrics.Metrics) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsShutdownTimeout,
	}

	go func() {
		logger.InfoKV(ctx, "Metrics listening", "metrics_address", address)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Failed to stop metrics server", "error", err)
		}
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
