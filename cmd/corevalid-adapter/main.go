// Package main provides the corevalid-adapter binary entry point.
// The adapter launches CORE valid computations when the task manager reports
// a task ready, and on operator request over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/corevalid-adapter/config"
	joblauncher "github.com/c360studio/corevalid-adapter/processor/job-launcher"
	"github.com/c360studio/semstreams/component"
	ssconfig "github.com/c360studio/semstreams/config"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "corevalid-adapter"
)

const shutdownTimeout = 30 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "CORE valid job launcher",
		Long: `corevalid-adapter launches CORE valid computations.

It consumes task updates from NATS JetStream and launches READY tasks
automatically, and serves POST /start/{timestamp} for manual launches.
Run requests are published to JetStream for the compute service.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			override := ""
			if cmd.Flags().Changed("log-level") {
				override = logLevel
			}
			return run(configPath, override)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage adapter configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(nil).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	cmd.AddCommand(configCmd)

	return cmd
}

func run(configPath, logLevelOverride string) error {
	printBanner()

	// Bootstrap logger for config loading; replaced once the level is known
	logger := newLogger("info")

	cfg, err := config.NewLoader(logger).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevelOverride != "" {
		cfg.Log.Level = logLevelOverride
	}

	logger = newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	launcherJSON, err := cfg.LauncherJSON()
	if err != nil {
		return err
	}
	launcherCfg, err := joblauncher.ParseConfig(launcherJSON)
	if err != nil {
		return fmt.Errorf("launcher config: %w", err)
	}

	ctx := context.Background()
	natsClient, err := connectToNATS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	if err := ensureStreams(ctx, launcherCfg, natsClient, logger); err != nil {
		return err
	}

	componentRegistry := component.NewRegistry()
	if err := joblauncher.Register(componentRegistry); err != nil {
		return fmt.Errorf("register job-launcher: %w", err)
	}
	slog.Debug("Component factories registered", "count", len(componentRegistry.ListFactories()))

	discoverable, err := joblauncher.NewComponent(launcherJSON, component.Dependencies{
		NATSClient: natsClient,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create job-launcher: %w", err)
	}
	launcherComp := discoverable.(*joblauncher.Component)
	defer launcherComp.Close()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := launcherComp.Metrics().Register(metricsRegistry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := launcherComp.Initialize(); err != nil {
		return fmt.Errorf("initialize job-launcher: %w", err)
	}
	if err := launcherComp.Start(signalCtx); err != nil {
		return fmt.Errorf("start job-launcher: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newMux(launcherComp, cfg.HTTP.Prefix, metricsRegistry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr, "prefix", cfg.HTTP.Prefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	slog.Info("corevalid-adapter ready", "version", Version)

	var runErr error
	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping HTTP server", "error", err)
	}
	if err := launcherComp.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping job-launcher", "error", err)
	}

	slog.Info("corevalid-adapter shutdown complete")
	return runErr
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║          corevalid-adapter v" + Version + "             ║")
	fmt.Println("║          CORE valid job launcher              ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func parseLogLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func newLogger(logLevel string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))
}

func connectToNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	natsURLs := cfg.NATS.URL

	logger.Info("Connecting to NATS", "url", natsURLs)

	client, err := natsclient.NewClient(natsURLs,
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, natsURLs)
	}

	logger.Info("Connected to NATS", "url", natsURLs)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

// streamsConfig declares the task and run request streams.
func streamsConfig(cfg joblauncher.Config) *ssconfig.Config {
	streams := ssconfig.StreamConfigs{
		cfg.TaskStreamName: ssconfig.StreamConfig{
			Subjects: []string{cfg.TaskSubject, cfg.ManualRunSubject},
			MaxAge:   "168h",
			Storage:  "file",
			Replicas: 1,
		},
	}

	run := ssconfig.StreamConfig{
		Subjects: []string{cfg.RunSubject},
		MaxAge:   "24h",
		Storage:  "file",
		Replicas: 1,
	}
	if existing, ok := streams[cfg.RunStreamName]; ok {
		existing.Subjects = append(existing.Subjects, cfg.RunSubject)
		run = existing
	}
	streams[cfg.RunStreamName] = run

	return &ssconfig.Config{Streams: streams}
}

func ensureStreams(ctx context.Context, cfg joblauncher.Config, natsClient *natsclient.Client, logger *slog.Logger) error {
	logger.Debug("Creating JetStream streams")
	streamsManager := ssconfig.NewStreamsManager(natsClient, logger)

	if err := streamsManager.EnsureStreams(ctx, streamsConfig(cfg)); err != nil {
		return fmt.Errorf("ensure streams: %w", err)
	}

	logger.Debug("JetStream streams ready")
	return nil
}
