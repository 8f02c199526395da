package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"gatewise-hq/gatewise/pkg/admission"
	"gatewise-hq/gatewise/pkg/admission/window"
	windowredis "gatewise-hq/gatewise/pkg/admission/window/redis"
	"gatewise-hq/gatewise/pkg/config"
	"gatewise-hq/gatewise/pkg/server"
	"gatewise-hq/gatewise/pkg/telemetry/health"
	"gatewise-hq/gatewise/pkg/telemetry/logging"
	"gatewise-hq/gatewise/pkg/usagelog"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gatewise admission server",
	Long: `Start the gatewise admission server with the specified configuration.

The server enforces per-tier dual-window rate limits on the protected
endpoints and exposes health probes and Prometheus metrics. When redis.url
is configured the counters are shared across instances; otherwise they live
in-process.

Examples:
  # Start with default config
  gatewise run

  # Start with custom config
  gatewise run --config /etc/gatewise/config.yaml

  # Override listen address
  gatewise run --listen 0.0.0.0:8080

  # Validate config without starting server
  gatewise run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	log, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		RedactPII: cfg.Telemetry.Logging.RedactPII,
	})
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	checker := health.New(cfg.Redis.Timeout * 4)

	// The counter backend is chosen once at startup. There is no runtime
	// fallback between backends: losing Redis mid-flight answers 503, it
	// does not silently degrade to per-instance counting.
	backend, cleanup, err := buildBackend(cfg, registry, checker, log)
	if err != nil {
		return err
	}
	defer cleanup()

	var recorder *usagelog.Recorder
	if cfg.UsageLog.Enabled {
		store, err := usagelog.NewStore(usagelog.StoreConfig{Path: cfg.UsageLog.Path})
		if err != nil {
			return fmt.Errorf("failed to open usage log: %w", err)
		}
		defer store.Close()

		recorder, err = usagelog.NewRecorder(store, usagelog.RecorderConfig{
			BufferSize:    cfg.UsageLog.BufferSize,
			RetentionDays: cfg.UsageLog.RetentionDays,
			PurgeSchedule: cfg.UsageLog.PurgeSchedule,
			Logger:        log,
		})
		if err != nil {
			return fmt.Errorf("failed to start usage recorder: %w", err)
		}
		defer recorder.Close()

		checker.RegisterCheck("usage_log", store.Ping)
		log.Info("Usage log enabled", "path", cfg.UsageLog.Path, "retention_days", cfg.UsageLog.RetentionDays)
	}

	gate, err := admission.NewGate(admission.GateConfig{
		Policy:  cfg.PolicyTable(),
		Backend: backend,
		Metrics: admission.NewMetrics(registry),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:   *cfg,
		Gate:     gate,
		Checker:  checker,
		Recorder: recorder,
		Registry: registry,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Hot reload: a config file change swaps the quota table in place.
	// Backend and listener changes still require a restart.
	watcher, err := config.NewWatcher(cfgFile, log)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	go func() {
		_ = watcher.Watch(ctx, func(next *config.Config) {
			if err := gate.SwapPolicy(next.PolicyTable()); err != nil {
				log.Error("Rejected reloaded quota table", "error", err)
				return
			}
			log.Info("Quota table reloaded")
		})
	}()

	log.Info("Gatewise starting",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"distributed", cfg.Redis.Enabled(),
	)

	return srv.Start(ctx)
}

// buildBackend constructs the window counter backend from configuration and
// returns it with its cleanup function.
func buildBackend(cfg *config.Config, registry *prometheus.Registry, checker *health.Checker, log *logging.Logger) (window.Provider, func(), error) {
	if cfg.Redis.Enabled() {
		opt, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := goredis.NewClient(opt)

		pool := windowredis.NewPool(client, windowredis.Config{
			Prefix:       cfg.Redis.KeyPrefix,
			Timeout:      cfg.Redis.Timeout,
			MinuteWindow: cfg.Limits.MinuteWindow,
		})
		checker.RegisterCheck("redis", pool.Ping)

		log.Info("Using distributed counter backend", "key_prefix", cfg.Redis.KeyPrefix)
		return pool, func() { _ = client.Close() }, nil
	}

	local := window.NewLocalCounter(window.LocalConfig{
		MinuteWindow:  cfg.Limits.MinuteWindow,
		SweepInterval: cfg.Limits.SweepInterval,
	})

	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gatewise_local_counter_entries",
			Help: "Number of live subject entries in the local counter backend.",
		},
		func() float64 { return float64(local.Len()) },
	))

	log.Info("Using local counter backend", "minute_window", cfg.Limits.MinuteWindow)
	return local, func() { _ = local.Close() }, nil
}
