package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/eventcore/internal/config"
	"github.com/dshills/eventcore/internal/event/profile"
	"github.com/dshills/eventcore/internal/telemetry"
	"github.com/dshills/eventcore/internal/workload"
)

const serviceName = "eventbench"

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic register/fire/deregister workload",
		Example: `  eventbench run --listeners 64 --events 10000
  eventbench run --isolate --fail-every 7
  EVENTCORE_TELEMETRY_ENABLED=true eventbench run
  eventbench run --config bench.toml --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				return watchWorkload(ctx, cmd, opts)
			}
			return runWorkload(ctx, cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("listeners", 16, "Listeners registered per round")
	flags.Int("events", 1000, "Events fired per round")
	flags.Int("rounds", 3, "Register/fire/deregister cycles")
	flags.Int("workers", 4, "Goroutines used for registration and firing")
	flags.Bool("isolate", false, "Run every handler even after failures")
	flags.Int("persistent-every", 4, "Also register every Nth listener on the persistent track (0 = never)")
	flags.Int("fail-every", 0, "Send an empty message every Nth event (0 = never)")
	flags.Bool("telemetry", false, "Enable OpenTelemetry providers")
	flags.Bool("telemetry-stdout", true, "Export spans and metrics to stdout when telemetry is enabled")
	flags.Bool("watch", false, "Run again whenever the config file changes")
	return cmd
}

var runBindings = map[string]string{
	"workload.listeners":        "listeners",
	"workload.events":           "events",
	"workload.rounds":           "rounds",
	"workload.workers":          "workers",
	"workload.isolate":          "isolate",
	"workload.persistent_every": "persistent-every",
	"workload.fail_every":       "fail-every",
	"telemetry.enabled":         "telemetry",
	"telemetry.stdout":          "telemetry-stdout",
}

// watchWorkload runs once, then again after every change to the config
// file, until ctx is done. Run failures are reported and do not stop the
// watch.
func watchWorkload(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("--watch: %w", config.ErrNoConfigFile)
	}

	rerun := func() {
		if err := runWorkload(ctx, cmd, opts); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "run failed: %v\n", err)
		}
	}
	rerun()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s for changes\n", opts.configPath)
	return config.Watch(ctx, opts.configPath, rerun, func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
	})
}

func runWorkload(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.load(cmd, runBindings)
	if err != nil {
		return err
	}

	log, err := initLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	providers, err := telemetry.Init(ctx, cfg.Telemetry, cmd.OutOrStdout(), serviceName, version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	tel, err := profile.NewTelemetry[workload.Event](providers.Meter(), providers.Tracer())
	if err != nil {
		return err
	}
	profiler := profile.Multi[workload.Event]{
		profile.NewLogger[workload.Event](log),
		tel,
	}

	log.Info("starting workload",
		zap.Int("listeners", cfg.Workload.Listeners),
		zap.Int("events", cfg.Workload.Events),
		zap.Int("rounds", cfg.Workload.Rounds),
		zap.Bool("isolate", cfg.Workload.Isolate),
	)

	runner := workload.NewRunner(cfg.Workload,
		workload.WithLogger(log),
		workload.WithProfiler(profiler),
	)
	sum, runErr := runner.Run(ctx)
	if runErr != nil {
		log.Error("workload failed", zap.Error(runErr), zap.Object("summary", sum))
	} else {
		log.Info("workload complete", zap.Object("summary", sum))
	}

	printSummary(cmd, sum)
	return runErr
}

func printSummary(cmd *cobra.Command, sum workload.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rounds:        %d\n", sum.Rounds)
	fmt.Fprintf(out, "listeners:     %d\n", sum.Listeners)
	fmt.Fprintf(out, "registrations: %d\n", sum.Registrations)
	fmt.Fprintf(out, "fired:         %d\n", sum.Fired)
	fmt.Fprintf(out, "skipped:       %d\n", sum.Skipped)
	fmt.Fprintf(out, "deliveries:    %d\n", sum.Deliveries)
	fmt.Fprintf(out, "failures:      %d\n", sum.Failures)
	fmt.Fprintf(out, "elapsed:       %s\n", sum.Elapsed)
	if sum.Fired > 0 {
		perFire := sum.Elapsed / time.Duration(sum.Fired+sum.Skipped)
		fmt.Fprintf(out, "per fire:      %s\n", perFire)
	}
}
