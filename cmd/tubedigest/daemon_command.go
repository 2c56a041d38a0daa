package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tubedigest/internal/config"
	"tubedigest/internal/logging"
	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run pipeline cycles continuously at the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runDaemon(cmd.Context(), cfg, store)
			})
		},
	}
}

func runDaemon(cmdCtx context.Context, cfg *config.Config, store *queue.Store) error {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another tubedigest daemon instance is already running (lock: %s)", cfg.LockPath())
	}
	defer lock.Unlock()

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, "tubedigest.log")
	logger, err := newLogger(cfg, []string{"stdout", logPath})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pl, beacon, err := buildPipeline(signalCtx, cfg, store, logger)
	if err != nil {
		return err
	}

	// Keep the beacon fresh between cycles too, so a long check interval is
	// never mistaken for a dead worker.
	go beacon.Run(signalCtx, time.Minute, logger)

	interval := time.Duration(cfg.Workflow.CheckIntervalMinutes) * time.Minute
	logger.Info("daemon started",
		logging.Duration("interval", interval),
		logging.String("lock", cfg.LockPath()))

	for {
		cycleCtx := services.WithRequestID(signalCtx, uuid.NewString())
		cycleLogger := logging.WithContext(cycleCtx, logger)

		stats, err := pl.RunCycle(cycleCtx)
		if err != nil {
			if signalCtx.Err() != nil {
				break
			}
			cycleLogger.Error("cycle aborted", logging.Error(err))
		} else {
			cycleLogger.Info("cycle finished",
				logging.Int("discovered", stats.Discovered),
				logging.Int("recovered", stats.Recovered),
				logging.Int("processed", stats.Processed),
				logging.Int("succeeded", stats.Succeeded),
				logging.Int("failed", stats.Failed))
		}

		timer := time.NewTimer(interval)
		select {
		case <-signalCtx.Done():
			timer.Stop()
		case <-timer.C:
			continue
		}
		break
	}

	// A removed heartbeat tells the next worker this shutdown was clean, so
	// its in-flight resets use the failsafe tier only.
	if err := beacon.Remove(); err != nil {
		logger.Warn("heartbeat cleanup failed", logging.Error(err))
	}
	logger.Info("daemon shutting down")
	return nil
}
