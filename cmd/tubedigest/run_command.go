package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tubedigest/internal/config"
	"tubedigest/internal/logging"
	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one full pipeline cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				logger, err := newLogger(cfg, []string{"stdout"})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				runCtx := services.WithRequestID(signalCtx, uuid.NewString())
				pl, beacon, err := buildPipeline(runCtx, cfg, store, logging.WithContext(runCtx, logger))
				if err != nil {
					return err
				}

				stats, err := pl.RunCycle(runCtx)
				if err != nil {
					return err
				}
				if removeErr := beacon.Remove(); removeErr != nil {
					logger.Warn("heartbeat cleanup failed", logging.Error(removeErr))
				}

				fmt.Fprintf(cmd.OutOrStdout(),
					"Cycle complete: %d discovered, %d recovered, %d processed (%d succeeded, %d failed), %d skipped\n",
					stats.Discovered, stats.Recovered, stats.Processed, stats.Succeeded, stats.Failed, stats.Skipped)
				return nil
			})
		},
	}
}
