package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tubedigest/internal/config"
	"tubedigest/internal/heartbeat"
	"tubedigest/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report database, queue, and worker liveness health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()

				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database: %s\n", db.DBPath)
				fmt.Fprintf(out, "  readable: %s  schema: %s  integrity: %s\n",
					yesNo(db.DatabaseReadable), db.SchemaVersion, yesNo(db.IntegrityCheck))
				if db.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", db.Error)
				}

				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queue: %d total\n", health.Total)
				fmt.Fprintf(out, "  pending: %d  processing: %d  retryable: %d  permanent: %d  delivered: %d\n",
					health.Pending, health.Processing, health.Retryable, health.Permanent, health.Success)

				beacon := heartbeat.New(cfg.HeartbeatPath())
				if age, ok := beacon.Age(); ok {
					fmt.Fprintf(out, "Worker heartbeat: %s ago\n", age.Truncate(time.Second))
				} else {
					fmt.Fprintln(out, "Worker heartbeat: absent (no worker running)")
				}
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
