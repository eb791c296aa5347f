package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newHoldCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "hold <database>",
		Short: "Acquire the lock on a database file and hold it until interrupted",
		Long: `Acquire the lock on a database file and hold it until interrupted.

Useful for testing contention behaviour and for pinning a database while
running maintenance outside the application.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := app.Coordinator.Acquire(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(app.Stdout, "Holding lock on %s (PID %d)...\n", guard.DatabasePath(), os.Getpid())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				app.Logger.Info().Str("signal", sig.String()).Msg("releasing lock")
			case <-cmd.Context().Done():
			}

			return guard.Release()
		},
	}
}
