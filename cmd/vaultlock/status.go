package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openvault/vaultlock/internal/lock"
)

func newStatusCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <database>",
		Short: "Report who, if anyone, holds the lock on a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.Coordinator.Status(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Stdout, string(out))
				return nil
			}

			printStatus(app, args[0], status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the status as JSON")

	return cmd
}

func printStatus(app *App, path string, status lock.Status) {
	switch status.State {
	case lock.StateAvailable:
		fmt.Fprintf(app.Stdout, "✅ %s is available\n", path)
	case lock.StateLockedByCurrentProcess:
		fmt.Fprintf(app.Stdout, "🔒 %s is locked by this process\n", path)
	case lock.StateStaleLock:
		fmt.Fprintf(app.Stdout, "⚠️  %s has a stale lock left by %s\n", path, status.Info)
		fmt.Fprintln(app.Stdout, "   The holder is no longer running; the next open will reclaim it.")
	default:
		fmt.Fprintf(app.Stdout, "🔒 %s is locked by %s\n", path, status.Info)
	}
}
