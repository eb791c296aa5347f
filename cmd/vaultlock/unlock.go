package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/lock"
)

func newUnlockCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "unlock <database>",
		Short: "Forcibly remove the lock record for a database file",
		Long: `Forcibly remove the lock record for a database file.

Removing the record of a holder that is still running can corrupt the
database. Unless the lock is stale, the command refuses to act without
--yes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if !yes {
				status, err := app.Coordinator.Status(path)
				if err != nil {
					return errors.Wrapf(err, "cannot verify the lock on %s is safe to remove; re-run with --yes to override", path)
				}
				switch status.State {
				case lock.StateAvailable, lock.StateStaleLock:
					// Safe to remove.
				default:
					return errors.Errorf("%s is held by %s; re-run with --yes to remove the lock anyway", path, status.Info)
				}
			}

			if err := app.Coordinator.ForceUnlock(path); err != nil {
				return err
			}
			fmt.Fprintf(app.Stdout, "✅ Removed lock record for %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "remove the lock even if the holder appears to be running")

	return cmd
}
