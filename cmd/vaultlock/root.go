package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openvault/vaultlock/internal/config"
	"github.com/openvault/vaultlock/internal/constants"
	"github.com/openvault/vaultlock/internal/lock"
	"github.com/openvault/vaultlock/internal/logging"
)

// App carries the wired components shared by all subcommands.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Coordinator *lock.Coordinator
	Version     config.VersionInfo

	Stdout io.Writer
	Stderr io.Writer

	cleanup func() error
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	debug      bool
	logFile    string
}

// NewRootCmd builds the vaultlock command tree. The App is returned so the
// caller can close it after execution.
func NewRootCmd(versionInfo config.VersionInfo, stdout, stderr io.Writer) (*cobra.Command, *App) {
	app := &App{
		Version: versionInfo,
		Stdout:  stdout,
		Stderr:  stderr,
	}
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "vaultlock",
		Short: constants.Tagline,
		Long: constants.Tagline + `.

vaultlock claims, inspects, and recovers the exclusive-access lock that
protects a vault database file from concurrent writers. Locks are host-local:
a kernel advisory lock provides the mutual exclusion, and a sibling
<database>.lock file records who holds it.`,
		Version:       fmt.Sprintf("%s (%s) built on %s", versionInfo.Version, versionInfo.Commit, versionInfo.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initialize(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file (default: user config dir)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.logFile, "log-file", "", "append the JSON log stream to this file")

	root.AddCommand(
		newStatusCmd(app),
		newUnlockCmd(app),
		newHoldCmd(app),
	)

	return root, app
}

// initialize loads configuration, applies flag overrides, and wires the
// logger and coordinator.
func (a *App) initialize(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := config.LoadFrom(flags.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = flags.debug
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	a.Config = cfg

	logger, cleanup, err := logging.New(logging.Options{
		Debug:   cfg.Debug,
		LogFile: cfg.LogFile,
		Console: a.Stderr,
	})
	if err != nil {
		return err
	}
	a.Logger = logger
	a.cleanup = cleanup

	a.Coordinator = lock.NewCoordinator(lock.Options{
		Application: cfg.Application,
		Version:     a.Version.Version,
		Logger:      logger,
	})

	return nil
}
