// Package logging builds the application logger. Lock protocol decisions are
// worth a durable trail - a force unlock against a live holder is evidence
// the user will want later - so the logger can tee to a file in addition to
// the console.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// Options configures the application logger.
type Options struct {
	// Debug lowers the level from info to debug.
	Debug bool

	// LogFile, when set, receives the full JSON log stream in addition to
	// the console output.
	LogFile string

	// Console is where human-readable output goes. Defaults to stderr.
	Console io.Writer
}

// New builds the logger. The returned cleanup closes the log file, if any,
// and is safe to call exactly once.
func New(opts Options) (zerolog.Logger, func() error, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05"}

	var writer io.Writer = console
	cleanup := func() error { return nil }

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), nil, vlErrors.NewConfigError("logFile", opts.LogFile,
				vlErrors.Wrap(err, "failed to open log file"))
		}
		writer = zerolog.MultiLevelWriter(console, f)
		cleanup = f.Close
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("service", "vaultlock").
		Logger()

	return logger, cleanup, nil
}
