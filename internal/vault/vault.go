// Package vault is the application-facing surface for opening vault
// databases under lock. It composes the lock coordinator with the external
// encrypted-container format library; the format library is a black box and
// is never invoked for a database whose lock could not be claimed.
package vault

import (
	"github.com/rs/zerolog"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/lock"
)

// Credentials unlock the container itself. They are passed through to the
// format library untouched; key handling is not this layer's concern.
type Credentials struct {
	Password string
	KeyFile  string
}

// Database is an open container handle owned by the format library.
type Database interface {
	// Save flushes pending changes to disk.
	Save() error

	// Close flushes and closes the container.
	Close() error
}

// Format is the external encrypted-container library.
type Format interface {
	// Open parses and decrypts the database at path.
	Open(path string, creds Credentials) (Database, error)
}

// Handle pairs an open database with the lock guard held for it. The guard
// lives exactly as long as the handle: Close releases both.
type Handle struct {
	db    Database
	guard *lock.Guard
}

// Database returns the open container.
func (h *Handle) Database() Database {
	return h.db
}

// Path returns the canonical database path.
func (h *Handle) Path() string {
	return h.guard.DatabasePath()
}

// Manager exposes the typed operations the surrounding application consumes:
// open-with-lock, close, lock status, force unlock.
type Manager struct {
	coord  *lock.Coordinator
	format Format
	logger zerolog.Logger
}

// NewManager creates a Manager around the given coordinator and format library.
func NewManager(coord *lock.Coordinator, format Format, logger zerolog.Logger) *Manager {
	return &Manager{
		coord:  coord,
		format: format,
		logger: logger.With().Str("component", "vault").Logger(),
	}
}

// OpenWithLock claims exclusive access to the database at path and only then
// asks the format library to open it. On lock failure the error is the lock
// layer's (contention or I/O) and the format library is never called; on
// format failure the lock is released before the error is returned.
func (m *Manager) OpenWithLock(path string, creds Credentials) (*Handle, error) {
	guard, err := m.coord.Acquire(path)
	if err != nil {
		return nil, err
	}

	db, err := m.format.Open(guard.DatabasePath(), creds)
	if err != nil {
		formatErr := vlErrors.NewFormatError("open", guard.DatabasePath(), err)
		if releaseErr := guard.Release(); releaseErr != nil {
			m.logger.Error().Err(releaseErr).Str("db", guard.DatabasePath()).
				Msg("failed to release lock after format open failure")
			return nil, vlErrors.Join(formatErr, releaseErr)
		}
		return nil, formatErr
	}

	m.logger.Info().Str("db", guard.DatabasePath()).Msg("database opened under lock")
	return &Handle{db: db, guard: guard}, nil
}

// Close releases the handle's lock guard, then delegates to the format
// library's close. Both are attempted even if the first fails.
func (m *Manager) Close(h *Handle) error {
	var errs []error

	if err := h.guard.Release(); err != nil {
		errs = append(errs, err)
	}

	if err := h.db.Close(); err != nil {
		errs = append(errs, vlErrors.NewFormatError("close", h.guard.DatabasePath(), err))
	}

	if len(errs) > 0 {
		return vlErrors.Join(errs...)
	}

	m.logger.Info().Str("db", h.guard.DatabasePath()).Msg("database closed and lock released")
	return nil
}

// CheckLockStatus reports the lock state for path. Read-only and callable
// without credentials.
func (m *Manager) CheckLockStatus(path string) (lock.Status, error) {
	return m.coord.Status(path)
}

// ForceUnlock removes the lock record for path. Destructive recovery; see
// the coordinator's documentation for the warnings that apply.
func (m *Manager) ForceUnlock(path string) error {
	return m.coord.ForceUnlock(path)
}
