// Package lockfile reads and writes the lock metadata file that sits next to
// a vault database. The record names the lock holder (PID, hostname, time of
// acquisition) so other processes can decide whether a lock is live or stale.
// The record is not the source of truth for mutual exclusion - the kernel
// advisory lock is - it is the channel through which "who" can be answered.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// Suffix appended to a database file name to derive its lock metadata path.
const Suffix = ".lock"

// Record describes who holds the lock for a database file. It is persisted as
// JSON with camelCase keys; unknown keys are ignored on read so newer
// versions may add fields without breaking older readers.
type Record struct {
	// PID is the process id of the lock owner at acquisition time.
	PID int `json:"pid"`

	// Application is the name of the program holding the lock. Diagnostic only.
	Application string `json:"application"`

	// Version is the application version. Diagnostic only.
	Version string `json:"version"`

	// AcquiredAt is the wall-clock acquisition time. Diagnostic only.
	AcquiredAt time.Time `json:"openedAt"`

	// Hostname identifies the machine, since PIDs are only unique per host.
	Hostname string `json:"hostname"`
}

// ForCurrentProcess builds a Record describing the calling process.
func ForCurrentProcess(application, version string) Record {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return Record{
		PID:         os.Getpid(),
		Application: application,
		Version:     version,
		AcquiredAt:  time.Now().UTC(),
		Hostname:    hostname,
	}
}

// String renders the record the way it is shown to users deciding whether to
// wait for or override a lock.
func (r Record) String() string {
	return fmt.Sprintf("%s (PID: %d) on %s since %s",
		r.Application, r.PID, r.Hostname, r.AcquiredAt.Format(time.RFC3339))
}

// PathFor derives the lock metadata path for a database path. The lock file
// is a sibling of the database so both live on the same filesystem:
// /path/to/vault.kdbx -> /path/to/vault.kdbx.lock
func PathFor(dbPath string) string {
	dir := filepath.Dir(dbPath)
	name := filepath.Base(dbPath)
	return filepath.Join(dir, name+Suffix)
}

// Read loads and parses the record at path.
//
// A missing file is reported via os.IsNotExist on the wrapped error; callers
// treat that as "no lock". An unreadable or unparseable file is an ErrLockIO,
// never silently interpreted as stale or available - doing so could grant a
// lock that is actually held.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, err
		}
		return Record{}, vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(vlErrors.ErrLockIO, fmt.Sprintf("invalid lock file format: %v", err)))
	}

	return rec, nil
}

// Write persists the record at path atomically. The record is written to a
// unique temporary sibling and renamed over the target, so a concurrent
// reader observes either no file, the previous record, or the new record -
// never a partial write.
func Write(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return vlErrors.NewLockError(path, rec.PID,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return vlErrors.NewLockError(path, rec.PID,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}

	return nil
}

// Remove deletes the record at path. Absence is not an error, which makes
// force-unlock idempotent.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}
	return nil
}
