package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/flock"
	"github.com/openvault/vaultlock/internal/lockfile"
	"github.com/openvault/vaultlock/internal/proc"
)

// ContentionError reports a failed acquisition caused by an existing holder,
// as opposed to an I/O failure. Status carries the classified state and the
// holder's record when one could be read.
type ContentionError struct {
	Status Status
}

// Error implements the error interface.
func (e *ContentionError) Error() string {
	switch e.Status.State {
	case StateLockedByCurrentProcess:
		return vlErrors.ErrAlreadyOpen.Error()
	case StateStaleLock:
		if e.Status.Info != nil {
			return fmt.Sprintf("%s: %s", vlErrors.ErrStaleLock, e.Status.Info)
		}
		return vlErrors.ErrStaleLock.Error()
	default:
		if e.Status.Info != nil {
			return fmt.Sprintf("%s: held by %s", vlErrors.ErrLockContention, e.Status.Info)
		}
		return e.Status.State.String() + ": " + vlErrors.ErrLockContention.Error()
	}
}

// Unwrap maps the contention state onto the package sentinels so callers can
// use errors.Is without inspecting Status.
func (e *ContentionError) Unwrap() error {
	switch e.Status.State {
	case StateLockedByCurrentProcess:
		return vlErrors.ErrAlreadyOpen
	case StateStaleLock:
		return vlErrors.ErrStaleLock
	default:
		return vlErrors.ErrLockContention
	}
}

// Options configures a Coordinator. Zero values get sensible defaults.
type Options struct {
	// Application and Version are recorded in lock files for diagnostics.
	Application string
	Version     string

	// Liveness answers whether a recorded PID is alive. Defaults to the
	// platform process probe; tests inject fakes.
	Liveness proc.Checker

	// Logger receives protocol decisions (stale cleanup, force unlock).
	Logger zerolog.Logger
}

// Coordinator owns the lock acquisition protocol for database paths. It
// reconciles the kernel advisory lock with the lock metadata record and
// tracks guards held by this process so re-entrant opens are detected with a
// table lookup instead of a filesystem round-trip.
type Coordinator struct {
	application string
	version     string
	pid         int
	hostname    string
	alive       proc.Checker
	logger      zerolog.Logger

	mu   sync.Mutex
	held map[string]*Guard // keyed by canonical database path
}

// NewCoordinator creates a Coordinator for the current process.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Application == "" {
		opts.Application = "vaultlock"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Liveness == nil {
		opts.Liveness = proc.Local()
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Coordinator{
		application: opts.Application,
		version:     opts.Version,
		pid:         os.Getpid(),
		hostname:    hostname,
		alive:       opts.Liveness,
		logger:      opts.Logger.With().Str("component", "lock").Logger(),
		held:        map[string]*Guard{},
	}
}

// Acquire claims exclusive access to the database at path.
//
// On success the returned Guard owns the advisory lock and the lock record;
// releasing it is the only sanctioned way to give the lock up. On contention
// the error is a *ContentionError whose Status says who holds the lock. All
// other errors are I/O failures and must not be read as "available".
func (c *Coordinator) Acquire(path string) (*Guard, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if g, ok := c.held[canon]; ok {
		c.mu.Unlock()
		rec := g.Record()
		return nil, &ContentionError{Status: Status{State: StateLockedByCurrentProcess, Info: &rec}}
	}
	c.mu.Unlock()

	recordPath := lockfile.PathFor(canon)

	guard, err := c.tryOnce(canon, recordPath)
	if err == nil {
		return guard, nil
	}
	if !vlErrors.Is(err, vlErrors.ErrWouldBlock) {
		return nil, err
	}

	// The kernel said no. The record, if present, tells us who to blame.
	rec, readErr := lockfile.Read(recordPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			// Locked but no record: the holder has not written its record
			// yet, or the backend holds locks we cannot attribute. Report
			// contention without fabricating an identity.
			return nil, &ContentionError{Status: Status{State: StateLockedByOtherProcess}}
		}
		return nil, readErr
	}

	switch Classify(rec, c.pid, c.hostname, c.alive) {
	case ClassCurrentProcess:
		return nil, &ContentionError{Status: Status{State: StateLockedByCurrentProcess, Info: &rec}}

	case ClassOtherProcess:
		return nil, &ContentionError{Status: Status{State: StateLockedByOtherProcess, Info: &rec}}

	case ClassStale:
		return c.reclaimStale(canon, recordPath, rec)

	default:
		return nil, &ContentionError{Status: Status{State: StateLockedByOtherProcess, Info: &rec}}
	}
}

// reclaimStale removes a stale record and retries the acquisition exactly
// once. The retry is bounded: losing the race again means some live process
// grabbed the lock between our cleanup and retry, and looping against it
// would be a livelock.
func (c *Coordinator) reclaimStale(canon, recordPath string, stale lockfile.Record) (*Guard, error) {
	c.logger.Info().
		Str("db", canon).
		Int("stalePid", stale.PID).
		Str("staleHost", stale.Hostname).
		Msg("removing stale lock record")

	if err := lockfile.Remove(recordPath); err != nil {
		// Stale but unreclaimable. Surface both facts: the stale status for
		// callers that inspect it, and the removal failure for the operator
		// who has to clear the record by hand.
		return nil, vlErrors.Join(
			&ContentionError{Status: Status{State: StateStaleLock, Info: &stale}},
			err,
		)
	}

	guard, err := c.tryOnce(canon, recordPath)
	if err == nil {
		return guard, nil
	}
	if !vlErrors.Is(err, vlErrors.ErrWouldBlock) {
		return nil, err
	}

	// Still locked after cleanup: a live holder beat us to it. Re-read its
	// record for the report, then give up rather than loop.
	rec, readErr := lockfile.Read(recordPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, &ContentionError{Status: Status{State: StateLockedByOtherProcess}}
		}
		return nil, readErr
	}
	return nil, &ContentionError{Status: Status{State: StateLockedByOtherProcess, Info: &rec}}
}

// tryOnce performs one advisory-lock attempt and, on success, writes the
// record and registers a Guard. The record is written only after the kernel
// lock is confirmed held.
func (c *Coordinator) tryOnce(canon, recordPath string) (*Guard, error) {
	handle, err := flock.TryAcquire(canon)
	if err != nil {
		return nil, err
	}

	rec := lockfile.ForCurrentProcess(c.application, c.version)
	if err := lockfile.Write(recordPath, rec); err != nil {
		if releaseErr := handle.Release(); releaseErr != nil {
			return nil, vlErrors.Join(err, releaseErr)
		}
		return nil, err
	}

	guard := &Guard{
		coord:      c,
		dbPath:     canon,
		recordPath: recordPath,
		handle:     handle,
		record:     rec,
	}

	c.mu.Lock()
	c.held[canon] = guard
	c.mu.Unlock()

	c.logger.Debug().Str("db", canon).Int("pid", rec.PID).Msg("lock acquired")
	return guard, nil
}

// Status reports the lock state for path without acquiring or mutating
// anything. The UI uses it to preview lock state before committing to open.
//
// With no record on disk the path is reported Available; the advisory lock
// is not probed, since probing would itself be an acquisition.
func (c *Coordinator) Status(path string) (Status, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return Status{}, err
	}

	c.mu.Lock()
	if g, ok := c.held[canon]; ok {
		c.mu.Unlock()
		rec := g.Record()
		return Status{State: StateLockedByCurrentProcess, Info: &rec}, nil
	}
	c.mu.Unlock()

	rec, err := lockfile.Read(lockfile.PathFor(canon))
	if err != nil {
		if os.IsNotExist(err) {
			return Status{State: StateAvailable}, nil
		}
		return Status{}, err
	}

	switch Classify(rec, c.pid, c.hostname, c.alive) {
	case ClassCurrentProcess:
		return Status{State: StateLockedByCurrentProcess, Info: &rec}, nil
	case ClassStale:
		return Status{State: StateStaleLock, Info: &rec}, nil
	default:
		return Status{State: StateLockedByOtherProcess, Info: &rec}, nil
	}
}

// ForceUnlock unconditionally deletes the lock record for path. It cannot
// revoke another process's in-kernel advisory lock; it exists so a user who
// has independently confirmed the holder is gone can recover. Doing this
// against a live holder risks two writers, so it is logged loudly, not
// prevented - the caller chose this. Idempotent when no record exists.
func (c *Coordinator) ForceUnlock(path string) error {
	canon, err := canonicalPath(path)
	if err != nil {
		return err
	}
	recordPath := lockfile.PathFor(canon)

	rec, readErr := lockfile.Read(recordPath)
	switch {
	case readErr == nil:
		if Classify(rec, c.pid, c.hostname, c.alive) != ClassStale {
			c.logger.Warn().
				Str("db", canon).
				Int("holderPid", rec.PID).
				Str("holderHost", rec.Hostname).
				Msg("force unlock against a holder that looks alive; data corruption is possible")
		}
	case os.IsNotExist(readErr):
		return nil
	default:
		// Unreadable record: force unlock is exactly the recovery for this,
		// so log and delete anyway.
		c.logger.Warn().Str("db", canon).Err(readErr).Msg("force unlock of unreadable lock record")
	}

	if err := lockfile.Remove(recordPath); err != nil {
		return err
	}
	c.logger.Info().Str("db", canon).Msg("lock record force removed")
	return nil
}

// forget drops a released guard from the held table.
func (c *Coordinator) forget(canon string) {
	c.mu.Lock()
	delete(c.held, canon)
	c.mu.Unlock()
}

// canonicalPath resolves path so the held table and the kernel agree on
// identity even when callers mix relative paths and symlinks.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// Target may not exist yet; the open in flock.TryAcquire reports that.
	return abs, nil
}
