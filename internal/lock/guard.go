package lock

import (
	"sync"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/flock"
	"github.com/openvault/vaultlock/internal/lockfile"
)

// Guard is an owned, held lock. It is created exactly once per successful
// acquisition and moves through a terminal Acquired -> Released state
// machine; a new lock requires a new Acquire call.
type Guard struct {
	coord      *Coordinator
	dbPath     string
	recordPath string
	handle     *flock.Handle
	record     lockfile.Record

	mu       sync.Mutex
	released bool
}

// DatabasePath returns the canonical path of the locked database.
func (g *Guard) DatabasePath() string {
	return g.dbPath
}

// RecordPath returns the path of the lock metadata file this guard wrote.
func (g *Guard) RecordPath() string {
	return g.recordPath
}

// Record returns a copy of the lock record this guard wrote.
func (g *Guard) Record() lockfile.Record {
	return g.record
}

// Release gives up the lock. The record file is deleted before the advisory
// lock is released, so no third party ever observes "record absent, lock
// held by us" - that would wrongly read as Available while still locked. The
// reverse gap (record present, lock already gone) is exactly the stale
// shape every reader knows how to classify.
//
// A second Release fails with ErrAlreadyReleased. Silently ignoring it could
// mask a double release that unlocks a later guard for the same path.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return vlErrors.NewLockError(g.recordPath, g.record.PID, vlErrors.ErrAlreadyReleased)
	}
	g.released = true

	var errs []error

	// Best effort: an undeletable record must not keep the kernel lock held.
	if err := lockfile.Remove(g.recordPath); err != nil {
		errs = append(errs, err)
	}

	if err := g.handle.Release(); err != nil {
		errs = append(errs, err)
	}

	g.coord.forget(g.dbPath)

	if len(errs) > 0 {
		return vlErrors.Join(errs...)
	}
	return nil
}
