// Package lock arbitrates exclusive access to a vault database file across
// processes on one host.
//
// Two independent sources of truth are reconciled: a kernel advisory lock on
// the database file (the real mutual-exclusion primitive, released
// automatically when the holder dies) and a sibling lock metadata file (the
// only channel through which "who holds it" and "is it stale" can be
// answered). They can disagree after a crash; the coordinator's protocol
// resolves the disagreement instead of guessing.
//
// # Core Components
//
// - Coordinator: owns the acquire/status/force-unlock protocol
// - Guard: the owned handle returned on successful acquisition
// - Status: classified lock state for a database path
// - Classify: the stale-lock decision function
//
// # Usage
//
// Basic usage pattern:
//
//	coord := lock.NewCoordinator(lock.Options{
//	    Application: "vaultlock",
//	    Version:     "1.0.0",
//	})
//
//	guard, err := coord.Acquire("/vaults/personal.kdbx")
//	if err != nil {
//	    var contention *lock.ContentionError
//	    if errors.As(err, &contention) {
//	        // Another holder; contention.Status says who.
//	    }
//	    // Otherwise an I/O failure - never silently "available".
//	}
//
//	// Use the database exclusively
//	// ...
//
//	defer guard.Release()
//
// # Protocol
//
// Acquire attempts the advisory lock first. On success it writes the lock
// record atomically and returns a Guard. On contention it reads the existing
// record, classifies it (current process / other live process / stale), and
// for a stale record deletes it and retries the advisory lock exactly once.
// The retry is bounded to avoid livelock against a holder that has not yet
// written its record.
//
// # Thread Safety
//
// The Coordinator is safe for concurrent use. At most one Guard can exist
// per database path process-wide: a held path is tracked in an internal
// table, and the kernel refuses a second advisory lock in any case.
//
// # Limitations
//
// Locks are host-local, keyed by hostname and PID. Network filesystems with
// weak advisory-lock semantics (NFS, SMB) are not hardened against, and
// nothing prevents an out-of-band delete of the lock metadata file.
package lock
