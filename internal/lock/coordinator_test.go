package lock

import (
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/flock"
	"github.com/openvault/vaultlock/internal/lockfile"
	"github.com/openvault/vaultlock/internal/proc"
)

func createTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vault.kdbx")
	require.NoError(t, os.WriteFile(path, []byte("vault contents"), 0600))
	return path
}

func newTestCoordinator(alive proc.Checker) *Coordinator {
	return NewCoordinator(Options{
		Application: "vaultlock-test",
		Version:     "0.0.0-test",
		Liveness:    alive,
	})
}

func alwaysAlive() proc.Checker {
	return proc.CheckerFunc(func(pid int) bool { return true })
}

func neverAlive() proc.Checker {
	return proc.CheckerFunc(func(pid int) bool { return false })
}

func TestAcquireWritesRecordAndRelease(t *testing.T) {
	dbPath := createTestDB(t)
	coord := NewCoordinator(Options{Application: "vaultlock-test", Version: "0.0.0-test"})

	guard, err := coord.Acquire(dbPath)
	require.NoError(t, err)
	require.NotNil(t, guard)

	rec, err := lockfile.Read(guard.RecordPath())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
	assert.Equal(t, "vaultlock-test", rec.Application)
	assert.Equal(t, "0.0.0-test", rec.Version)

	status, err := coord.Status(dbPath)
	require.NoError(t, err)
	assert.Equal(t, StateLockedByCurrentProcess, status.State)

	require.NoError(t, guard.Release())

	_, statErr := os.Stat(guard.RecordPath())
	assert.True(t, os.IsNotExist(statErr), "record must be gone after release")

	status, err = coord.Status(dbPath)
	require.NoError(t, err)
	assert.Equal(t, StateAvailable, status.State)
}

func TestAcquireReleaseReacquire(t *testing.T) {
	dbPath := createTestDB(t)
	coord := NewCoordinator(Options{})

	for i := 0; i < 3; i++ {
		guard, err := coord.Acquire(dbPath)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, guard.Release(), "iteration %d", i)
	}
}

func TestReentrantAcquireIsReportedNotGranted(t *testing.T) {
	dbPath := createTestDB(t)
	coord := NewCoordinator(Options{})

	guard, err := coord.Acquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = guard.Release() }()

	second, err := coord.Acquire(dbPath)
	require.Error(t, err)
	assert.Nil(t, second, "a re-entrant open must never produce a second guard")

	var contention *ContentionError
	require.True(t, vlErrors.As(err, &contention))
	assert.Equal(t, StateLockedByCurrentProcess, contention.Status.State)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrAlreadyOpen))
}

func TestAcquireSucceedsOverAbandonedRecord(t *testing.T) {
	// A record exists but nobody holds the advisory lock: the kernel attempt
	// comes first and simply wins, replacing the abandoned record.
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)
	require.NoError(t, lockfile.Write(recordPath, lockfile.Record{
		PID:         999999999,
		Application: "CrashedApp",
		Hostname:    "workstation-7",
		AcquiredAt:  time.Now().UTC(),
	}))

	coord := newTestCoordinator(neverAlive())

	guard, err := coord.Acquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = guard.Release() }()

	rec, err := lockfile.Read(recordPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID, "record must now describe us")
}

func TestAcquireContentionAgainstLiveHolder(t *testing.T) {
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)

	// Simulate a foreign live holder: hold the advisory lock out-of-band and
	// plant its record.
	handle, err := flock.TryAcquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = handle.Release() }()

	foreign := lockfile.Record{
		PID:         54321,
		Application: "passbook",
		Version:     "2.0.0",
		AcquiredAt:  time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
		Hostname:    localHostname(t),
	}
	require.NoError(t, lockfile.Write(recordPath, foreign))

	coord := newTestCoordinator(alwaysAlive())

	guard, err := coord.Acquire(dbPath)
	require.Error(t, err)
	assert.Nil(t, guard)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrLockContention))

	var contention *ContentionError
	require.True(t, vlErrors.As(err, &contention))
	assert.Equal(t, StateLockedByOtherProcess, contention.Status.State)
	require.NotNil(t, contention.Status.Info)
	assert.Equal(t, 54321, contention.Status.Info.PID)

	// Foreign metadata must survive the failed acquisition unchanged.
	onDisk, err := lockfile.Read(recordPath)
	require.NoError(t, err)
	assert.Equal(t, foreign, onDisk)
}

func TestAcquireContentionWithNoRecordReportsUnknownHolder(t *testing.T) {
	dbPath := createTestDB(t)

	handle, err := flock.TryAcquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = handle.Release() }()

	coord := newTestCoordinator(alwaysAlive())

	_, err = coord.Acquire(dbPath)
	require.Error(t, err)

	var contention *ContentionError
	require.True(t, vlErrors.As(err, &contention))
	assert.Equal(t, StateLockedByOtherProcess, contention.Status.State)
	assert.Nil(t, contention.Status.Info, "no identity may be fabricated")
}

func TestAcquireStaleRecordUnderHeldLockRetriesOnce(t *testing.T) {
	// The advisory lock is held, but the record names a dead PID. The
	// coordinator deletes the stale record and retries exactly once; the
	// retry also fails, so it surfaces contention instead of looping.
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)

	handle, err := flock.TryAcquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = handle.Release() }()

	require.NoError(t, lockfile.Write(recordPath, lockfile.Record{
		PID:      999999999,
		Hostname: localHostname(t),
	}))

	coord := newTestCoordinator(neverAlive())

	_, err = coord.Acquire(dbPath)
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrLockContention))

	// The stale record was removed during the bounded retry.
	_, statErr := os.Stat(recordPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireStaleRecordCleanupFailureReportsStaleLock(t *testing.T) {
	// The record is stale but cannot be deleted. The caller must learn both
	// that the lock is stale and that reclaiming it failed; plain contention
	// would hide the need for manual cleanup.
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced the same way on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not restrict root")
	}

	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)

	handle, err := flock.TryAcquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = handle.Release() }()

	require.NoError(t, lockfile.Write(recordPath, lockfile.Record{
		PID:      999999999,
		Hostname: localHostname(t),
	}))

	// Read-only directory: the record can still be read, not unlinked.
	dir := filepath.Dir(recordPath)
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })

	coord := newTestCoordinator(neverAlive())

	guard, err := coord.Acquire(dbPath)
	require.Error(t, err)
	assert.Nil(t, guard)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrStaleLock),
		"failed stale reclaim must surface as a stale lock, got %v", err)

	var contention *ContentionError
	require.True(t, vlErrors.As(err, &contention))
	assert.Equal(t, StateStaleLock, contention.Status.State)
	require.NotNil(t, contention.Status.Info)
	assert.Equal(t, 999999999, contention.Status.Info.PID)

	// The record survives for the operator to inspect and force-unlock.
	require.NoError(t, os.Chmod(dir, 0700))
	_, statErr := os.Stat(recordPath)
	assert.NoError(t, statErr)
}

func TestAcquireCorruptRecordIsIOErrorNotStale(t *testing.T) {
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)

	handle, err := flock.TryAcquire(dbPath)
	require.NoError(t, err)
	defer func() { _ = handle.Release() }()

	require.NoError(t, os.WriteFile(recordPath, []byte("{truncated"), 0600))

	coord := newTestCoordinator(neverAlive())

	_, err = coord.Acquire(dbPath)
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrLockIO),
		"corrupt record must surface as I/O failure, got %v", err)
	assert.False(t, vlErrors.Is(err, vlErrors.ErrLockContention))

	// The corrupt record must not have been "helpfully" cleaned up.
	_, statErr := os.Stat(recordPath)
	assert.NoError(t, statErr)
}

func TestAcquireMissingDatabaseIsIOError(t *testing.T) {
	coord := NewCoordinator(Options{})

	_, err := coord.Acquire(filepath.Join(t.TempDir(), "absent.kdbx"))
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrLockIO))
}

func TestStatusClassifications(t *testing.T) {
	host := localHostname(t)

	tests := map[string]struct {
		record *lockfile.Record
		alive  proc.Checker
		want   State
	}{
		"NoRecordIsAvailable": {
			record: nil,
			alive:  neverAlive(),
			want:   StateAvailable,
		},
		"DeadLocalHolderIsStale": {
			record: &lockfile.Record{PID: 999999999, Hostname: host},
			alive:  neverAlive(),
			want:   StateStaleLock,
		},
		"LiveLocalHolderIsOtherProcess": {
			record: &lockfile.Record{PID: 54321, Hostname: host},
			alive:  alwaysAlive(),
			want:   StateLockedByOtherProcess,
		},
		"ForeignHostIsOtherProcessEvenIfUncheckable": {
			record: &lockfile.Record{PID: 54321, Hostname: "some-other-host"},
			alive:  neverAlive(),
			want:   StateLockedByOtherProcess,
		},
		"OwnPidRecordIsCurrentProcess": {
			record: &lockfile.Record{PID: os.Getpid(), Hostname: host},
			alive:  neverAlive(),
			want:   StateLockedByCurrentProcess,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dbPath := createTestDB(t)
			if test.record != nil {
				require.NoError(t, lockfile.Write(lockfile.PathFor(dbPath), *test.record))
			}

			coord := newTestCoordinator(test.alive)

			status, err := coord.Status(dbPath)
			require.NoError(t, err)
			assert.Equal(t, test.want, status.State)
			if test.record != nil {
				require.NotNil(t, status.Info)
				assert.Equal(t, test.record.PID, status.Info.PID)
			}
		})
	}
}

func TestStatusNeverMutates(t *testing.T) {
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)
	stale := lockfile.Record{PID: 999999999, Hostname: localHostname(t)}
	require.NoError(t, lockfile.Write(recordPath, stale))

	coord := newTestCoordinator(neverAlive())

	status, err := coord.Status(dbPath)
	require.NoError(t, err)
	assert.Equal(t, StateStaleLock, status.State)

	// Even a stale record stays on disk; only Acquire cleans up.
	onDisk, err := lockfile.Read(recordPath)
	require.NoError(t, err)
	assert.Equal(t, stale.PID, onDisk.PID)
}

func TestStatusCorruptRecordIsIOError(t *testing.T) {
	dbPath := createTestDB(t)
	require.NoError(t, os.WriteFile(lockfile.PathFor(dbPath), []byte("not json"), 0600))

	coord := newTestCoordinator(neverAlive())

	_, err := coord.Status(dbPath)
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrLockIO))
}

func TestForceUnlockRemovesRecord(t *testing.T) {
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)
	require.NoError(t, lockfile.Write(recordPath, lockfile.Record{
		PID:      999999999,
		Hostname: localHostname(t),
	}))

	coord := newTestCoordinator(neverAlive())

	require.NoError(t, coord.ForceUnlock(dbPath))

	_, statErr := os.Stat(recordPath)
	assert.True(t, os.IsNotExist(statErr))

	// Recovery complete: a fresh acquire must now succeed.
	guard, err := coord.Acquire(dbPath)
	require.NoError(t, err)
	require.NoError(t, guard.Release())
}

func TestForceUnlockIsIdempotent(t *testing.T) {
	dbPath := createTestDB(t)
	coord := newTestCoordinator(neverAlive())

	require.NoError(t, coord.ForceUnlock(dbPath))
	require.NoError(t, coord.ForceUnlock(dbPath))
}

func TestForceUnlockAgainstLiveHolderStillRemoves(t *testing.T) {
	// Deliberately destructive: the coordinator warns but does not prevent.
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)
	require.NoError(t, lockfile.Write(recordPath, lockfile.Record{
		PID:      54321,
		Hostname: localHostname(t),
	}))

	coord := newTestCoordinator(alwaysAlive())

	require.NoError(t, coord.ForceUnlock(dbPath))

	_, statErr := os.Stat(recordPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestForceUnlockRemovesCorruptRecord(t *testing.T) {
	dbPath := createTestDB(t)
	recordPath := lockfile.PathFor(dbPath)
	require.NoError(t, os.WriteFile(recordPath, []byte("garbage"), 0600))

	coord := newTestCoordinator(neverAlive())

	require.NoError(t, coord.ForceUnlock(dbPath))

	_, statErr := os.Stat(recordPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConcurrentAcquiresNeverBothSucceed(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	dbPath := createTestDB(t)
	coord := NewCoordinator(Options{})

	const goroutines = 5

	// holders counts guards alive right now; maxHolders records the largest
	// overlap any winner ever observed. Two coexisting guards would push it
	// to 2.
	var holders, maxHolders atomic.Int32
	done := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			guard, err := coord.Acquire(dbPath)
			if err != nil {
				// Losing the race is the expected outcome for most
				// goroutines; only I/O failures are test failures.
				if !vlErrors.Is(err, vlErrors.ErrAlreadyOpen) && !vlErrors.Is(err, vlErrors.ErrLockContention) {
					t.Errorf("unexpected acquire error: %v", err)
				}
				done <- false
				return
			}

			now := holders.Add(1)
			for {
				max := maxHolders.Load()
				if now <= max || maxHolders.CompareAndSwap(max, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			holders.Add(-1)

			if err := guard.Release(); err != nil {
				t.Errorf("release failed: %v", err)
			}
			done <- true
		}()
	}

	successes := 0
	for i := 0; i < goroutines; i++ {
		if <-done {
			successes++
		}
	}

	assert.GreaterOrEqual(t, successes, 1, "at least one goroutine must win the lock")
	assert.EqualValues(t, 1, maxHolders.Load(), "two guards were held at the same time")
}

func localHostname(t *testing.T) string {
	t.Helper()

	hostname, err := os.Hostname()
	require.NoError(t, err)
	return hostname
}
