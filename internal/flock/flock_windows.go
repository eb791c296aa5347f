//go:build windows

package flock

import (
	"os"

	"golang.org/x/sys/windows"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// lockExclusive acquires an exclusive lock via LockFileEx. The
// LOCKFILE_FAIL_IMMEDIATELY flag mirrors the non-blocking behavior of LOCK_NB
// on Unix. Only the first byte is locked (length 1, offset 0) since the lock
// exists purely for mutual exclusion, not data protection.
func lockExclusive(f *os.File) error {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1, 0,
		ol,
	)
	if err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return vlErrors.ErrWouldBlock
		}
		return err
	}
	return nil
}

// unlock releases the lock held via LockFileEx. The lock is also implicitly
// released when the handle is closed.
func unlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(
		windows.Handle(f.Fd()),
		0,
		1, 0,
		ol,
	)
}
