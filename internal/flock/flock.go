// Package flock wraps the OS-native exclusive file lock primitive behind a
// single non-blocking try/release contract. The kernel ties the lock to the
// open file descriptor, so process death releases it automatically - that
// property is what makes stale-lock recovery possible at all.
//
// Platform behavior lives in flock_unix.go and flock_windows.go; nothing in
// this file branches on the platform.
package flock

import (
	"os"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// Handle is an acquired exclusive advisory lock on a file. The lock lives as
// long as the underlying descriptor stays open.
type Handle struct {
	f    *os.File
	path string
}

// Path returns the locked file's path.
func (h *Handle) Path() string {
	return h.path
}

// TryAcquire attempts a non-blocking exclusive advisory lock on path. It
// never waits for another holder: contention is reported as ErrWouldBlock.
// The file must already exist; open failures are surfaced as ErrLockIO so
// callers never mistake them for contention.
func TryAcquire(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(vlErrors.ErrLockIO, err.Error()))
	}

	if err := lockExclusive(f); err != nil {
		_ = f.Close()
		if vlErrors.Is(err, vlErrors.ErrWouldBlock) {
			return nil, err
		}
		return nil, vlErrors.NewLockError(path, 0,
			vlErrors.Wrap(err, "failed to acquire advisory lock"))
	}

	return &Handle{f: f, path: path}, nil
}

// Release gives up the lock and closes the descriptor. Calling Release on an
// already-released handle is a programming error and fails loudly with
// ErrAlreadyReleased.
func (h *Handle) Release() error {
	if h.f == nil {
		return vlErrors.NewLockError(h.path, 0, vlErrors.ErrAlreadyReleased)
	}

	var err error
	if unlockErr := unlock(h.f); unlockErr != nil {
		err = vlErrors.NewLockError(h.path, 0,
			vlErrors.Wrap(unlockErr, "failed to release advisory lock"))
	}

	// Close regardless: the kernel drops the lock with the descriptor even
	// if the explicit unlock failed.
	if closeErr := h.f.Close(); closeErr != nil && err == nil {
		err = vlErrors.NewLockError(h.path, 0,
			vlErrors.Wrap(closeErr, "failed to close locked file"))
	}

	h.f = nil
	return err
}
