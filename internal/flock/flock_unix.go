//go:build unix

package flock

import (
	"os"

	"golang.org/x/sys/unix"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// lockExclusive acquires an exclusive non-blocking advisory lock via
// flock(2). LOCK_NB makes a held lock fail immediately instead of blocking.
func lockExclusive(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		// Hedging bets here and checking either EWOULDBLOCK or EAGAIN,
		// Per GNU docs ...
		//     Portability Note: In many older Unix systems ...
		//     [EWOULDBLOCK was] a distinct error code different from EAGAIN.
		//     To make your program portable, you should check for both codes
		//     and treat them the same.
		// Ref: https://www.gnu.org/savannah-checkouts/gnu/libc/manual/html_node/Error-Codes.html
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return vlErrors.ErrWouldBlock
		}
		return err
	}
	return nil
}

// unlock releases the advisory flock. The lock is also implicitly released
// when the descriptor is closed.
func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
