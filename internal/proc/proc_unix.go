//go:build unix

package proc

import (
	"os"

	"golang.org/x/sys/unix"
)

// isProcessRunning checks if a process exists using signal 0. The signal is
// never delivered; the kernel only validates that the target exists. EPERM
// means the process exists but belongs to another user, which still counts
// as alive for lock purposes.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(unix.Signal(0))
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
