//go:build windows

package proc

import (
	"golang.org/x/sys/windows"
)

// isProcessRunning checks if a process exists by opening it with the minimal
// query right. A handle that opens but reports a non-STILL_ACTIVE exit code
// is a zombie left for its parent to reap, not a live holder.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer func() { _ = windows.CloseHandle(handle) }()

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	return exitCode == windows.STILL_ACTIVE
}
