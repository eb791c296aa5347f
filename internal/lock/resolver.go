package lock

import (
	"github.com/openvault/vaultlock/internal/lockfile"
	"github.com/openvault/vaultlock/internal/proc"
)

// Classification is the resolver's verdict on a pre-existing lock record.
type Classification int

const (
	// ClassOtherProcess means some other process plausibly holds the lock.
	ClassOtherProcess Classification = iota

	// ClassCurrentProcess means the record names the querying process itself.
	ClassCurrentProcess

	// ClassStale means the recorded holder is dead on this host.
	ClassStale
)

// Classify decides what a pre-existing lock record means for the caller.
//
// Precedence is fixed: a hostname mismatch always reports other-process,
// since liveness cannot be checked cross-host and assuming staleness there
// risks two writers. Identity is checked before liveness - the other order
// would misreport a re-entrant open as stale or live-other.
func Classify(rec lockfile.Record, localPID int, localHostname string, alive proc.Checker) Classification {
	if rec.Hostname != localHostname {
		return ClassOtherProcess
	}

	if rec.PID == localPID {
		return ClassCurrentProcess
	}

	if alive.Alive(rec.PID) {
		return ClassOtherProcess
	}
	return ClassStale
}
