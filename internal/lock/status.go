package lock

import (
	"encoding/json"
	"fmt"

	"github.com/openvault/vaultlock/internal/lockfile"
)

// State enumerates the possible lock states for a database path.
type State int

const (
	// StateAvailable means no record and no held advisory lock.
	StateAvailable State = iota

	// StateLockedByCurrentProcess means the querying process already holds
	// the lock (re-entrant open).
	StateLockedByCurrentProcess

	// StateLockedByOtherProcess means the lock is held and the recorded
	// holder is verified alive (or unverifiable, e.g. on another host).
	StateLockedByOtherProcess

	// StateStaleLock means a record exists but its holder is not alive on
	// this host, or the advisory lock was obtainable despite a record.
	StateStaleLock
)

// String returns the wire name of the state, matching the camelCase tags the
// IPC layer serializes.
func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateLockedByCurrentProcess:
		return "lockedByCurrentProcess"
	case StateLockedByOtherProcess:
		return "lockedByOtherProcess"
	case StateStaleLock:
		return "staleLock"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Status is the classified lock state for a database path. Info is present
// for the states that name a holder; it is the record's fields verbatim
// so users can judge staleness themselves (clock skew, hostname) even when
// the resolver classified the holder as live.
type Status struct {
	State State
	Info  *lockfile.Record
}

// MarshalJSON serializes the status in the tagged form consumed by the UI:
//
//	{"status":"lockedByOtherProcess","info":{...}}
func (s Status) MarshalJSON() ([]byte, error) {
	out := struct {
		Status string           `json:"status"`
		Info   *lockfile.Record `json:"info,omitempty"`
	}{
		Status: s.State.String(),
		Info:   s.Info,
	}
	return json.Marshal(out)
}

// String renders the status for log and CLI output.
func (s Status) String() string {
	if s.Info != nil {
		return fmt.Sprintf("%s: %s", s.State, s.Info)
	}
	return s.State.String()
}
