// Package proc answers "is PID N alive on this host". The check is advisory:
// it is consulted for stale-lock classification, never for mutual exclusion.
package proc

// Checker reports whether a process is alive on the local host. It is an
// interface so lock classification can be tested with a fake oracle.
type Checker interface {
	Alive(pid int) bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(pid int) bool

// Alive implements Checker.
func (f CheckerFunc) Alive(pid int) bool {
	return f(pid)
}

// Local returns the platform Checker for the running host.
func Local() Checker {
	return CheckerFunc(isProcessRunning)
}
