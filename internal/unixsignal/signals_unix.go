//go:build !windows

// Package unixsignal names the signals the guardian and the stop loop
// agree on, kept separate from the engine so the signal set has one
// obvious place to read and change.
package unixsignal

import (
	"os"
	"syscall"
)

// Terminate is the polite signal stop() sends to the guardian's
// controller PID. The guardian's handler runs the worker teardown in
// 4.3.4; it sends this signal on to the worker's process group only when
// graceful termination is enabled, and otherwise goes straight to HardKill.
const Terminate = syscall.SIGTERM

// HardKill is what the guardian sends to the negative of the worker PID
// (its whole process group) once it decides the worker must die now.
const HardKill = syscall.SIGKILL

// Hangup is ignored by the guardian: once double-forked and detached,
// terminal hangups are routine and must not be treated as a shutdown
// request.
const Hangup = syscall.SIGHUP

// GuardianSignals is what the guardian's signal.Notify channel watches.
func GuardianSignals() []os.Signal {
	return []os.Signal{Terminate}
}

// IsAlive reports whether pid refers to a process the caller can still
// signal — sending signal 0 performs no action beyond existence and
// permission checks.
func IsAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
