package ubic

import (
	"fmt"
	"sync"
)

// ExecTarget is the "run this binary" arm of Target.
type ExecTarget struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
}

// Target is a tagged union: exactly one of Exec or Callback must be set.
// Callback names a function registered with RegisterCallback in the same
// binary that will act as the worker — a re-exec can't serialize a Go
// closure, so the callback travels by name, looked up fresh in the
// worker process after it re-execs itself.
type Target struct {
	Exec     *ExecTarget `json:"exec,omitempty"`
	Callback string      `json:"callback,omitempty"`
}

func (t Target) validate() error {
	hasExec := t.Exec != nil && t.Exec.Path != ""
	hasCallback := t.Callback != ""
	switch {
	case hasExec && hasCallback:
		return precondition("target: exactly one of Exec or Callback must be set, got both")
	case !hasExec && !hasCallback:
		return precondition("target: exactly one of Exec or Callback must be set, got neither")
	}
	return nil
}

// Config describes a service to supervise. PidfilePath and Target are
// required; everything else has a documented default.
type Config struct {
	// Target is what the worker runs: a binary, or a registered callback.
	Target Target `json:"target"`

	// Name identifies the service in process titles and log lines.
	// Defaults to Target.Exec.Path, or "anonymous" for a callback target.
	Name string `json:"name,omitempty"`

	// PidfilePath is the lock + identity record. Required.
	PidfilePath string `json:"pidfile_path"`

	// StdoutPath and StderrPath are opened in append mode and dup'd onto
	// the worker's fd 1 and 2. Default to the null device.
	StdoutPath string `json:"stdout_path,omitempty"`
	StderrPath string `json:"stderr_path,omitempty"`

	// UbicLogPath is the guardian's own technical log, append mode,
	// line-flushed. Defaults to the null device.
	UbicLogPath string `json:"ubic_log_path,omitempty"`

	// RunAsUser, if set, is looked up and dropped into before the
	// worker is forked. An unresolvable user is fatal.
	RunAsUser string `json:"run_as_user,omitempty"`

	// GuardianGraceful opts into a soft-kill-then-hard-kill escalation
	// in the guardian's termination handler instead of an immediate
	// hard kill.
	GuardianGraceful bool `json:"guardian_graceful,omitempty"`

	// VerifyExecAfterStart opts into re-reading the worker's
	// /proc/<pid>/cmdline once the handshake succeeds, before Start
	// returns, and comparing its
	// basename against Target.Exec.Path, surfacing a mismatch as a
	// warning rather than an error.
	VerifyExecAfterStart bool `json:"verify_exec_after_start,omitempty"`
}

func (c Config) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Target.Exec != nil && c.Target.Exec.Path != "" {
		return c.Target.Exec.Path
	}
	return "anonymous"
}

const nullDevice = "/dev/null"

func (c Config) resolvedStdout() string {
	if c.StdoutPath != "" {
		return c.StdoutPath
	}
	return nullDevice
}

func (c Config) resolvedStderr() string {
	if c.StderrPath != "" {
		return c.StderrPath
	}
	return nullDevice
}

func (c Config) resolvedUbicLog() string {
	if c.UbicLogPath != "" {
		return c.UbicLogPath
	}
	return nullDevice
}

func (c Config) validate() error {
	if c.PidfilePath == "" {
		return precondition("pidfile path is required")
	}
	return c.Target.validate()
}

// Callback is a worker body run in-process instead of exec'd. It runs in
// the worker process, after that process has created its own process
// group and sent the handshake marker. A returning callback is treated
// exactly like a normal exit: the guardian observes it and cleans up.
type Callback func() error

var (
	registryMu sync.RWMutex
	registry   = map[string]Callback{}
)

// RegisterCallback makes fn reachable by name from a re-exec'd worker
// process. Call this during init (or otherwise before Start) in any
// binary that will supply a Target.Callback.
func RegisterCallback(name string, fn Callback) {
	if name == "" {
		panic("ubic: RegisterCallback requires a non-empty name")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

func lookupCallback(name string) (Callback, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("ubic: no callback registered under name %q", name)
	}
	return fn, nil
}
