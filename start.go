package ubic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dayanruben/ubic/internal/pidfile"
)

// StartResult carries the handshake text and any non-fatal warnings from
// a successful Start.
type StartResult struct {
	// Raw is everything written to the handshake pipe by the setup,
	// guardian, and worker processes, in arrival order.
	Raw string
	// Warnings holds VerifyExecAfterStart findings; empty unless that
	// option is set and a mismatch was found.
	Warnings []string
}

// Start launches cfg as a supervised background service. It returns once
// the handshake confirms the guardian is up, the pidfile is written, and
// the worker has begun (or failed to begin, in which case the returned
// error carries everything the fork chain reported).
func Start(cfg Config) (*StartResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	running, err := Check(cfg.PidfilePath)
	if err != nil {
		return nil, fmt.Errorf("ubic: checking existing state: %w", err)
	}
	if running {
		return nil, precondition("ubic: daemon already running (pidfile %s)", cfg.PidfilePath)
	}

	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("ubic: creating handshake pipe: %w", err)
	}

	configPath, cleanup, err := writeConfigTemp(cfg)
	if err != nil {
		pipeR.Close()
		pipeW.Close()
		return nil, err
	}
	defer cleanup()

	cmd, err := reexecSelf(stageSetup, configPath, pipeW, &syscall.SysProcAttr{})
	if err != nil {
		pipeR.Close()
		pipeW.Close()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		pipeR.Close()
		pipeW.Close()
		return nil, fmt.Errorf("ubic: starting setup process: %w", err)
	}

	// We hold the read end only; our copy of the write end must close
	// now or the pipe will never report EOF, since setup/guardian/worker
	// each hold their own copy and close it independently.
	pipeW.Close()

	// Setup exits almost instantly; its exit status isn't meaningful on
	// its own (failures are reported via the pipe), so we only use Wait
	// to reap it.
	_ = cmd.Wait()

	output, _ := io.ReadAll(pipeR)
	pipeR.Close()
	text := string(output)

	if !strings.Contains(text, markerPidfileWritten) || !strings.Contains(text, markerExecingIntoDaemon) {
		return nil, fmt.Errorf("ubic: start failed: %s", strings.TrimSpace(text))
	}

	result := &StartResult{Raw: text}
	if cfg.VerifyExecAfterStart && cfg.Target.Exec != nil {
		result.Warnings = verifyExecAfterStart(cfg)
	}
	return result, nil
}

// verifyExecAfterStart is a weak, opt-in sanity check that the worker
// actually executed the requested binary, by re-reading its command
// line after the fact. It can't prove success — only flag an obvious
// mismatch.
func verifyExecAfterStart(cfg Config) []string {
	rec, kind, err := pidfile.Read(cfg.PidfilePath)
	if err != nil || kind != pidfile.KindCurrent || !rec.HasWorkerPID {
		return []string{"could not read pidfile to verify exec target"}
	}

	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", rec.WorkerPID))
	if err != nil {
		return []string{fmt.Sprintf("could not read /proc/%d/cmdline: %v", rec.WorkerPID, err)}
	}
	parts := strings.Split(strings.TrimRight(string(cmdline), "\x00"), "\x00")
	if len(parts) == 0 || parts[0] == "" {
		return []string{"worker cmdline is empty; cannot verify exec target"}
	}

	got := filepath.Base(parts[0])
	want := filepath.Base(cfg.Target.Exec.Path)
	if got != want {
		return []string{fmt.Sprintf("worker pid %d is running %q, expected %q", rec.WorkerPID, got, want)}
	}
	return nil
}

func signalProcess(pid int, sig os.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
