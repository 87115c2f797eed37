package ubic

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

const (
	stageEnv  = "_UBIC_STAGE"
	configEnv = "_UBIC_CONFIG"

	stageSetup    = "setup"
	stageGuardian = "guardian"
	stageWorker   = "worker"

	// handshakeFD is the file descriptor slot the handshake pipe's write
	// end lands on in every re-exec'd stage: os/exec always places
	// ExtraFiles contiguously starting at fd 3, after stdin/stdout/stderr.
	handshakeFD = 3
)

// Exact byte sequences external tooling greps for in handshake pipe
// output, per the wire contract.
const (
	markerPidfileWritten    = "pidfile written"
	markerExecingIntoDaemon = "xexecing into daemon"
)

// Reexec must be called at the very top of main() by any binary that
// calls Start, since every stage re-executes that same binary. It recognizes whether the current process
// is one of ubic's own re-exec'd stages (setup, guardian, or worker) and,
// if so, runs that stage to completion and exits — it never returns in
// that case. When the calling process is an ordinary invocation, Reexec
// returns false immediately without side effects.
func Reexec() bool {
	stage := os.Getenv(stageEnv)
	if stage == "" {
		return false
	}

	pipe := os.NewFile(handshakeFD, "ubic-handshake")
	cfg, err := readConfigFile(os.Getenv(configEnv))
	if err != nil {
		dieWithError(pipe, fmt.Errorf("reading config: %w", err))
	}

	switch stage {
	case stageSetup:
		runSetup(cfg, os.Getenv(configEnv), pipe)
	case stageGuardian:
		runGuardian(cfg, pipe)
	case stageWorker:
		runWorker(cfg, pipe)
	default:
		dieWithError(pipe, fmt.Errorf("unknown stage %q", stage))
	}

	// Every branch above exits the process; nothing reaches here.
	return true
}

func writeConfigTemp(cfg Config) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "ubic-config-*.json")
	if err != nil {
		return "", func() {}, fmt.Errorf("ubic: creating config temp file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(cfg); err != nil {
		os.Remove(f.Name())
		return "", func() {}, fmt.Errorf("ubic: writing config temp file: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func readConfigFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("missing %s", configEnv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// reexecSelf builds (but does not start) a command that re-execs the
// current binary into the given stage, carrying the config path by
// environment variable and the handshake pipe's write end as the sole
// extra file.
func reexecSelf(stage, configPath string, pipe *os.File, sysAttr *syscall.SysProcAttr) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("ubic: resolving own executable: %w", err)
	}
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), stageEnv+"="+stage, configEnv+"="+configPath)
	cmd.ExtraFiles = []*os.File{pipe}
	cmd.SysProcAttr = sysAttr
	return cmd, nil
}

func writeLine(f *os.File, s string) {
	if f == nil {
		return
	}
	fmt.Fprintln(f, s)
}

// dieWithError reports err on the handshake pipe and exits immediately
// without running deferred cleanup — descendants inherit arbitrary
// caller state whose shutdown hooks must never run twice.
func dieWithError(pipe *os.File, err error) {
	if pipe != nil {
		writeLine(pipe, "error: "+err.Error())
		pipe.Close()
	}
	os.Exit(1)
}

func runSetup(cfg Config, configPath string, pipe *os.File) {
	cmd, err := reexecSelf(stageGuardian, configPath, pipe, &syscall.SysProcAttr{})
	if err != nil {
		dieWithError(pipe, err)
	}
	if err := cmd.Start(); err != nil {
		dieWithError(pipe, fmt.Errorf("starting guardian: %w", err))
	}
	// Setup's job is done: it forked the guardian and must exit
	// immediately, without waiting, so the guardian is reparented to
	// pid 1 rather than staying a child of a process that might later
	// acquire a controlling terminal.
	pipe.Close()
	os.Exit(0)
}
