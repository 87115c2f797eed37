package ubic

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/dayanruben/ubic/internal/proctitle"
)

// runWorker is the process that ultimately becomes the supervised
// service: either by replacing its own image with the target binary, or
// by invoking a registered in-process callback. It never returns.
func runWorker(cfg Config, pipe *os.File) {
	var callback Callback
	if cfg.Target.Callback != "" {
		fn, err := lookupCallback(cfg.Target.Callback)
		if err != nil {
			dieWithError(pipe, err)
		}
		callback = fn
	}

	// The process group was already established atomically at fork time
	// via SysProcAttr.Setpgid, avoiding the race window a post-fork
	// syscall.Setpgid(0, 0) call would have.
	if err := proctitle.Set("ubic-daemon " + cfg.displayName()); err != nil {
		fmt.Fprintf(os.Stderr, "ubic: warning: could not set process title: %v\n", err)
	}

	writeLine(pipe, markerExecingIntoDaemon)
	pipe.Close()

	if callback != nil {
		if err := callback(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	execTarget(cfg.Target.Exec)
}

// execTarget replaces the worker's image with the target binary. It never
// returns: if the binary can't be found or the exec fails, the worker
// exits with status 127. By that point the handshake has already
// succeeded, so a failure here
// is only ever visible to the guardian (as a nonzero exit) and not to
// the original caller of Start. The marker's presence proves the worker
// reached the exec call, not that the exec itself succeeded.
func execTarget(target *ExecTarget) {
	path, err := exec.LookPath(target.Path)
	if err != nil {
		os.Exit(127)
	}
	argv := append([]string{path}, target.Args...)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		os.Exit(127)
	}
}
