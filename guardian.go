package ubic

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/dayanruben/ubic/internal/pidfile"
	"github.com/dayanruben/ubic/internal/procident"
	"github.com/dayanruben/ubic/internal/proctitle"
	"github.com/dayanruben/ubic/internal/unixsignal"
)

// guardianLock holds the pidfile's advisory lock for the guardian's
// entire life. It must stay reachable from a package-level var: the
// *flock.Flock wraps an *os.File, and an *os.File carries a finalizer
// that closes (and thus unlocks) its fd once nothing references it
// anymore. A local variable whose last use is an assignment to _ is
// GC-eligible, and the finalizer can run while the guardian still
// believes it holds the lock in its select loop below.
var guardianLock *flock.Flock

// runGuardian is the long-lived supervisor. It never returns: every path
// through it ends in os.Exit, matching the no-cleanup-on-error contract
// the fork boundary requires.
func runGuardian(cfg Config, pipe *os.File) {
	ubicLog, err := redirectStandardStreams(cfg)
	if err != nil {
		dieWithError(pipe, err)
	}
	logger := log.New(ubicLog, "", log.LstdFlags)

	signal.Ignore(unixsignal.Hangup)

	if err := proctitle.Set("ubic-guardian " + cfg.displayName()); err != nil {
		logger.Printf("warning: could not set process title: %v", err)
	}

	if err := syscall.Setsid(); err != nil {
		logger.Printf("warning: setsid failed (already session leader?): %v", err)
	}

	fl, held, err := tryLock(cfg.PidfilePath)
	if err != nil {
		dieWithError(pipe, err)
	}
	if !held {
		dieWithError(pipe, fmt.Errorf("could not acquire pidfile lock at %s: already held", cfg.PidfilePath))
	}
	// The lock lives for the guardian's entire life; it is released
	// implicitly when this process dies, never explicitly unlocked.
	// Keeping it in a package-level var (not just a local) stops its
	// *os.File finalizer from releasing the flock early.
	guardianLock = fl

	if err := pidfile.Clear(cfg.PidfilePath); err != nil {
		dieWithError(pipe, err)
	}

	if cfg.RunAsUser != "" {
		if err := dropPrivileges(cfg.RunAsUser); err != nil {
			dieWithError(pipe, fmt.Errorf("dropping privileges to %q: %w", cfg.RunAsUser, err))
		}
	}

	configPath := os.Getenv(configEnv)
	workerCmd, err := reexecSelf(stageWorker, configPath, pipe, &syscall.SysProcAttr{Setpgid: true})
	if err != nil {
		dieWithError(pipe, err)
	}
	// The worker inherits the guardian's already-redirected standard
	// streams rather than getting fresh ones, so its output lands in the
	// same files the guardian just dup'd onto fd 0/1/2.
	workerCmd.Stdin = os.Stdin
	workerCmd.Stdout = os.Stdout
	workerCmd.Stderr = os.Stderr

	if err := workerCmd.Start(); err != nil {
		dieWithError(pipe, fmt.Errorf("forking worker: %w", err))
	}

	token, ok, err := procident.IdentityOf(workerCmd.Process.Pid)
	if err != nil {
		dieWithError(pipe, err)
	}
	if !ok {
		dieWithError(pipe, fmt.Errorf("worker pid %d vanished immediately after fork", workerCmd.Process.Pid))
	}

	if err := pidfile.Write(cfg.PidfilePath, os.Getpid(), workerCmd.Process.Pid, token); err != nil {
		dieWithError(pipe, err)
	}

	// The termination-signal handler must be armed before the success
	// marker goes out: once Start's caller sees "pidfile written" it may
	// immediately call Stop, which signals this PID. If that signal
	// arrives before signal.Notify runs, the default disposition kills
	// the guardian without tearing down the worker, leaving it orphaned.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unixsignal.GuardianSignals()...)

	writeLine(pipe, markerPidfileWritten)
	pipe.Close()

	logger.Printf("guardian up, worker pid %d, pidfile %s", workerCmd.Process.Pid, cfg.PidfilePath)

	waitDone := make(chan error, 1)
	go func() { waitDone <- workerCmd.Wait() }()

	select {
	case sig := <-sigCh:
		logger.Printf("received %v, tearing down worker pid %d", sig, workerCmd.Process.Pid)
		terminateWorker(cfg, workerCmd.Process.Pid, logger)
		_ = pidfile.Clear(cfg.PidfilePath)
		os.Exit(0)

	case err := <-waitDone:
		_ = pidfile.Clear(cfg.PidfilePath)
		if err != nil {
			logger.Printf("worker exited with error: %v", err)
			os.Exit(1)
		}
		logger.Printf("worker exited cleanly")
		os.Exit(0)
	}
}

// terminateWorker runs the guardian's termination handler (spec 4.3.4).
// The known-limitation default is an unconditional hard kill; when
// GuardianGraceful is set, it tries a polite signal first and gives the
// process group up to 5 seconds before escalating.
func terminateWorker(cfg Config, workerPID int, logger *log.Logger) {
	if cfg.GuardianGraceful {
		_ = syscall.Kill(-workerPID, unixsignal.Terminate)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if !unixsignal.IsAlive(workerPID) {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		logger.Printf("worker pid %d did not exit after polite signal, hard-killing", workerPID)
	}
	_ = syscall.Kill(-workerPID, unixsignal.HardKill)
}

func redirectStandardStreams(cfg Config) (*os.File, error) {
	nullIn, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for stdin: %w", os.DevNull, err)
	}
	stdout, err := os.OpenFile(cfg.resolvedStdout(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening stdout %s: %w", cfg.resolvedStdout(), err)
	}
	stderr, err := os.OpenFile(cfg.resolvedStderr(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening stderr %s: %w", cfg.resolvedStderr(), err)
	}
	ubicLog, err := os.OpenFile(cfg.resolvedUbicLog(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening ubic log %s: %w", cfg.resolvedUbicLog(), err)
	}

	if err := syscall.Dup2(int(nullIn.Fd()), 0); err != nil {
		return nil, fmt.Errorf("redirecting stdin: %w", err)
	}
	if err := syscall.Dup2(int(stdout.Fd()), 1); err != nil {
		return nil, fmt.Errorf("redirecting stdout: %w", err)
	}
	if err := syscall.Dup2(int(stderr.Fd()), 2); err != nil {
		return nil, fmt.Errorf("redirecting stderr: %w", err)
	}
	return ubicLog, nil
}

func dropPrivileges(username string) error {
	u, err := user.Lookup(username)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid %q: %w", u.Gid, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid %q: %w", u.Uid, err)
	}
	// Group must drop before user: once we're no longer root, we can't
	// change our own gid anymore.
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid(%d): %w", gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid(%d): %w", uid, err)
	}
	return nil
}
