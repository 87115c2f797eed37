package ubic

import (
	"errors"
	"syscall"

	"github.com/dayanruben/ubic/internal/pidfile"
	"github.com/dayanruben/ubic/internal/procident"
	"github.com/dayanruben/ubic/internal/unixsignal"
)

// Check reports whether the service recorded at pidfilePath is present.
// It never talks to the guardian directly — presence is inferred from
// whether the advisory lock is held, and absence is confirmed (and, if
// necessary, cleaned up) by cross-checking the worker PID against /proc.
//
// Check can have the side effect of clearing the pidfile when it
// determines the record is stale, in one of three distinct ways: the
// worker is simply gone, the worker is alive but its guardian vanished,
// or the recorded PID has been reused by an unrelated process.
func Check(pidfilePath string) (bool, error) {
	_, kind, err := pidfile.Read(pidfilePath)
	if err != nil && !errors.Is(err, pidfile.ErrMalformed) {
		return false, err
	}
	if kind == pidfile.KindAbsent {
		return false, nil
	}

	fl, held, err := tryLock(pidfilePath)
	if err != nil {
		return false, err
	}
	if !held {
		// A live guardian holds the lock.
		return true, nil
	}
	defer fl.Unlock()

	rec, kind, err := pidfile.Read(pidfilePath)
	if err != nil && !errors.Is(err, pidfile.ErrMalformed) {
		return false, err
	}

	switch kind {
	case pidfile.KindAbsent:
		return false, nil

	case pidfile.KindLegacy:
		// No start-time token to check identity against; conservatively
		// assume not running and leave the file for manual recovery.
		return false, nil

	case pidfile.KindMalformed:
		return false, dataIntegrity(pidfilePath, "malformed pidfile")

	case pidfile.KindCurrent:
		if !rec.HasWorkerPID {
			return false, dataIntegrity(pidfilePath, "current-format record has no worker PID recorded")
		}
	}

	token, ok, err := procident.IdentityOf(rec.WorkerPID)
	if err != nil {
		return false, err
	}
	if !ok {
		// The worker is simply gone.
		if err := pidfile.Clear(pidfilePath); err != nil {
			return false, err
		}
		return false, nil
	}

	if token == rec.Token {
		// The worker is alive but its guardian died without cleaning up.
		// This is the one branch that escalates to killing: identity
		// matches, so this really is our worker.
		_ = syscall.Kill(-rec.WorkerPID, unixsignal.HardKill)
		_ = pidfile.Clear(pidfilePath)
		return false, nil
	}

	// Token mismatch: the PID has been reused by an unrelated process.
	// Clear the stale record but never touch that process.
	_ = pidfile.Clear(pidfilePath)
	return false, nil
}
