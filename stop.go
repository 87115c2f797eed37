package ubic

import (
	"errors"
	"time"

	"github.com/dayanruben/ubic/internal/pidfile"
	"github.com/dayanruben/ubic/internal/unixsignal"
)

// Status is the outcome of Stop.
type Status string

const (
	// StatusNotRunning means there was nothing to stop.
	StatusNotRunning Status = "not running"
	// StatusStopped means a running daemon was signaled and is now gone.
	StatusStopped Status = "stopped"
)

const stopMaxAttempts = 5
const stopPollInterval = time.Second

// Stop asks the guardian at pidfilePath to shut down, polling Check up
// to five times (roughly five seconds) before giving up. The signal is
// sent to the guardian's controller PID, never to the worker directly —
// the guardian's own termination handler performs the worker teardown.
func Stop(pidfilePath string) (Status, error) {
	_, kind, err := pidfile.Read(pidfilePath)
	if errors.Is(err, pidfile.ErrMalformed) {
		return "", dataIntegrity(pidfilePath, "malformed pidfile")
	}
	if err != nil {
		return "", err
	}
	if kind == pidfile.KindAbsent {
		return StatusNotRunning, nil
	}

	sentSignal := false
	for attempt := 0; attempt < stopMaxAttempts; attempt++ {
		present, err := Check(pidfilePath)
		if err != nil {
			return "", err
		}
		if !present {
			if sentSignal {
				return StatusStopped, nil
			}
			return StatusNotRunning, nil
		}

		rec, kind, err := pidfile.Read(pidfilePath)
		if err != nil {
			return "", err
		}
		if kind == pidfile.KindCurrent {
			if err := signalProcess(rec.PID, unixsignal.Terminate); err == nil {
				sentSignal = true
			}
		}

		time.Sleep(stopPollInterval)
	}

	return "", refusal("ubic: daemon at %s did not stop after %d attempts", pidfilePath, stopMaxAttempts)
}
