package ubic

import "fmt"

// PreconditionError reports a request that was rejected before any
// process was touched: both or neither of Exec/Callback supplied,
// Start called while Check already reports the service running, and
// similar synchronous, side-effect-free rejections.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

func precondition(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// DataIntegrityError reports a pidfile whose content can't be trusted:
// malformed bytes, or a current-format record missing the worker PID.
// The caller must fix this by hand; none of Start/Stop/Check will try
// to repair it automatically.
type DataIntegrityError struct {
	Path string
	Msg  string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func dataIntegrity(path, format string, args ...any) error {
	return &DataIntegrityError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// RefusalError reports that Stop's bounded retry loop ran out of
// attempts while the daemon still reported present.
type RefusalError struct {
	Msg string
}

func (e *RefusalError) Error() string { return e.Msg }

func refusal(format string, args ...any) error {
	return &RefusalError{Msg: fmt.Sprintf(format, args...)}
}
