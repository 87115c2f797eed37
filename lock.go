package ubic

import (
	"fmt"

	"github.com/gofrs/flock"
)

// tryLock attempts the non-blocking whole-file advisory lock on path
// that the guardian holds for its entire life. held reports whether we
// got it; when held is false and err is nil, some other process — by
// construction, a live guardian — already holds it, which is the normal
// "present" outcome Check relies on, not a failure.
func tryLock(path string) (l *flock.Flock, held bool, err error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("ubic: acquiring lock on %s: %w", path, err)
	}
	if !locked {
		return nil, false, nil
	}
	return fl, true, nil
}
