package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// staleLockThreshold is the maximum age of a lock before it is treated as
// abandoned by a crashed run.
const staleLockThreshold = 10 * time.Minute

// ErrDestinationLocked means another run is installing into the same
// destination right now.
var ErrDestinationLocked = errors.New("destination locked: another installation may be in progress")

// destLock is an exclusive lock on an extraction destination. It is a
// sibling file of the destination so two runs cannot interleave their
// extract and install stages.
type destLock struct {
	path string
}

// acquireDestLock takes the lock for dest. Stale locks left by crashed
// runs are removed and retaken once.
func acquireDestLock(dest string) (*destLock, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("create destination parent: %w", err)
	}

	lockPath := dest + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(lockPath) {
			return nil, ErrDestinationLocked
		}
		_ = os.Remove(lockPath)
		file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err != nil {
			return nil, ErrDestinationLocked
		}
	}

	meta := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("close lock file: %w", err)
	}

	return &destLock{path: lockPath}, nil
}

// release removes the lock file. Safe to call more than once.
func (l *destLock) release() {
	if l.path == "" {
		return
	}
	_ = os.Remove(l.path)
	l.path = ""
}

// isLockStale reports whether the lock file is older than the threshold.
// An unreadable lock is treated as live; refusing to run is safer than
// clobbering a lock we cannot inspect.
func isLockStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleLockThreshold
}
