package thumbs

import (
	"fmt"
	"os"
	"path/filepath"

	"homedrive/internal/logging"
)

// LockCoordinator provides cross-process mutual exclusion per content hash.
//
// The lock is a marker file created with O_EXCL, so check-and-create is a
// single filesystem operation and two racing processes cannot both win.
// There is no ownership tracking and no expiry: a crashed holder leaves the
// marker behind, and an operator must sweep stale *.lock files by hand.
type LockCoordinator struct {
	dir string
}

// NewLockCoordinator creates a coordinator placing lock markers in dir
// (normally the cache directory).
func NewLockCoordinator(dir string) *LockCoordinator {
	return &LockCoordinator{dir: dir}
}

func (l *LockCoordinator) lockPath(hash string) string {
	return filepath.Join(l.dir, hash+".lock")
}

// TryAcquire attempts to create the lock marker for hash. It returns true
// only if this caller created it; false means generation is already in
// flight elsewhere.
func (l *LockCoordinator) TryAcquire(hash string) (bool, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock dir: %w", err)
	}

	path := l.lockPath(hash)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}

	logging.Debug("Putting lock file: %s", path)
	fmt.Fprintf(f, "%s lock file\n", hash)
	if err := f.Close(); err != nil {
		logging.Warn("Failed to close lock file %s: %v", path, err)
	}
	return true, nil
}

// Release removes the lock marker for hash. It is idempotent and tolerates
// an already absent marker.
func (l *LockCoordinator) Release(hash string) {
	path := l.lockPath(hash)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to remove lock file %s: %v", path, err)
		}
		return
	}
	logging.Debug("Removing lock file: %s", path)
}
