package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteLock guards an index directory against concurrent writers across
// processes. Only one process may hold it at a time; readers (queries) do
// not need it since the store provides its own read/write isolation.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriteLock returns a lock for the index directory at dataDir. The lock
// file (".write.lock") lives inside dataDir, so deleting the index
// directory to force a rebuild removes it too; TryLock recreates the
// directory before locking.
func NewWriteLock(dataDir string) *WriteLock {
	lockPath := filepath.Join(dataDir, ".write.lock")
	return &WriteLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. Returns false, nil
// if another process already holds it.
func (l *WriteLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create index directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire write lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked or already-released
// WriteLock.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release write lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path, for diagnostics.
func (l *WriteLock) Path() string {
	return l.path
}
