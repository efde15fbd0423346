package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another process is driving a job on the same ledger.
var ErrLocked = errors.New("ledger locked by another run")

// Lock is an exclusive advisory lock guarding one ledger path.
type Lock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for the ledger at path.
func LockPath(ledgerPath string) string {
	return ledgerPath + ".lock"
}

// AcquireLock takes the lock for ledgerPath without blocking, creating the
// ledger directory when missing. It returns an error wrapping ErrLocked when
// another process holds it.
func AcquireLock(ledgerPath string) (*Lock, error) {
	lockPath := LockPath(ledgerPath)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// IsLocked reports whether a run currently holds the lock for ledgerPath.
// It never creates the lock file.
func IsLocked(ledgerPath string) (bool, error) {
	lockPath := LockPath(ledgerPath)
	if _, err := os.Stat(lockPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat ledger lock: %w", err)
	}
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe ledger lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, fl.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}

// Release drops the lock. The lock file stays in place so every contender
// locks the same inode. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release ledger lock: %w", err)
	}
	return nil
}
