package ledger_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chunkvtt/internal/ledger"
)

func TestAcquireLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")

	first, err := ledger.AcquireLock(path)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	if first.Path() != ledger.LockPath(path) {
		t.Fatalf("lock path = %q", first.Path())
	}

	if _, err := ledger.AcquireLock(path); !errors.Is(err, ledger.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(ledger.LockPath(path)); err != nil {
		t.Fatalf("lock file should stay in place: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	second, err := ledger.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	defer second.Release()
}

func TestAcquireLockCreatesLedgerDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmp", "nested", "resume.json")

	lock, err := ledger.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(ledger.LockPath(path)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := ledger.Save(path, ledger.Empty()); err != nil {
		t.Fatalf("Save next to lock: %v", err)
	}
}

func TestIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.json")

	locked, err := ledger.IsLocked(path)
	if err != nil || locked {
		t.Fatalf("IsLocked without lock file = %v, %v", locked, err)
	}
	if _, err := os.Stat(ledger.LockPath(path)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("IsLocked must not create the lock file, stat err=%v", err)
	}

	lock, err := ledger.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if locked, err := ledger.IsLocked(path); err != nil || !locked {
		t.Fatalf("IsLocked while held = %v, %v", locked, err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if locked, err := ledger.IsLocked(path); err != nil || locked {
		t.Fatalf("IsLocked after release = %v, %v", locked, err)
	}
}

func TestNilLockRelease(t *testing.T) {
	var l *ledger.Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil Release: %v", err)
	}
	if l.Path() != "" {
		t.Fatal("expected empty path")
	}
}
