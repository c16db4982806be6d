package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"qbridge/internal/daemon"
	"qbridge/internal/testsupport"
)

func TestAcquireInstanceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbridge.lock")

	first, err := daemon.AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("Path() = %q, want %q", first.Path(), path)
	}
	if _, err := daemon.AcquireInstanceLock(path); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	again, err := daemon.AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestDaemonUsesHandedOverLock(t *testing.T) {
	cfg := testConfig(t)
	lock, err := daemon.AcquireInstanceLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	d, err := daemon.New(cfg, testsupport.NewQuestionService(), testsupport.IdleFeed{}, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.UseInstanceLock(lock); err != nil {
		t.Fatalf("UseInstanceLock: %v", err)
	}
	if err := d.UseInstanceLock(lock); err == nil {
		t.Fatal("expected a second hand-over to be rejected")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start with handed-over lock: %v", err)
	}

	d.Stop()
	released, err := daemon.AcquireInstanceLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("expected Stop to release the lock: %v", err)
	}
	_ = released.Release()
}

func TestDaemonRejectsForeignLock(t *testing.T) {
	cfg := testConfig(t)
	lock, err := daemon.AcquireInstanceLock(filepath.Join(t.TempDir(), "other.lock"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	d, err := daemon.New(cfg, testsupport.NewQuestionService(), testsupport.IdleFeed{}, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.UseInstanceLock(lock); err == nil {
		t.Fatal("expected a lock on another path to be rejected")
	}
}

func TestDaemonCloseReleasesUnusedLock(t *testing.T) {
	cfg := testConfig(t)
	lock, err := daemon.AcquireInstanceLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	d, err := daemon.New(cfg, testsupport.NewQuestionService(), testsupport.IdleFeed{}, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.UseInstanceLock(lock); err != nil {
		t.Fatalf("UseInstanceLock: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := daemon.AcquireInstanceLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("expected Close to release the lock: %v", err)
	}
	_ = again.Release()
}
