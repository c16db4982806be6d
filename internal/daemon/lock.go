package daemon

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another qbridge daemon instance is already running")

// InstanceLock is the single-instance guard on the daemon lock file.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireInstanceLock takes the lock at path without blocking.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &InstanceLock{path: path, lock: lock}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release drops the lock. Releasing twice is a no-op.
func (l *InstanceLock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
