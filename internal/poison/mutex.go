// Package poison provides a mutex that refuses further use once a holder
// panicked while holding it.
package poison

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrLockUnavailable is returned by Lock after a previous holder panicked
// inside its critical section.
var ErrLockUnavailable = errors.New("lock unavailable")

// A Mutex is a sync.Mutex that remembers whether a critical section was left
// through a panic. The zero value is an unlocked, healthy mutex.
type Mutex struct {
	mu       sync.Mutex
	poisoned atomic.Bool
}

// Lock acquires the mutex. It fails with ErrLockUnavailable, without holding
// the lock, if the mutex is poisoned.
func (m *Mutex) Lock() error {
	m.mu.Lock()

	if m.poisoned.Load() {
		m.mu.Unlock()
		return ErrLockUnavailable
	}

	return nil
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.mu.Unlock()
}

// Poisoned tells if a holder has panicked.
func (m *Mutex) Poisoned() bool {
	return m.poisoned.Load()
}

// Do runs f while holding the lock. If f panics the mutex is poisoned and the
// panic continues to propagate.
func (m *Mutex) Do(f func()) error {
	if err := m.Lock(); err != nil {
		return err
	}

	completed := false
	defer func() {
		if !completed {
			m.poisoned.Store(true)
		}
		m.mu.Unlock()
	}()

	f()
	completed = true

	return nil
}
