// Package syncprim implements the bridge's synchronization primitives:
// mutex (plain and recursive), condition variable, read-write lock, barrier
// and counting semaphore, each wrapping Go's native primitives while
// carrying contention and usage counters.
package syncprim

import (
	"sync"
	"sync/atomic"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/internal/gid"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// Mutex is a plain or recursive mutex. Non-recursive mode is a direct
// wrapper over sync.Mutex; recursive mode tracks an owning goroutine and a
// depth so the same goroutine can re-acquire it, with depth incrementing
// and decrementing as part of Lock/Unlock rather than a side channel.
type Mutex struct {
	Name      string
	recursive bool

	mu    sync.Mutex
	owner atomic.Int64
	depth int

	locksTaken  atomic.Int64
	contentions atomic.Int64

	st *stats.Stats
}

// NewMutex creates a mutex. recursive selects re-entrant semantics for the
// owning goroutine; non-recursive re-acquisition by the owner is undefined.
func NewMutex(name string, recursive bool, st *stats.Stats) *Mutex {
	return &Mutex{Name: name, recursive: recursive, st: st}
}

// Lock acquires the mutex, blocking until available. For a recursive mutex
// held by the calling goroutine, Lock succeeds immediately and increments
// the recursion depth instead of blocking.
func (m *Mutex) Lock() {
	if m.recursive {
		self := gid.ID()
		if m.owner.Load() == self && m.depth > 0 {
			m.depth++
			m.locksTaken.Add(1)
			return
		}
	}
	if !m.mu.TryLock() {
		m.contentions.Add(1)
		if m.st != nil {
			m.st.Sync.MutexContentions.Add(1)
		}
		m.mu.Lock()
	}
	if m.recursive {
		m.owner.Store(gid.ID())
		m.depth = 1
	}
	m.locksTaken.Add(1)
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	if m.recursive {
		self := gid.ID()
		if m.owner.Load() == self && m.depth > 0 {
			m.depth++
			m.locksTaken.Add(1)
			return true
		}
	}
	if !m.mu.TryLock() {
		return false
	}
	if m.recursive {
		m.owner.Store(gid.ID())
		m.depth = 1
	}
	m.locksTaken.Add(1)
	return true
}

// Unlock releases the mutex. For a recursive mutex this decrements the
// depth, releasing the underlying OS-level lock only when depth reaches
// zero. Unlocking a mutex not held by the calling goroutine (recursive
// mode) returns InvalidHandle rather than corrupting state.
func (m *Mutex) Unlock() error {
	if m.recursive {
		self := gid.ID()
		if m.owner.Load() != self || m.depth <= 0 {
			return errs.New(errs.InvalidHandle)
		}
		m.depth--
		if m.depth > 0 {
			return nil
		}
		m.owner.Store(0)
	}
	m.mu.Unlock()
	return nil
}

// Destroy releases resources held by the mutex. A Go sync.Mutex owns no
// external resources, so this is a no-op that only mirrors the source's
// create/destroy symmetry; destroying a held mutex is not detected.
func (m *Mutex) Destroy() {}

// LocksTaken returns the number of successful Lock/TryLock calls.
func (m *Mutex) LocksTaken() int64 { return m.locksTaken.Load() }

// Contentions returns the number of Lock calls that had to wait.
func (m *Mutex) Contentions() int64 { return m.contentions.Load() }
