package syncprim

import (
	"sync"
	"sync/atomic"

	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// RWLock is a read-write lock allowing concurrent readers and an exclusive
// writer. It wraps sync.RWMutex, whose documented behavior already
// prevents writer starvation: once a writer is blocked waiting for Lock,
// readers that arrive afterward block behind it rather than continuing to
// pile onto the active reader set.
type RWLock struct {
	Name string

	mu sync.RWMutex

	readLocks   atomic.Int64
	writeLocks  atomic.Int64
	contentions atomic.Int64
	readers     atomic.Int64

	st *stats.Stats
}

func NewRWLock(name string, st *stats.Stats) *RWLock {
	return &RWLock{Name: name, st: st}
}

func (l *RWLock) RLock() {
	if !l.mu.TryRLock() {
		l.contentions.Add(1)
		if l.st != nil {
			l.st.Sync.RWLockContentions.Add(1)
		}
		l.mu.RLock()
	}
	l.readLocks.Add(1)
	l.readers.Add(1)
}

func (l *RWLock) TryRLock() bool {
	if !l.mu.TryRLock() {
		return false
	}
	l.readLocks.Add(1)
	l.readers.Add(1)
	return true
}

func (l *RWLock) RUnlock() {
	l.readers.Add(-1)
	l.mu.RUnlock()
}

func (l *RWLock) Lock() {
	if !l.mu.TryLock() {
		l.contentions.Add(1)
		if l.st != nil {
			l.st.Sync.RWLockContentions.Add(1)
		}
		l.mu.Lock()
	}
	l.writeLocks.Add(1)
}

func (l *RWLock) TryLock() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.writeLocks.Add(1)
	return true
}

func (l *RWLock) Unlock() {
	l.mu.Unlock()
}

func (l *RWLock) Destroy() {}

func (l *RWLock) ActiveReaders() int64   { return l.readers.Load() }
func (l *RWLock) ReadLocksTaken() int64  { return l.readLocks.Load() }
func (l *RWLock) WriteLocksTaken() int64 { return l.writeLocks.Load() }
func (l *RWLock) Contentions() int64     { return l.contentions.Load() }
