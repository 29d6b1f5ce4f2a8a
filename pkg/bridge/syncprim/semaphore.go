package syncprim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

// Semaphore is a counting semaphore with a fixed maxPermits ceiling. A
// Release that would exceed maxPermits fails rather than wrapping, keeping
// the invariant 0 <= available_permits <= max_permits always true.
//
// This is the bridge's own hand-rolled semaphore, distinct from
// golang.org/x/sync/semaphore.Weighted used in pkg/bridge/pattern — both
// are exercised deliberately: this one is the bridge's explicit primitive
// contract, the x/sync one is the ecosystem-idiomatic limiter for
// pattern-layer batch admission.
type Semaphore struct {
	Name        string
	maxPermits  int64
	available   atomic.Int64
	acquires    atomic.Int64
	contentions atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

func NewSemaphore(name string, maxPermits, initial int64) *Semaphore {
	s := &Semaphore{Name: name, maxPermits: maxPermits}
	s.available.Store(initial)
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Acquire blocks until a permit is available.
func (s *Semaphore) Acquire() {
	s.mu.Lock()
	waited := false
	for s.available.Load() <= 0 {
		if !waited {
			s.contentions.Add(1)
			waited = true
		}
		s.cond.Wait()
	}
	s.available.Add(-1)
	s.mu.Unlock()
	s.acquires.Add(1)
}

// TryAcquire attempts to acquire a permit without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available.Load() <= 0 {
		return false
	}
	s.available.Add(-1)
	s.acquires.Add(1)
	return true
}

// AcquireTimeout blocks until a permit is available or timeout elapses.
func (s *Semaphore) AcquireTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	var acquired bool

	go func() {
		s.Acquire()
		acquired = true
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		// The background goroutine may still be waiting on s.cond. The
		// broadcast only makes it recheck; it keeps waiting until a permit
		// is free, takes it, and this goroutine then hands that permit back.
		go func() {
			<-done
			if acquired {
				s.Release()
			}
		}()
		s.cond.Broadcast()
		return errs.New(errs.TaskTimeout)
	}
}

// Release returns a permit. Releasing beyond maxPermits is an error and
// leaves the permit count unchanged.
func (s *Semaphore) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available.Load() >= s.maxPermits {
		return errs.New(errs.SystemError)
	}
	s.available.Add(1)
	s.cond.Signal()
	return nil
}

func (s *Semaphore) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *Semaphore) Available() int64   { return s.available.Load() }
func (s *Semaphore) MaxPermits() int64  { return s.maxPermits }
func (s *Semaphore) Acquires() int64    { return s.acquires.Load() }
func (s *Semaphore) Contentions() int64 { return s.contentions.Load() }
