package syncprim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// CondVar is a condition variable paired with an external sync.Locker,
// mirroring pthread_cond_t semantics: Wait atomically unlocks the given
// locker and blocks, re-acquiring it before returning.
//
// Go's sync.Cond already provides exactly this, but it lacks a timed wait
// and usage counters; CondVar adds both on top of a channel-based signal so
// TimedWait can select against a deadline without leaking goroutines.
type CondVar struct {
	Name string

	mu      sync.Mutex
	waiters map[*waiter]struct{}

	signals atomic.Int64
	waits   atomic.Int64
	st      *stats.Stats
}

type waiter struct {
	ch chan struct{}
}

func NewCondVar(name string, st *stats.Stats) *CondVar {
	return &CondVar{Name: name, waiters: make(map[*waiter]struct{}), st: st}
}

// Wait atomically releases locker and blocks until Signal or Broadcast
// wakes this waiter, then re-acquires locker before returning. Callers must
// re-check their predicate in a loop, as with any condition variable.
func (c *CondVar) Wait(locker sync.Locker) {
	w := c.register()
	c.waits.Add(1)
	if c.st != nil {
		c.st.Sync.Waiters.Add(1)
	}
	locker.Unlock()
	<-w.ch
	if c.st != nil {
		c.st.Sync.Waiters.Add(-1)
	}
	locker.Lock()
}

// TimedWait behaves as Wait but returns errs.TaskTimeout if the deadline
// elapses first. The locker is always re-acquired before returning, so
// observable state is left unchanged on timeout — the caller's critical
// section resumes normally either way.
func (c *CondVar) TimedWait(locker sync.Locker, timeout time.Duration) error {
	w := c.register()
	c.waits.Add(1)
	if c.st != nil {
		c.st.Sync.Waiters.Add(1)
	}
	locker.Unlock()

	var err error
	select {
	case <-w.ch:
	case <-time.After(timeout):
		if c.unregister(w) {
			err = errs.New(errs.TaskTimeout)
		}
		// If unregister failed, a concurrent Signal/Broadcast already
		// claimed this waiter; fall through as a normal wake.
	}

	if c.st != nil {
		c.st.Sync.Waiters.Add(-1)
	}
	locker.Lock()
	return err
}

func (c *CondVar) register() *waiter {
	w := &waiter{ch: make(chan struct{})}
	c.mu.Lock()
	c.waiters[w] = struct{}{}
	c.mu.Unlock()
	return w
}

// unregister removes w before it has been signalled. Returns false if w was
// already claimed by Signal/Broadcast (in which case the channel is closed
// and the timeout branch must treat this as a normal wake, not a timeout).
func (c *CondVar) unregister(w *waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.waiters[w]; ok {
		delete(c.waiters, w)
		return true
	}
	return false
}

// Signal wakes at most one waiting goroutine.
func (c *CondVar) Signal() {
	c.mu.Lock()
	var chosen *waiter
	for w := range c.waiters {
		chosen = w
		delete(c.waiters, w)
		break
	}
	c.mu.Unlock()
	if chosen != nil {
		close(chosen.ch)
		c.signals.Add(1)
		if c.st != nil {
			c.st.Sync.Signals.Add(1)
		}
	}
}

// Broadcast wakes every currently waiting goroutine.
func (c *CondVar) Broadcast() {
	c.mu.Lock()
	all := c.waiters
	c.waiters = make(map[*waiter]struct{})
	c.mu.Unlock()
	for w := range all {
		close(w.ch)
	}
	n := int64(len(all))
	c.signals.Add(n)
	if c.st != nil {
		c.st.Sync.Signals.Add(n)
	}
}

// Destroy wakes any remaining waiters so they do not block forever.
func (c *CondVar) Destroy() {
	c.Broadcast()
}

func (c *CondVar) SignalCount() int64 { return c.signals.Load() }
func (c *CondVar) WaitCount() int64   { return c.waits.Load() }
