package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

// State is a task's lifecycle state: Created, Running, Completed, Failed,
// or Cancelled.
type State int32

const (
	Created State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options configures Spawn / SpawnWithHandle.
type Options struct {
	// Detached marks the task detached at creation; its result may be
	// discarded at Free time without that being a contract violation.
	Detached bool
}

// Task is a unit of work with an awaitable result. The source pairs a
// condition variable with an atomic is_complete flag; this is modeled
// instead as a future/promise: a done channel closed exactly once, whose
// close happens-before every observation of the stored result.
type Task[A any, R any] struct {
	id  uint64
	fn  func(context.Context, A) (R, error)
	arg A

	ctx       context.Context
	ctxCancel context.CancelFunc

	state        atomic.Int32
	isDetached   atomic.Bool
	awaitable    bool
	awaited      atomic.Bool
	done         chan struct{}
	completeOnce sync.Once

	result R
	err    error

	createdAt   time.Time
	completedAt time.Time

	reg *Registry
}

// Spawn creates and starts a task. It returns TaskSpawnFailed if the
// registry's max_tasks budget is already exhausted.
func Spawn[A any, R any](reg *Registry, fn func(context.Context, A) (R, error), arg A, opts Options) (*Task[A, R], error) {
	return spawn[A, R](reg, fn, arg, opts, false)
}

// SpawnWithHandle behaves as Spawn but the returned handle also tracks
// awaitability: WaitTimeout returns the completed result at most once.
// GetResult does not check or consume awaitability.
func SpawnWithHandle[A any, R any](reg *Registry, fn func(context.Context, A) (R, error), arg A, opts Options) (*Task[A, R], error) {
	return spawn[A, R](reg, fn, arg, opts, true)
}

func spawn[A any, R any](reg *Registry, fn func(context.Context, A) (R, error), arg A, opts Options, awaitable bool) (*Task[A, R], error) {
	if err := reg.reserve(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Task[A, R]{
		id:        reg.allocateID(),
		fn:        fn,
		arg:       arg,
		ctx:       ctx,
		ctxCancel: cancel,
		awaitable: awaitable,
		done:      make(chan struct{}),
		createdAt: time.Now(),
		reg:       reg,
	}
	t.state.Store(int32(Created))
	t.isDetached.Store(opts.Detached)

	reg.publish(t)
	if reg.Stats != nil {
		reg.Stats.Task.Spawned.Add(1)
	}

	go t.run()
	return t, nil
}

// run is the worker entry point:
//  1. register the calling goroutine with the thread registry
//  2. record the start timestamp, publish state Running
//  3. invoke the callable
//  4. under completion, store the result, publish is_complete, broadcast
//  5. increment tasks_completed (or tasks_failed)
//  6. unregister the thread
func (t *Task[A, R]) run() {
	if t.reg.Threads != nil {
		t.reg.Threads.Register()
		defer t.reg.Threads.Unregister()
	}

	if !t.state.CompareAndSwap(int32(Created), int32(Running)) {
		// Already cancelled before the worker even started.
		return
	}

	result, err := t.fn(t.ctx, t.arg)
	t.finish(result, err, Completed, Failed)
}

// finish records a completion outcome exactly once, whichever of the
// worker's natural return or a concurrent Cancel gets there first.
func (t *Task[A, R]) finish(result R, err error, okState, errState State) {
	t.completeOnce.Do(func() {
		final := okState
		if err != nil {
			final = errState
		}
		t.result = result
		t.err = err
		t.completedAt = time.Now()
		t.state.Store(int32(final))
		t.reg.complete()
		if t.reg.Stats != nil {
			switch final {
			case Completed:
				t.reg.Stats.Task.Completed.Add(1)
			case Failed:
				t.reg.Stats.Task.Failed.Add(1)
			case Cancelled:
				t.reg.Stats.Task.Cancelled.Add(1)
			}
		}
		close(t.done)
	})
}

// GetResult blocks until the task completes, then returns its result. The
// handle's completion is observed by a channel receive, which happens-after
// the worker's release-store of the result by Go's memory model, so no
// further synchronization is needed to read it safely.
func (t *Task[A, R]) GetResult(ctx context.Context) (R, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero R
		return zero, errs.New(errs.TaskTimeout)
	}
	return t.result, t.err
}

// WaitTimeout blocks until completion or timeout, returning TaskTimeout on
// deadline expiry. For an awaitable handle (SpawnWithHandle), a timed-out
// wait leaves the handle waitable again; once a WaitTimeout call has
// returned the completed result, every later call returns InvalidHandle
// regardless of timeout, matching the "awaited exactly once" contract.
func (t *Task[A, R]) WaitTimeout(timeout time.Duration) (R, error) {
	var zero R
	if t.awaitable && t.awaited.Load() {
		return zero, errs.New(errs.InvalidHandle)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		if t.awaitable && !t.awaited.CompareAndSwap(false, true) {
			return zero, errs.New(errs.InvalidHandle)
		}
		return t.result, t.err
	case <-timer.C:
		return zero, errs.New(errs.TaskTimeout)
	}
}

// Cancel transitions the task to Cancelled with a cancellation error and wakes
// all waiters, but only if it has not already completed. The worker
// goroutine itself keeps running to completion; its eventual result is
// discarded.
func (t *Task[A, R]) Cancel() error {
	t.ctxCancel()
	var zero R
	t.finish(zero, errs.Newf(errs.SystemError, "task cancelled"), Cancelled, Cancelled)
	return nil
}

func (t *Task[A, R]) cancelInternal() {
	_ = t.Cancel()
}

// Detach marks the task detached: its result may be discarded at Free time
// without that being treated as a contract violation.
func (t *Task[A, R]) Detach() {
	t.isDetached.Store(true)
}

func (t *Task[A, R]) isDetachedInternal() bool {
	return t.isDetached.Load()
}

// Free unlinks the handle from the registry. Freeing a live, non-detached
// task is a contract violation; Free does not check for it or log it, and
// never blocks: it always unlinks the handle.
func (t *Task[A, R]) Free() error {
	t.reg.unpublish(t.id)
	return nil
}

// ID returns the task's 64-bit identifier.
func (t *Task[A, R]) ID() uint64 { return t.id }

func (t *Task[A, R]) taskID() uint64 { return t.id }

// State returns the task's current lifecycle state.
func (t *Task[A, R]) State() State { return State(t.state.Load()) }

// IsComplete reports whether the task has finished (successfully, with an
// error, or via cancellation).
func (t *Task[A, R]) IsComplete() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// IsDetached reports whether Detach has been called or the task was
// spawned with Options.Detached.
func (t *Task[A, R]) IsDetached() bool { return t.isDetached.Load() }

// CreatedAt returns the task's creation timestamp.
func (t *Task[A, R]) CreatedAt() time.Time { return t.createdAt }

// CompletedAt returns the task's completion timestamp, or the zero time if
// still running.
func (t *Task[A, R]) CompletedAt() time.Time { return t.completedAt }
