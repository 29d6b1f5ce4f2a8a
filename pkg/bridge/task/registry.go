// Package task implements the bridge's task subsystem: spawn, awaitable
// completion, timed wait, cancel, detach and free, plus the worker
// entry-point sequence (register thread, run, publish completion,
// unregister thread).
//
// The source keeps task handles on an intrusive singly-linked registry with
// an atomic head. Here that becomes an owned map keyed by task id, so
// freeing a handle never needs a linear scan under a global lock.
package task

import (
	"sync"
	"sync/atomic"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
	"github.com/vortexlang/cbridge/pkg/bridge/threadreg"
)

// handle is the type-erased view of a *Task[A, R] the registry stores.
// Task payload and result stay generic at the call site; the registry only
// ever needs id, cancellation and liveness.
type handle interface {
	taskID() uint64
	cancelInternal()
	isDetachedInternal() bool
}

// Registry owns every live task handle for one bridge instance and
// enforces the spawn budget: spawning when
// tasks_spawned - tasks_completed == max_tasks fails with TaskSpawnFailed.
type Registry struct {
	mu   sync.Mutex
	byID map[uint64]handle

	nextID      atomic.Uint64
	outstanding atomic.Int64 // tasks_spawned - tasks_completed, live budget
	maxTasks    atomic.Int64

	Threads *threadreg.Registry
	Stats   *stats.Stats
}

// NewRegistry creates a task registry. maxTasks <= 0 disables budget
// enforcement.
func NewRegistry(maxTasks int64, threads *threadreg.Registry, st *stats.Stats) *Registry {
	r := &Registry{
		byID:    make(map[uint64]handle),
		Threads: threads,
		Stats:   st,
	}
	r.maxTasks.Store(maxTasks)
	return r
}

// SetMaxTasks updates the spawn budget advisorily: tasks already
// outstanding are unaffected, only future Spawn calls observe the new
// limit.
func (r *Registry) SetMaxTasks(maxTasks int64) {
	r.maxTasks.Store(maxTasks)
}

// reserve atomically admits one more outstanding task, failing with
// TaskSpawnFailed when maxTasks would be exceeded.
func (r *Registry) reserve() error {
	max := r.maxTasks.Load()
	if max <= 0 {
		r.outstanding.Add(1)
		return nil
	}
	for {
		cur := r.outstanding.Load()
		if cur >= max {
			return errs.New(errs.TaskSpawnFailed)
		}
		if r.outstanding.CompareAndSwap(cur, cur+1) {
			return nil
		}
	}
}

// complete releases one unit of outstanding budget. Called exactly once per
// task, at the moment it leaves the Running state (naturally or via
// cancellation), not at Free time.
func (r *Registry) complete() {
	r.outstanding.Add(-1)
}

func (r *Registry) allocateID() uint64 {
	return r.nextID.Add(1)
}

func (r *Registry) publish(h handle) {
	r.mu.Lock()
	r.byID[h.taskID()] = h
	r.mu.Unlock()
}

func (r *Registry) unpublish(id uint64) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// Count returns the number of handles still registered (spawned but not
// yet freed).
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Outstanding returns tasks_spawned - tasks_completed.
func (r *Registry) Outstanding() int64 {
	return r.outstanding.Load()
}

// Shutdown cancels every remaining handle and clears the registry. Called
// from the bridge orchestrator's Cleanup.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]handle, 0, len(r.byID))
	for _, h := range r.byID {
		all = append(all, h)
	}
	r.byID = make(map[uint64]handle)
	r.mu.Unlock()

	for _, h := range all {
		h.cancelInternal()
	}
}
