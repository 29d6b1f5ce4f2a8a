// Package stats holds the aggregate statistics block the bridge orchestrator
// owns and every other subsystem mutates concurrently. All fields are
// atomic and incremented with relaxed ordering unless a stronger ordering is
// required to observe a state change (see the task subsystem's is_complete
// publication for the one place that matters).
package stats

import "sync/atomic"

// Task holds task-subsystem counters.
type Task struct {
	Spawned   atomic.Int64
	Completed atomic.Int64
	Failed    atomic.Int64
	Cancelled atomic.Int64
	TimedOut  atomic.Int64
}

// Sync holds synchronization-primitive counters.
type Sync struct {
	MutexContentions  atomic.Int64
	RWLockContentions atomic.Int64
	Signals           atomic.Int64
	Waiters           atomic.Int64
}

// Channel holds channel & callback-queue counters.
type Channel struct {
	Sends              atomic.Int64
	Receives           atomic.Int64
	BlockedOps         atomic.Int64
	CallbacksEnqueued  atomic.Int64
	CallbacksProcessed atomic.Int64
	CallbacksDropped   atomic.Int64
}

// Pattern holds worker-pool / pipeline / fan-out counters.
type Pattern struct {
	TasksSubmitted atomic.Int64
	TasksCompleted atomic.Int64
	TasksFailed    atomic.Int64
	ItemsRouted    atomic.Int64
}

// Stats is the single structure the bridge snapshots and resets. Placing
// the sub-stats first keeps §6's "task sub-stats, sync sub-stats, channel
// sub-stats, pattern sub-stats, then top-level counters" ordering explicit.
type Stats struct {
	Task    Task
	Sync    Sync
	Channel Channel
	Pattern Pattern

	TotalOps                atomic.Int64
	TotalErrors             atomic.Int64
	MemoryUsageEstimate      atomic.Int64
	ActiveComponents         atomic.Int64
	ThreadsRegistered        atomic.Int64
	GCRootsRegistered        atomic.Int64
	OrderingViolations       atomic.Int64
	DataStructureOperations  atomic.Int64
}

// New returns a zeroed Stats block.
func New() *Stats { return &Stats{} }

// Snapshot is a plain-value copy of Stats suitable for JSON encoding and for
// returning from Bridge.Stats() without exposing the live atomics.
type Snapshot struct {
	TasksSpawned   int64 `json:"tasks_spawned"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
	TasksCancelled int64 `json:"tasks_cancelled"`
	TasksTimedOut  int64 `json:"tasks_timed_out"`

	MutexContentions  int64 `json:"mutex_contentions"`
	RWLockContentions int64 `json:"rwlock_contentions"`
	Signals           int64 `json:"signals"`
	Waiters           int64 `json:"waiters"`

	ChannelSends      int64 `json:"channel_sends"`
	ChannelReceives   int64 `json:"channel_receives"`
	BlockedOps        int64 `json:"blocked_ops"`
	CallbacksEnqueued int64 `json:"callbacks_enqueued"`
	CallbacksProcessed int64 `json:"callbacks_processed"`
	CallbacksDropped  int64 `json:"callbacks_dropped"`

	PatternTasksSubmitted int64 `json:"pattern_tasks_submitted"`
	PatternTasksCompleted int64 `json:"pattern_tasks_completed"`
	PatternTasksFailed    int64 `json:"pattern_tasks_failed"`
	PatternItemsRouted    int64 `json:"pattern_items_routed"`

	TotalOps                int64 `json:"total_ops"`
	TotalErrors              int64 `json:"total_errors"`
	MemoryUsageEstimate      int64 `json:"memory_usage_estimate"`
	ActiveComponents         int64 `json:"active_components"`
	ThreadsRegistered        int64 `json:"threads_registered"`
	GCRootsRegistered        int64 `json:"gc_roots_registered"`
	OrderingViolations       int64 `json:"ordering_violations"`
	DataStructureOperations  int64 `json:"data_structure_operations"`
}

// Snapshot copies every counter. Relaxed loads are fine: the contract
// guarantees the snapshot may be stale by any finite amount relative to the
// operations it counts.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TasksSpawned:   s.Task.Spawned.Load(),
		TasksCompleted: s.Task.Completed.Load(),
		TasksFailed:    s.Task.Failed.Load(),
		TasksCancelled: s.Task.Cancelled.Load(),
		TasksTimedOut:  s.Task.TimedOut.Load(),

		MutexContentions:  s.Sync.MutexContentions.Load(),
		RWLockContentions: s.Sync.RWLockContentions.Load(),
		Signals:           s.Sync.Signals.Load(),
		Waiters:           s.Sync.Waiters.Load(),

		ChannelSends:       s.Channel.Sends.Load(),
		ChannelReceives:    s.Channel.Receives.Load(),
		BlockedOps:         s.Channel.BlockedOps.Load(),
		CallbacksEnqueued:  s.Channel.CallbacksEnqueued.Load(),
		CallbacksProcessed: s.Channel.CallbacksProcessed.Load(),
		CallbacksDropped:   s.Channel.CallbacksDropped.Load(),

		PatternTasksSubmitted: s.Pattern.TasksSubmitted.Load(),
		PatternTasksCompleted: s.Pattern.TasksCompleted.Load(),
		PatternTasksFailed:    s.Pattern.TasksFailed.Load(),
		PatternItemsRouted:    s.Pattern.ItemsRouted.Load(),

		TotalOps:                s.TotalOps.Load(),
		TotalErrors:             s.TotalErrors.Load(),
		MemoryUsageEstimate:     s.MemoryUsageEstimate.Load(),
		ActiveComponents:        s.ActiveComponents.Load(),
		ThreadsRegistered:       s.ThreadsRegistered.Load(),
		GCRootsRegistered:       s.GCRootsRegistered.Load(),
		OrderingViolations:      s.OrderingViolations.Load(),
		DataStructureOperations: s.DataStructureOperations.Load(),
	}
}

// Reset zeroes every counter atomically (field by field; there is no
// single-instruction whole-struct reset for a struct of atomics).
func (s *Stats) Reset() {
	s.Task.Spawned.Store(0)
	s.Task.Completed.Store(0)
	s.Task.Failed.Store(0)
	s.Task.Cancelled.Store(0)
	s.Task.TimedOut.Store(0)

	s.Sync.MutexContentions.Store(0)
	s.Sync.RWLockContentions.Store(0)
	s.Sync.Signals.Store(0)
	s.Sync.Waiters.Store(0)

	s.Channel.Sends.Store(0)
	s.Channel.Receives.Store(0)
	s.Channel.BlockedOps.Store(0)
	s.Channel.CallbacksEnqueued.Store(0)
	s.Channel.CallbacksProcessed.Store(0)
	s.Channel.CallbacksDropped.Store(0)

	s.Pattern.TasksSubmitted.Store(0)
	s.Pattern.TasksCompleted.Store(0)
	s.Pattern.TasksFailed.Store(0)
	s.Pattern.ItemsRouted.Store(0)

	s.TotalOps.Store(0)
	s.TotalErrors.Store(0)
	s.MemoryUsageEstimate.Store(0)
	s.ActiveComponents.Store(0)
	s.ThreadsRegistered.Store(0)
	s.GCRootsRegistered.Store(0)
	s.OrderingViolations.Store(0)
	s.DataStructureOperations.Store(0)
}
