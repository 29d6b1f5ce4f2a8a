// Package bridge is the concurrency runtime bridge's orchestrator: a
// singleton that owns the task registry, callback queue, thread registry
// and aggregate statistics every other subsystem reaches into, plus the
// init/cleanup lifecycle and the module-info query surface an embedding
// runtime uses to introspect the bridge.
//
// A single owner for this cross-cutting state means shutdown has one
// place to ask "who frees the queue?" instead of several.
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/callback"
	"github.com/vortexlang/cbridge/pkg/bridge/config"
	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
	"github.com/vortexlang/cbridge/pkg/bridge/task"
	"github.com/vortexlang/cbridge/pkg/bridge/threadreg"
	"github.com/vortexlang/cbridge/pkg/common/logging"
)

// Bridge is the process-wide concurrency runtime instance.
type Bridge struct {
	initialized atomic.Bool
	initAt      time.Time

	cfg *config.Config

	Tasks      *task.Registry
	Callbacks  *callback.Queue
	Threads    *threadreg.Registry
	StatsBlock *stats.Stats
	Log        *logging.Logger

	mu sync.Mutex // guards re-init / cleanup races and config swap
}

var (
	singleton   *Bridge
	singletonMu sync.Mutex
)

// Init creates the process-wide bridge with the given limits. Calling
// Init again with the same limits while already initialized succeeds
// (idempotent); calling it with different limits, or while the existing
// bridge is in a different configuration, returns InitFailed.
func Init(maxTasks, maxCallbacks int64) error {
	cfg := config.Default()
	cfg.MaxTasks = maxTasks
	cfg.MaxCallbacks = maxCallbacks
	return InitWithConfig(cfg)
}

// InitDefault initializes the bridge with config.Default().
func InitDefault() error {
	return InitWithConfig(config.Default())
}

// InitWithConfig initializes the bridge from a fully populated Config.
// Unknown config options are rejected by config.Config's strict JSON
// decoding before this is ever reached; here only the recognized fields
// are validated.
func InitWithConfig(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return errs.Newf(errs.InitFailed, err.Error())
	}

	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil && singleton.initialized.Load() {
		if sameLimits(singleton.cfg, cfg) {
			return nil
		}
		return errs.Newf(errs.InitFailed, "bridge already initialized with different limits")
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return errs.Newf(errs.InitFailed, err.Error())
	}
	log = log.WithComponent("bridge")

	st := stats.New()
	threads := threadreg.New(st, nil)
	tasks := task.NewRegistry(cfg.MaxTasks, threads, st)
	callbacks := callback.New(int(cfg.MaxCallbacks), st)

	b := &Bridge{
		cfg:        cfg,
		Tasks:      tasks,
		Callbacks:  callbacks,
		Threads:    threads,
		StatsBlock: st,
		Log:        log,
		initAt:     time.Now(),
	}
	b.initialized.Store(true)
	singleton = b

	log.Info("bridge initialized", map[string]interface{}{
		"max_tasks":     cfg.MaxTasks,
		"max_callbacks": cfg.MaxCallbacks,
	})
	return nil
}

func sameLimits(a, b *config.Config) bool {
	return a != nil && b != nil && a.MaxTasks == b.MaxTasks && a.MaxCallbacks == b.MaxCallbacks
}

// IsInitialized reports whether the singleton bridge currently exists.
func IsInitialized() bool {
	singletonMu.Lock()
	b := singleton
	singletonMu.Unlock()
	return b != nil && b.initialized.Load()
}

// Get returns the singleton bridge instance; it is named Get because the
// identifier Bridge is already taken by the type. Its behavior is undefined
// if called before Init; callers in this repo instead get a clear panic
// rather than a nil-pointer dereference somewhere downstream.
func Get() *Bridge {
	singletonMu.Lock()
	b := singleton
	singletonMu.Unlock()
	if b == nil {
		panic("bridge: Get called before Init")
	}
	return b
}

// Cleanup drains the callback queue (each entry counted as dropped),
// cancels and unregisters every remaining task, unregisters every
// remaining thread, and clears the singleton. Safe to call when not
// initialized.
func Cleanup() {
	singletonMu.Lock()
	b := singleton
	singleton = nil
	singletonMu.Unlock()

	if b == nil || !b.initialized.CompareAndSwap(true, false) {
		return
	}

	b.Callbacks.Shutdown()
	b.Tasks.Shutdown()
	b.Threads.Shutdown()

	b.Log.Info("bridge cleaned up", nil)
}

// Stats returns a point-in-time snapshot of the aggregate statistics.
func (b *Bridge) Stats() stats.Snapshot {
	return b.StatsBlock.Snapshot()
}

// ResetStats zeroes every counter atomically.
func (b *Bridge) ResetStats() {
	b.StatsBlock.Reset()
}

// ErrorString is a total function over the error-code enumeration.
func ErrorString(c errs.Code) string { return errs.String(c) }

// ApplyLimits re-applies advisory MaxTasks/MaxCallbacks/EnableDebugging
// limits to the live bridge without a restart. Tasks and callbacks
// already admitted are unaffected; only future Spawn/Enqueue calls
// observe the new bounds. Implements config.Applier.
func (b *Bridge) ApplyLimits(maxTasks, maxCallbacks int64, enableDebugging bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.MaxTasks = maxTasks
	b.cfg.MaxCallbacks = maxCallbacks
	b.cfg.EnableDebugging = enableDebugging
	b.Tasks.SetMaxTasks(maxTasks)
	b.Callbacks.SetMax(int(maxCallbacks))
}

// ModuleRecord is one subsystem's entry in the module-info query surface:
// name, version, description, initialized flag, a rough memory-usage
// estimate, and an operation count drawn from Stats.
type ModuleRecord struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Description     string `json:"description"`
	Initialized     bool   `json:"initialized"`
	MemoryUsageByte int64  `json:"memory_usage_bytes"`
	OperationCount  int64  `json:"operation_count"`
}

// ModuleInfo returns the fixed five-subsystem record set named "atomics",
// "tasks", "sync", "channels", "patterns". The module count is always
// five.
func (b *Bridge) ModuleInfo() []ModuleRecord {
	snap := b.StatsBlock.Snapshot()
	init := b.initialized.Load()
	return []ModuleRecord{
		{
			Name:           "atomics",
			Version:        "1.0.0",
			Description:    "typed atomic counters, flags, pointers, and the goroutine-abstraction layer",
			Initialized:    init,
			OperationCount: snap.TotalOps,
		},
		{
			Name:           "tasks",
			Version:        "1.0.0",
			Description:    "task handles: spawn, await, timed-await, cancel, detach, free",
			Initialized:    init,
			OperationCount: snap.TasksSpawned,
		},
		{
			Name:           "sync",
			Version:        "1.0.0",
			Description:    "mutex, condvar, rwlock, barrier, semaphore",
			Initialized:    init,
			OperationCount: snap.MutexContentions + snap.RWLockContentions,
		},
		{
			Name:           "channels",
			Version:        "1.0.0",
			Description:    "buffered channels, select contexts, the priority callback queue",
			Initialized:    init,
			OperationCount: snap.ChannelSends + snap.ChannelReceives + snap.CallbacksEnqueued,
		},
		{
			Name:           "patterns",
			Version:        "1.0.0",
			Description:    "worker pools, fan-out/fan-in, pipelines, load balancers, multiplexers",
			Initialized:    init,
			OperationCount: snap.PatternTasksSubmitted,
		},
	}
}

// String renders a Bridge for debug logging, e.g. "bridge{tasks=3 initAt=...}".
func (b *Bridge) String() string {
	return fmt.Sprintf("bridge{tasks=%d initAt=%s}", b.Tasks.Count(), b.initAt.Format(time.RFC3339))
}
