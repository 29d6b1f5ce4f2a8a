package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/config"
	"github.com/vortexlang/cbridge/pkg/bridge/task"
)

func freshConfig(maxTasks, maxCallbacks int64) *config.Config {
	cfg := config.Default()
	cfg.MaxTasks = maxTasks
	cfg.MaxCallbacks = maxCallbacks
	return cfg
}

func TestInitIsIdempotentWithSameLimits(t *testing.T) {
	Cleanup()
	defer Cleanup()

	if err := InitWithConfig(freshConfig(8, 8)); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := InitWithConfig(freshConfig(8, 8)); err != nil {
		t.Fatalf("re-Init with same limits should succeed, got: %v", err)
	}
	if !IsInitialized() {
		t.Fatal("expected bridge to be initialized")
	}
}

func TestInitRejectsDifferentLimitsWhileLive(t *testing.T) {
	Cleanup()
	defer Cleanup()

	if err := InitWithConfig(freshConfig(8, 8)); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := InitWithConfig(freshConfig(16, 8)); err == nil {
		t.Fatal("expected Init with different limits to fail while already initialized")
	}
}

func TestGetPanicsBeforeInit(t *testing.T) {
	Cleanup()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected Get to panic before Init")
		}
	}()
	Get()
}

func TestCleanupDrainsAndResets(t *testing.T) {
	Cleanup()
	if err := InitWithConfig(freshConfig(8, 8)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b := Get()

	if _, err := task.Spawn(b.Tasks, func(_ context.Context, _ int) (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 0, nil
	}, 0, task.Options{}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	_ = b.Callbacks.Enqueue(func(_ context.Context, _ any) error { return nil }, nil, context.Background(), 0)

	Cleanup()
	if IsInitialized() {
		t.Fatal("expected IsInitialized false after Cleanup")
	}
	if n := b.Callbacks.Size(); n != 0 {
		t.Fatalf("expected callback queue drained by Cleanup, got size %d", n)
	}
	if dropped := b.Stats().CallbacksDropped; dropped != 1 {
		t.Fatalf("expected 1 callback counted as dropped, got %d", dropped)
	}
	if n := b.Tasks.Count(); n != 0 {
		t.Fatalf("expected task registry cleared by Cleanup, got %d handles", n)
	}
}

func TestStatsAndModuleInfo(t *testing.T) {
	Cleanup()
	defer Cleanup()

	if err := InitWithConfig(freshConfig(8, 8)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b := Get()

	h, err := task.SpawnWithHandle(b.Tasks, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	}, 21, task.Options{})
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	result, err := h.WaitTimeout(time.Second)
	if err != nil {
		t.Fatalf("WaitTimeout failed: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}

	snap := b.Stats()
	if snap.TasksSpawned < 1 || snap.TasksCompleted < 1 {
		t.Fatalf("expected spawned/completed stats to reflect the task, got %+v", snap)
	}

	records := b.ModuleInfo()
	if len(records) != 5 {
		t.Fatalf("expected 5 module records, got %d", len(records))
	}
	names := map[string]bool{}
	for _, r := range records {
		names[r.Name] = true
		if !r.Initialized {
			t.Fatalf("expected module %q to report initialized while bridge is live", r.Name)
		}
	}
	for _, want := range []string{"atomics", "tasks", "sync", "channels", "patterns"} {
		if !names[want] {
			t.Fatalf("expected module record %q in ModuleInfo output", want)
		}
	}

	b.ResetStats()
	if snap := b.Stats(); snap.TasksSpawned != 0 {
		t.Fatalf("expected stats reset to zero, got %+v", snap)
	}
}

func TestApplyLimitsHotReload(t *testing.T) {
	Cleanup()
	defer Cleanup()

	if err := InitWithConfig(freshConfig(1, 1)); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b := Get()

	block := make(chan struct{})
	if _, err := task.Spawn(b.Tasks, func(_ context.Context, _ int) (int, error) {
		<-block
		return 0, nil
	}, 0, task.Options{}); err != nil {
		t.Fatalf("first Spawn failed: %v", err)
	}

	if _, err := task.Spawn(b.Tasks, func(_ context.Context, _ int) (int, error) {
		return 0, nil
	}, 0, task.Options{}); err == nil {
		close(block)
		t.Fatal("expected second Spawn to fail at max_tasks=1")
	}

	b.ApplyLimits(4, 4, false)
	if _, err := task.Spawn(b.Tasks, func(_ context.Context, _ int) (int, error) {
		return 0, nil
	}, 0, task.Options{}); err != nil {
		close(block)
		t.Fatalf("expected Spawn to succeed after raising max_tasks, got: %v", err)
	}
	close(block)
}

func TestErrorStringIsTotal(t *testing.T) {
	if s := ErrorString(0xdead); s == "" {
		t.Fatal("expected ErrorString to return a non-empty default for unknown codes")
	}
}
