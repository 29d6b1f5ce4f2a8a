// Command cbridge-demo exercises the concurrency runtime bridge end to
// end: it boots the bridge from a config file (or defaults), spawns a
// task, runs a worker pool over a small batch of jobs, drains
// the callback queue, and serves the introspection API while it works.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge"
	"github.com/vortexlang/cbridge/pkg/bridge/config"
	"github.com/vortexlang/cbridge/pkg/bridge/introspect"
	"github.com/vortexlang/cbridge/pkg/bridge/pattern"
	"github.com/vortexlang/cbridge/pkg/bridge/task"
)

func main() {
	configPath := flag.String("config", "", "path to a bridge config JSON file")
	introspectAddr := flag.String("introspect", "", "host:port to serve the introspection API on (overrides config)")
	watch := flag.Bool("watch", false, "hot-reload the config file for advisory limit changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cbridge-demo: loading config:", err)
		os.Exit(1)
	}
	if *introspectAddr != "" {
		host, port, err := splitAddr(*introspectAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cbridge-demo: parsing -introspect:", err)
			os.Exit(1)
		}
		cfg.Introspection.Enabled = true
		cfg.Introspection.Host = host
		cfg.Introspection.Port = port
	}

	if err := bridge.InitWithConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "cbridge-demo: initializing bridge:", err)
		os.Exit(1)
	}
	defer bridge.Cleanup()

	b := bridge.Get()

	var watcher *config.Watcher
	if *watch && *configPath != "" {
		watcher, err = config.NewWatcher(*configPath, b, b.Log)
		if err != nil {
			b.Log.Warn("config watch disabled", map[string]interface{}{"error": err.Error()})
		} else if err := watcher.Start(); err != nil {
			b.Log.Warn("config watch disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer watcher.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *introspect.Server
	if cfg.Introspection.Enabled {
		srv = introspect.New(b, b.Log)
		srv.StartPeriodicBroadcast(ctx, time.Second)
		addr := fmt.Sprintf("%s:%d", cfg.Introspection.Host, cfg.Introspection.Port)
		go func() {
			if err := srv.ListenAndServe(addr); err != nil {
				b.Log.Error("introspection server stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
		b.Log.Info("introspection server listening", map[string]interface{}{"addr": addr})
	}

	runDemoWorkload(ctx, b)

	if srv != nil {
		b.Log.Info("demo workload complete, serving introspection API until interrupted", nil)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}

	snap := b.Stats()
	fmt.Printf("final stats: tasks_spawned=%d tasks_completed=%d callbacks_processed=%d pattern_tasks_completed=%d\n",
		snap.TasksSpawned, snap.TasksCompleted, snap.CallbacksProcessed, snap.PatternTasksCompleted)
}

// runDemoWorkload spawns a task, drives a worker pool over a small
// batch, and drains a handful of queued callbacks — enough to move every
// counter the introspection API reports.
func runDemoWorkload(ctx context.Context, b *bridge.Bridge) {
	type sumArgs struct{ a, b int }
	sum, err := task.SpawnWithHandle(b.Tasks, func(_ context.Context, args sumArgs) (int, error) {
		return args.a + args.b, nil
	}, sumArgs{a: 2, b: 40}, task.Options{})
	if err != nil {
		b.Log.Error("spawn failed", map[string]interface{}{"error": err.Error()})
	} else if result, err := sum.WaitTimeout(time.Second); err != nil {
		b.Log.Error("task failed", map[string]interface{}{"error": err.Error()})
	} else {
		b.Log.Info("task completed", map[string]interface{}{"result": result})
	}

	pool := pattern.NewPool[int, int](4, 8, b.StatsBlock)
	if err := pool.Start(); err != nil {
		b.Log.Error("pool start failed", map[string]interface{}{"error": err.Error()})
	} else {
		jobs := make([]pattern.Job[int, int], 0, 10)
		for i := 0; i < 10; i++ {
			i := i
			jobs = append(jobs, pattern.Job[int, int]{
				ID: fmt.Sprintf("square-%d", i),
				Fn: func(_ context.Context, n int) (int, error) { return n * n, nil },
				Arg: i,
			})
		}
		results, err := pool.SubmitBatch(ctx, jobs, 4)
		if err != nil {
			b.Log.Warn("batch submission incomplete", map[string]interface{}{"error": err.Error()})
		}
		ok := 0
		for _, r := range results {
			if r.Err == nil {
				ok++
			}
		}
		b.Log.Info("pool batch finished", map[string]interface{}{"succeeded": ok, "total": len(results)})
		_ = pool.Shutdown(2 * time.Second)
	}

	for i := 0; i < 5; i++ {
		i := i
		_ = b.Callbacks.Enqueue(func(_ context.Context, data any) error {
			b.Log.Debug("callback fired", map[string]interface{}{"data": data})
			return nil
		}, i, ctx, 0)
	}
	b.Callbacks.Process(5)
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	return host, port, nil
}
