// Package pattern implements the bridge's worker-pool and composition
// layer: a worker pool whose workers consume a channel-typed task queue,
// plus fan-out/fan-in, pipeline, load-balancer and multiplexer composites
// built over pkg/bridge/channel.
//
// The pool has a submit/start/shutdown lifecycle and an ordered-result
// batch call, with jobs flowing through the bridge's own generic Channel.
// Its workers are tracked with a sync.WaitGroup; golang.org/x/sync supplies
// the semaphore behind SubmitBatch and the errgroup that supervises the
// fan-out, fan-in, pipeline and multiplexer goroutines.
package pattern

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vortexlang/cbridge/pkg/bridge/channel"
	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// Job is one unit of work submitted to a Pool: an identified function over
// an argument of type T producing a result of type R.
type Job[T any, R any] struct {
	ID  string
	Fn  func(context.Context, T) (R, error)
	Arg T
}

// JobResult is a completed Job's outcome, timed end to end.
type JobResult[R any] struct {
	ID       string
	Value    R
	Err      error
	Duration time.Duration
}

// PoolStats is a point-in-time snapshot of a Pool's counters.
type PoolStats struct {
	WorkerCount int
	Submitted   int64
	Completed   int64
	Failed      int64
	Pending     int
}

// Pool is a fixed-size worker pool draining a channel-typed task queue.
// Workers pull Job[T, R] values off an internal channel.Channel and push
// JobResult[R] values onto another.
type Pool[T any, R any] struct {
	workerCount int
	queue       *channel.Channel[Job[T, R]]
	results     *channel.Channel[JobResult[R]]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started  atomic.Bool
	shutdown atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	st *stats.Stats
}

// NewPool creates a pool with workerCount workers (runtime.NumCPU() if <=
// 0) and a task queue of the given buffer size (workerCount*2 if <= 0).
func NewPool[T any, R any](workerCount, bufferSize int, st *stats.Stats) *Pool[T, R] {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if bufferSize <= 0 {
		bufferSize = workerCount * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool[T, R]{
		workerCount: workerCount,
		queue:       channel.New[Job[T, R]]("pool.queue", bufferSize, st),
		results:     channel.New[JobResult[R]]("pool.results", bufferSize, st),
		ctx:         ctx,
		cancel:      cancel,
		st:          st,
	}
}

// Start spawns the worker goroutines. Calling Start twice, or after
// Shutdown, returns an error.
func (p *Pool[T, R]) Start() error {
	if p.shutdown.Load() {
		return errs.Newf(errs.SystemError, "pool has been shut down")
	}
	if !p.started.CompareAndSwap(false, true) {
		return errs.Newf(errs.SystemError, "pool already started")
	}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return nil
}

func (p *Pool[T, R]) worker() {
	defer p.wg.Done()
	for {
		job, err := p.queue.Receive(p.ctx)
		if err != nil {
			return
		}

		start := time.Now()
		value, jobErr := job.Fn(p.ctx, job.Arg)
		result := JobResult[R]{ID: job.ID, Value: value, Err: jobErr, Duration: time.Since(start)}

		p.completed.Add(1)
		if jobErr != nil {
			p.failed.Add(1)
		}
		if p.st != nil {
			p.st.Pattern.TasksCompleted.Add(1)
			if jobErr != nil {
				p.st.Pattern.TasksFailed.Add(1)
			}
		}

		if err := p.results.Send(p.ctx, result); err != nil {
			return
		}
	}
}

// Submit enqueues a job without blocking, failing with PoolFull if the
// queue is at capacity.
func (p *Pool[T, R]) Submit(job Job[T, R]) error {
	if !p.started.Load() {
		return errs.Newf(errs.PoolFull, "pool not started")
	}
	if err := p.queue.TrySend(job); err != nil {
		return errs.New(errs.PoolFull)
	}
	p.submitted.Add(1)
	if p.st != nil {
		p.st.Pattern.TasksSubmitted.Add(1)
	}
	return nil
}

// SubmitBlocking enqueues a job, blocking until there is room or ctx is
// done.
func (p *Pool[T, R]) SubmitBlocking(ctx context.Context, job Job[T, R]) error {
	if !p.started.Load() {
		return errs.Newf(errs.PoolFull, "pool not started")
	}
	if err := p.queue.Send(ctx, job); err != nil {
		return err
	}
	p.submitted.Add(1)
	if p.st != nil {
		p.st.Pattern.TasksSubmitted.Add(1)
	}
	return nil
}

// Results returns the pool's result channel for callers that want to stream
// results as they complete rather than batching via SubmitBatch.
func (p *Pool[T, R]) Results() *channel.Channel[JobResult[R]] { return p.results }

// SubmitBatch runs every job on its own goroutine, bypassing the task queue
// and the pool's workers, admitting at most maxConcurrent in flight at once
// via a golang.org/x/sync/semaphore.Weighted limiter (the
// ecosystem-idiomatic alternate to syncprim.Semaphore exercised elsewhere in
// the bridge), and returns results in the same order as the input jobs. If
// ctx is done before a job is admitted, that job and the rest are not run
// and ctx's error is returned alongside the partial results.
func (p *Pool[T, R]) SubmitBatch(ctx context.Context, jobs []Job[T, R], maxConcurrent int64) ([]JobResult[R], error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(p.workerCount)
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	results := make([]JobResult[R], len(jobs))
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(i int, job Job[T, R]) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			value, err := job.Fn(ctx, job.Arg)
			results[i] = JobResult[R]{ID: job.ID, Value: value, Err: err, Duration: time.Since(start)}

			p.completed.Add(1)
			if err != nil {
				p.failed.Add(1)
			}
		}(i, job)
	}
	wg.Wait()

	p.submitted.Add(int64(len(jobs)))
	if p.st != nil {
		p.st.Pattern.TasksSubmitted.Add(int64(len(jobs)))
	}
	return results, firstErr
}

// Shutdown stops accepting new work and waits for in-flight jobs to drain,
// forcing cancellation if timeout elapses first.
func (p *Pool[T, R]) Shutdown(timeout time.Duration) error {
	if !p.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	if !p.started.Load() {
		return errs.Newf(errs.SystemError, "pool not started")
	}

	p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		p.cancel()
		p.wg.Wait()
	}

	p.results.Close()
	return nil
}

// Stats returns the pool's current counters.
func (p *Pool[T, R]) Stats() PoolStats {
	return PoolStats{
		WorkerCount: p.workerCount,
		Submitted:   p.submitted.Load(),
		Completed:   p.completed.Load(),
		Failed:      p.failed.Load(),
		Pending:     p.queue.Len(),
	}
}
