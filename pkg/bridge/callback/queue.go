// Package callback implements the bridge's bounded priority callback queue:
// a FIFO queue with a front-insert escape hatch for higher-priority
// entries, drained cooperatively by whichever caller invokes Process.
//
// The source models this as a singly linked list of entries with atomic
// head/tail pointers and a release-store publication discipline so a
// drainer never observes a half-constructed entry. This becomes a plain
// mutex-guarded ring-style slice (a Go slice append/reslice deque): entry
// construction happens before the queue mutex is ever taken, so there is no
// equivalent publication race to reproduce.
package callback

import (
	"context"
	"sync"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// Func is a queued callback invocation. It receives the context supplied at
// enqueue time and the data payload, and may return an error; a returning
// error does not abort the batch.
type Func func(ctx context.Context, data any) error

// Entry is one queued callback.
type Entry struct {
	Fn        Func
	Data      any
	Context   context.Context
	Priority  int
	CreatedAt time.Time
}

// Queue is the bounded priority callback queue. Size is capped at
// maxCallbacks; enqueue beyond that fails with CallbackQueueFull.
type Queue struct {
	mu       sync.Mutex
	entries  []Entry
	max      int
	shutdown bool

	processMu sync.Mutex // serializes Process so at most one drainer runs at a time

	enqueued  int64
	processed int64
	dropped   int64

	st *stats.Stats
}

// New creates a callback queue with the given capacity. maxCallbacks <= 0
// means unbounded.
func New(maxCallbacks int, st *stats.Stats) *Queue {
	return &Queue{max: maxCallbacks, st: st}
}

// Enqueue appends an entry to the tail. Fails with CallbackQueueFull if the
// queue is at capacity, or InitFailed if Shutdown has been called.
func (q *Queue) Enqueue(fn Func, data any, ctx context.Context, priority int) error {
	return q.enqueuePriority(fn, data, ctx, priority, false)
}

// EnqueuePriority behaves as Enqueue, except that insertAtFront places the
// entry at the head, bypassing FIFO ordering. Front-inserted entries observe
// FIFO order among themselves and precede every non-front entry already
// present at enqueue time.
func (q *Queue) EnqueuePriority(fn Func, data any, ctx context.Context, priority int, insertAtFront bool) error {
	return q.enqueuePriority(fn, data, ctx, priority, insertAtFront)
}

func (q *Queue) enqueuePriority(fn Func, data any, ctx context.Context, priority int, insertAtFront bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e := Entry{Fn: fn, Data: data, Context: ctx, Priority: priority, CreatedAt: time.Now()}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return errs.New(errs.InitFailed)
	}
	if q.max > 0 && len(q.entries) >= q.max {
		return errs.New(errs.CallbackQueueFull)
	}

	if insertAtFront {
		q.entries = append([]Entry{e}, q.entries...)
	} else {
		q.entries = append(q.entries, e)
	}

	q.enqueued++
	if q.st != nil {
		q.st.Channel.CallbacksEnqueued.Add(1)
	}
	return nil
}

// Process pops up to n entries from the head, invokes each outside the
// queue lock, and counts them processed. At most one Process call runs at a
// time per queue, enforced by a dedicated process mutex; a concurrent
// caller blocks until the current drain finishes. Returns the number
// invoked.
func (q *Queue) Process(n int) int {
	q.processMu.Lock()
	defer q.processMu.Unlock()

	batch := q.popBatch(n)
	for _, e := range batch {
		_ = e.Fn(e.Context, e.Data)
	}

	if len(batch) > 0 {
		q.mu.Lock()
		q.processed += int64(len(batch))
		q.mu.Unlock()
		if q.st != nil {
			q.st.Channel.CallbacksProcessed.Add(int64(len(batch)))
		}
	}
	return len(batch)
}

func (q *Queue) popBatch(n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.entries) {
		n = len(q.entries)
	}
	batch := make([]Entry, n)
	copy(batch, q.entries[:n])
	q.entries = q.entries[n:]
	return batch
}

// Size returns the number of entries currently queued.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsEmpty reports whether the queue currently holds no entries.
func (q *Queue) IsEmpty() bool { return q.Size() == 0 }

// IsFull reports whether the queue is at its bounded capacity.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.max > 0 && len(q.entries) >= q.max
}

// SetMax updates the capacity advisorily: entries already queued are
// unaffected, only future Enqueue calls observe the new bound.
func (q *Queue) SetMax(maxCallbacks int) {
	q.mu.Lock()
	q.max = maxCallbacks
	q.mu.Unlock()
}

// Clear discards every queued entry without invoking it, counting each as
// dropped.
func (q *Queue) Clear() {
	q.mu.Lock()
	n := int64(len(q.entries))
	q.entries = nil
	q.dropped += n
	q.mu.Unlock()
	if q.st != nil {
		q.st.Channel.CallbacksDropped.Add(n)
	}
}

// Shutdown marks the queue closed to further enqueues, then drains every
// remaining entry without invoking it, counting each as dropped.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()
	q.Clear()
}

// Stats is a point-in-time snapshot of the queue's totals.
type Stats struct {
	Enqueued  int64
	Processed int64
	Dropped   int64
	Size      int
}

// StatsSnapshot returns the queue's current totals. callbacks_enqueued ==
// callbacks_processed + callbacks_dropped + size holds at every quiescent
// point.
func (q *Queue) StatsSnapshot() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Enqueued:  q.enqueued,
		Processed: q.processed,
		Dropped:   q.dropped,
		Size:      len(q.entries),
	}
}

// Dump returns a snapshot copy of every currently queued entry, head first.
// Intended for introspection/debugging, not for mutation.
func (q *Queue) Dump() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
