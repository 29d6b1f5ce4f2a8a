// Package channel implements the bridge's buffered channel type and the
// select context used to compose waits across several of them. A
// zero-capacity channel is treated as an explicit error path
// (Unimplemented) rather than guessing at true rendezvous semantics.
package channel

import (
	"context"
	"sync"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// Channel is a fixed-capacity ring buffer of T with blocking and
// non-blocking send/receive. The source guards its ring buffer with a
// mutex and a pair of condition variables ("not_full" / "not_empty"); here
// those are modeled as broadcast-and-regenerate gates (the same idiom used
// by the barrier primitive) so a blocked Send/Receive can select on the
// caller's context alongside the wake signal, rather than only a fixed
// timeout.
type Channel[T any] struct {
	Name string

	mu       sync.Mutex
	buf      []T
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	notFull  chan struct{}
	notEmpty chan struct{}

	st *stats.Stats
}

// New creates a channel of the given capacity. Capacity zero is accepted
// at construction time (so a select context can still reference it) but
// every Send/TrySend on it fails with Unimplemented.
func New[T any](name string, capacity int, st *stats.Stats) *Channel[T] {
	c := &Channel[T]{
		Name:     name,
		capacity: capacity,
		st:       st,
		notFull:  make(chan struct{}),
		notEmpty: make(chan struct{}),
	}
	if capacity > 0 {
		c.buf = make([]T, capacity)
	}
	return c
}

func (c *Channel[T]) wakeNotFull()  { close(c.notFull); c.notFull = make(chan struct{}) }
func (c *Channel[T]) wakeNotEmpty() { close(c.notEmpty); c.notEmpty = make(chan struct{}) }

// Send blocks until there is room, the channel closes, or ctx is done. It
// returns ChannelClosed, TaskTimeout (ctx expired) or Unimplemented
// (zero-capacity channel).
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	if c.capacity == 0 {
		return errs.New(errs.Unimplemented)
	}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return errs.New(errs.ChannelClosed)
		}
		if c.count < c.capacity {
			c.enqueueLocked(value)
			c.mu.Unlock()
			return nil
		}
		gate := c.notFull
		c.mu.Unlock()

		select {
		case <-gate:
		case <-ctx.Done():
			return errs.New(errs.TaskTimeout)
		}
	}
}

// TrySend attempts Send without blocking, returning WouldBlock if the
// buffer is currently full.
func (c *Channel[T]) TrySend(value T) error {
	if c.capacity == 0 {
		return errs.New(errs.Unimplemented)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errs.New(errs.ChannelClosed)
	}
	if c.count == c.capacity {
		return errs.New(errs.WouldBlock)
	}
	c.enqueueLocked(value)
	return nil
}

func (c *Channel[T]) enqueueLocked(value T) {
	c.buf[c.tail] = value
	c.tail = (c.tail + 1) % c.capacity
	c.count++
	if c.st != nil {
		c.st.Channel.Sends.Add(1)
	}
	c.wakeNotEmpty()
}

// Receive blocks until a value is available, the channel closes with
// nothing buffered, or ctx is done.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		if c.count > 0 {
			v := c.dequeueLocked()
			c.mu.Unlock()
			return v, nil
		}
		if c.closed {
			c.mu.Unlock()
			return zero, errs.New(errs.ChannelClosed)
		}
		gate := c.notEmpty
		c.mu.Unlock()

		select {
		case <-gate:
		case <-ctx.Done():
			return zero, errs.New(errs.TaskTimeout)
		}
	}
}

// TryRecv attempts Receive without blocking, returning WouldBlock if the
// buffer is currently empty and the channel is not closed.
func (c *Channel[T]) TryRecv() (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 {
		return c.dequeueLocked(), nil
	}
	if c.closed {
		return zero, errs.New(errs.ChannelClosed)
	}
	return zero, errs.New(errs.WouldBlock)
}

func (c *Channel[T]) dequeueLocked() T {
	v := c.buf[c.head]
	var zero T
	c.buf[c.head] = zero
	c.head = (c.head + 1) % c.capacity
	c.count--
	if c.st != nil {
		c.st.Channel.Receives.Add(1)
	}
	c.wakeNotFull()
	return v
}

// Close marks the channel closed and wakes every blocked Send/Receive so
// they re-check their predicate and return ChannelClosed. Closing an
// already-closed channel is a no-op.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.wakeNotFull()
	c.wakeNotEmpty()
}

// Destroy closes the channel and releases its buffer.
func (c *Channel[T]) Destroy() {
	c.Close()
	c.mu.Lock()
	c.buf = nil
	c.mu.Unlock()
}

// Len returns the number of buffered elements.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Cap returns the channel's fixed capacity.
func (c *Channel[T]) Cap() int { return c.capacity }

// IsEmpty reports whether the buffer currently holds no elements.
func (c *Channel[T]) IsEmpty() bool { return c.Len() == 0 }

// IsFull reports whether the buffer is at capacity.
func (c *Channel[T]) IsFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity > 0 && c.count == c.capacity
}

// IsClosed reports whether Close has been called.
func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
