package pattern

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vortexlang/cbridge/pkg/bridge/channel"
)

// Multiplexer drains a fixed list of input channels, invoking processor on
// each item while active. Stop clears the active flag; Destroy implies
// Stop. It never owns the input channels it refers to.
type Multiplexer[T any] struct {
	inputs    []*channel.Channel[T]
	processor func(context.Context, T) error

	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	firstErr error
}

// NewMultiplexer creates a multiplexer over the given inputs and processor.
func NewMultiplexer[T any](processor func(context.Context, T) error, inputs ...*channel.Channel[T]) *Multiplexer[T] {
	return &Multiplexer[T]{inputs: inputs, processor: processor}
}

// Start begins draining all inputs concurrently. Calling Start while already
// active is a no-op.
func (m *Multiplexer[T]) Start(ctx context.Context) error {
	if !m.active.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		g, gctx := errgroup.WithContext(ctx)
		for _, in := range m.inputs {
			in := in
			g.Go(func() error {
				for {
					item, err := in.Receive(gctx)
					if err != nil {
						if isChannelClosed(err) || gctx.Err() != nil {
							return nil
						}
						return err
					}
					if err := m.processor(gctx, item); err != nil {
						return err
					}
				}
			})
		}
		err := g.Wait()
		m.mu.Lock()
		m.firstErr = err
		m.mu.Unlock()
	}()

	return nil
}

// Stop clears the active flag and waits for all draining goroutines to
// exit, returning the first processor error observed, if any.
func (m *Multiplexer[T]) Stop() error {
	if !m.active.CompareAndSwap(true, false) {
		return nil
	}
	m.cancel()
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.firstErr
}

// Destroy implies Stop.
func (m *Multiplexer[T]) Destroy() error { return m.Stop() }

// IsActive reports whether the multiplexer is currently draining its
// inputs.
func (m *Multiplexer[T]) IsActive() bool { return m.active.Load() }
