package pattern

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vortexlang/cbridge/pkg/bridge/channel"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// FanOut reads items from in and distributes them across workerCount
// concurrent invocations of fn, writing each result to out. It returns once
// in is closed and drained, or the first worker failure cancels the rest.
//
// golang.org/x/sync/errgroup supervises the worker goroutines so the first
// returned error cancels the shared context and is propagated to the
// caller, rather than a bare sync.WaitGroup with no such propagation.
func FanOut[T any, R any](ctx context.Context, in *channel.Channel[T], workerCount int, fn func(context.Context, T) (R, error), out *channel.Channel[R], st *stats.Stats) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			for {
				item, err := in.Receive(gctx)
				if err != nil {
					if isChannelClosed(err) {
						return nil
					}
					return err
				}

				result, err := fn(gctx, item)
				if err != nil {
					return err
				}
				if err := out.Send(gctx, result); err != nil {
					return err
				}
				if st != nil {
					st.Pattern.ItemsRouted.Add(1)
				}
			}
		})
	}

	return g.Wait()
}

// FanIn merges every channel in ins into out, returning once all inputs are
// closed and drained or the context is done.
func FanIn[T any](ctx context.Context, ins []*channel.Channel[T], out *channel.Channel[T], st *stats.Stats) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, in := range ins {
		in := in
		g.Go(func() error {
			for {
				item, err := in.Receive(gctx)
				if err != nil {
					if isChannelClosed(err) {
						return nil
					}
					return err
				}
				if err := out.Send(gctx, item); err != nil {
					return err
				}
				if st != nil {
					st.Pattern.ItemsRouted.Add(1)
				}
			}
		})
	}

	return g.Wait()
}
