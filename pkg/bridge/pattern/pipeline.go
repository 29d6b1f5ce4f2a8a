package pattern

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vortexlang/cbridge/pkg/bridge/channel"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

// Stage is one pipeline stage. Its item type is erased to any, the same
// type-erasure idiom pkg/bridge/channel/select.go uses for its heterogeneous
// entry list, since a pipeline's K stages may each transform to a different
// concrete type.
type Stage func(context.Context, any) (any, error)

// Pipeline wires K stages item-by-item through K-1 internal intermediate
// channels: in -> f1 -> c1 -> f2 -> ... -> c(K-1) -> fK -> out. The
// pipeline owns its intermediate channels; it never owns the
// caller-supplied in/out channels.
type Pipeline struct {
	stages []Stage
	inter  []*channel.Channel[any]
	st     *stats.Stats
}

// NewPipeline creates a pipeline over the given stages, each intermediate
// channel sized capacity.
func NewPipeline(capacity int, st *stats.Stats, stages ...Stage) *Pipeline {
	p := &Pipeline{stages: stages, st: st}
	for i := 0; i < len(stages)-1; i++ {
		p.inter = append(p.inter, channel.New[any]("pipeline.stage", capacity, st))
	}
	return p
}

// Run drains in through every stage into out, counting items that reach the
// output. The first stage failure cancels every other stage via errgroup.
func (p *Pipeline) Run(ctx context.Context, in *channel.Channel[any], out *channel.Channel[any]) error {
	if len(p.stages) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	stageIn := func(i int) *channel.Channel[any] {
		if i == 0 {
			return in
		}
		return p.inter[i-1]
	}
	stageOut := func(i int) *channel.Channel[any] {
		if i == len(p.stages)-1 {
			return out
		}
		return p.inter[i]
	}

	for i, stage := range p.stages {
		i, stage := i, stage
		src, dst := stageIn(i), stageOut(i)
		last := i == len(p.stages)-1

		g.Go(func() error {
			for {
				item, err := src.Receive(gctx)
				if err != nil {
					if isChannelClosed(err) {
						if i < len(p.stages)-1 {
							dst.Close()
						}
						return nil
					}
					return err
				}

				result, err := stage(gctx, item)
				if err != nil {
					return err
				}
				if err := dst.Send(gctx, result); err != nil {
					return err
				}
				if last && p.st != nil {
					p.st.Pattern.ItemsRouted.Add(1)
				}
			}
		})
	}

	return g.Wait()
}
