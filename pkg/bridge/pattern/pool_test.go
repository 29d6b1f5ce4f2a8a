package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

func TestPoolSubmitAndDrain(t *testing.T) {
	st := stats.New()
	pool := NewPool[int, int](4, 8, st)
	require.NoError(t, pool.Start())

	const n = 20
	for i := 0; i < n; i++ {
		job := Job[int, int]{
			ID:  "job",
			Fn:  func(ctx context.Context, arg int) (int, error) { return arg * arg, nil },
			Arg: i,
		}
		require.NoError(t, pool.SubmitBlocking(context.Background(), job))
	}

	seen := 0
	for seen < n {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		res, err := pool.Results().Receive(ctx)
		cancel()
		require.NoError(t, err)
		require.NoError(t, res.Err)
		seen++
	}

	require.NoError(t, pool.Shutdown(time.Second))
	snap := pool.Stats()
	require.Equal(t, int64(n), snap.Submitted)
	require.Equal(t, int64(n), snap.Completed)
	require.Equal(t, int64(0), snap.Failed)
}

func TestPoolSubmitBatchOrdersResults(t *testing.T) {
	pool := NewPool[int, int](2, 4, nil)
	require.NoError(t, pool.Start())
	defer pool.Shutdown(time.Second)

	jobs := make([]Job[int, int], 10)
	for i := range jobs {
		i := i
		jobs[i] = Job[int, int]{
			ID: "b",
			Fn: func(ctx context.Context, arg int) (int, error) {
				time.Sleep(time.Duration(10-arg) * time.Millisecond)
				return arg + 1, nil
			},
			Arg: i,
		}
	}

	results, err := pool.SubmitBatch(context.Background(), jobs, 3)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, i+1, r.Value)
	}
}

func TestPoolSubmitFullQueue(t *testing.T) {
	pool := NewPool[int, int](1, 1, nil)
	require.NoError(t, pool.Start())
	defer pool.Shutdown(time.Second)

	block := make(chan struct{})
	require.NoError(t, pool.Submit(Job[int, int]{
		Fn: func(ctx context.Context, arg int) (int, error) {
			<-block
			return 0, nil
		},
	}))
	time.Sleep(20 * time.Millisecond) // let the worker dequeue the blocking job
	require.NoError(t, pool.Submit(Job[int, int]{Fn: func(ctx context.Context, arg int) (int, error) { return 0, nil }}))

	err := pool.Submit(Job[int, int]{Fn: func(ctx context.Context, arg int) (int, error) { return 0, nil }})
	require.Error(t, err)

	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	_, err = pool.Results().Receive(ctx)
	cancel()
	require.NoError(t, err)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	_, err = pool.Results().Receive(ctx2)
	cancel2()
	require.NoError(t, err)
}
