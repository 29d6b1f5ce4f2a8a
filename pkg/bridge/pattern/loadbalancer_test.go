package pattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, workerCount int) *Pool[int, int] {
	t.Helper()
	p := NewPool[int, int](workerCount, 4, nil)
	require.NoError(t, p.Start())
	t.Cleanup(func() { p.Shutdown(time.Second) })
	return p
}

func TestLoadBalancerRoundRobin(t *testing.T) {
	a := newTestPool(t, 1)
	b := newTestPool(t, 1)
	lb := NewLoadBalancer(RoundRobin, AsHandle(a), AsHandle(b))

	idx1, err := lb.Route()
	require.NoError(t, err)
	idx2, err := lb.Route()
	require.NoError(t, err)
	idx3, err := lb.Route()
	require.NoError(t, err)

	require.Equal(t, 0, idx1)
	require.Equal(t, 1, idx2)
	require.Equal(t, 0, idx3)
}

func TestLoadBalancerNoPoolsFails(t *testing.T) {
	lb := NewLoadBalancer(RoundRobin)
	_, err := lb.Route()
	require.Error(t, err)
}

func TestLoadBalancerSubmitRoutesJob(t *testing.T) {
	a := newTestPool(t, 1)
	lb := NewLoadBalancer(RoundRobin, AsHandle(a))

	done := make(chan struct{})
	err := lb.Submit(Job[int, int]{
		Fn: func(ctx context.Context, v int) (int, error) {
			close(done)
			return v, nil
		},
		Arg: 5,
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran on the routed pool")
	}
}
