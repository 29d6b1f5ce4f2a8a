package pattern

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

// Strategy selects which pool a LoadBalancer routes the next job to.
type Strategy int

const (
	RoundRobin Strategy = iota
	LeastBusy
	RandomStrategy
)

// poolHandle is the type-erased view of a *Pool[T, R] a LoadBalancer routes
// across, since pools over different T/R types can share one balancer's
// bookkeeping (pending count, submit-without-caring-about-result).
type poolHandle interface {
	pendingCount() int
	submitErased(job any) error
}

// LoadBalancer routes jobs across a fixed list of worker pools using a
// round-robin, least-busy, or random strategy. It never owns the pools it
// refers to.
type LoadBalancer struct {
	mu       sync.Mutex
	pools    []poolHandle
	strategy Strategy
	next     atomic.Uint64
}

// NewLoadBalancer creates a balancer over the given pools with strategy.
func NewLoadBalancer(strategy Strategy, pools ...poolHandle) *LoadBalancer {
	return &LoadBalancer{pools: pools, strategy: strategy}
}

// Route selects a pool index per the configured strategy. Returns
// PoolFull (reusing the pattern-layer error family) if no pools are
// registered.
func (lb *LoadBalancer) Route() (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.pools) == 0 {
		return -1, errs.New(errs.PoolFull)
	}

	switch lb.strategy {
	case LeastBusy:
		best := 0
		bestPending := lb.pools[0].pendingCount()
		for i := 1; i < len(lb.pools); i++ {
			if p := lb.pools[i].pendingCount(); p < bestPending {
				best, bestPending = i, p
			}
		}
		return best, nil
	case RandomStrategy:
		return rand.Intn(len(lb.pools)), nil
	default: // RoundRobin
		idx := lb.next.Add(1) - 1
		return int(idx % uint64(len(lb.pools))), nil
	}
}

// Submit routes job to the selected pool, submitting it without blocking.
func (lb *LoadBalancer) Submit(job any) error {
	idx, err := lb.Route()
	if err != nil {
		return err
	}
	lb.mu.Lock()
	pool := lb.pools[idx]
	lb.mu.Unlock()
	return pool.submitErased(job)
}

// poolAdapter wraps a concrete *Pool[T, R] so it can be registered with a
// LoadBalancer regardless of its job/result types.
type poolAdapter[T any, R any] struct {
	pool *Pool[T, R]
}

// AsHandle adapts a concrete pool into the balancer's type-erased poolHandle.
func AsHandle[T any, R any](p *Pool[T, R]) poolHandle {
	return poolAdapter[T, R]{pool: p}
}

func (a poolAdapter[T, R]) pendingCount() int { return a.pool.Stats().Pending }

func (a poolAdapter[T, R]) submitErased(job any) error {
	j, ok := job.(Job[T, R])
	if !ok {
		return errs.Newf(errs.SystemError, "load balancer: job type mismatch")
	}
	return a.pool.Submit(j)
}
