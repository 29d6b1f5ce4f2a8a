package syncprim

import (
	"sync"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

// Barrier releases partyCount waiters together once they have all arrived,
// designating exactly one of them "leader" per generation, then advancing
// to the next generation. Reset marks the current generation broken, waking
// every current waiter with an error, then reinitializes for a fresh
// generation.
type Barrier struct {
	Name       string
	partyCount int

	mu      sync.Mutex
	gen     uint64
	waiting int
	cur     *generation
}

type generation struct {
	ch     chan struct{}
	broken bool
}

func NewBarrier(name string, partyCount int) *Barrier {
	return &Barrier{
		Name:       name,
		partyCount: partyCount,
		cur:        &generation{ch: make(chan struct{})},
	}
}

// Wait blocks until partyCount goroutines have called Wait on the same
// generation, then returns (leader, nil); leader is true for exactly one
// caller per generation. If Reset breaks the barrier while this goroutine
// is waiting, Wait returns an error instead.
func (b *Barrier) Wait() (leader bool, err error) {
	b.mu.Lock()
	g := b.cur
	b.waiting++

	if b.waiting == b.partyCount {
		b.waiting = 0
		b.gen++
		b.cur = &generation{ch: make(chan struct{})}
		b.mu.Unlock()

		close(g.ch)
		return true, nil
	}
	b.mu.Unlock()

	<-g.ch
	if g.broken {
		return false, errs.New(errs.SystemError)
	}
	return false, nil
}

// Reset marks the barrier broken, waking every current waiter with an
// error, then reinitializes the barrier for a new generation. A no-op when
// no one is currently waiting.
func (b *Barrier) Reset() {
	b.mu.Lock()
	if b.waiting == 0 {
		b.mu.Unlock()
		return
	}
	g := b.cur
	g.broken = true
	b.waiting = 0
	b.gen++
	b.cur = &generation{ch: make(chan struct{})}
	b.mu.Unlock()

	close(g.ch)
}

// Destroy breaks the barrier, releasing any current waiters with an error.
func (b *Barrier) Destroy() {
	b.Reset()
}

// Generation returns the current generation number.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Waiting returns how many parties have arrived for the current generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting
}
