package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

// pollInterval is how often Execute re-sweeps registered entries while
// waiting for one to become ready. Sequential attempt in registration
// order favors early-registered entries under sustained load, a known
// fairness tradeoff against a fully fair per-channel wait/notify design.
const pollInterval = time.Millisecond

type selectKind int

const (
	selectSend selectKind = iota
	selectRecv
)

// entry is the type-erased view of one registered channel operation. The
// select context itself is non-generic, since it holds a heterogeneous
// list of differently-typed channels; AddSend/AddRecv close over the
// concrete *Channel[T] at registration time.
type entry struct {
	kind    selectKind
	trySend func() error
	tryRecv func() (any, error)
}

// Select is the select context: a registration-ordered list of send/recv
// attempts executed via sequential non-blocking tries.
type Select struct {
	mu      sync.Mutex
	entries []entry
}

// NewSelect creates an empty select context.
func NewSelect() *Select {
	return &Select{}
}

// AddSend registers a send of value on ch, returning the entry's index.
func AddSend[T any](s *Select, ch *Channel[T], value T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.entries)
	s.entries = append(s.entries, entry{
		kind:    selectSend,
		trySend: func() error { return ch.TrySend(value) },
	})
	return idx
}

// AddRecv registers a receive from ch, returning the entry's index.
func AddRecv[T any](s *Select, ch *Channel[T]) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.entries)
	s.entries = append(s.entries, entry{
		kind: selectRecv,
		tryRecv: func() (any, error) {
			return ch.TryRecv()
		},
	})
	return idx
}

// Destroy discards all registered entries.
func (s *Select) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Execute sweeps every registered entry in registration order, attempting
// each with a zero-timeout try. The first to succeed (or to observe its
// channel closed) resolves the select, returning its index and, for a
// receive, the received value. If nothing is ready and ctx is already done,
// it returns WouldBlock (the zero-timeout case); otherwise it keeps
// sweeping until something resolves or ctx's deadline elapses, returning
// TaskTimeout in the latter case.
func (s *Select) Execute(ctx context.Context) (int, any, error) {
	if idx, val, err, ok := s.sweep(); ok {
		return idx, val, err
	}

	select {
	case <-ctx.Done():
		return -1, nil, errs.New(errs.WouldBlock)
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return -1, nil, errs.New(errs.TaskTimeout)
		case <-time.After(pollInterval):
		}

		if idx, val, err, ok := s.sweep(); ok {
			return idx, val, err
		}
	}
}

func (s *Select) sweep() (idx int, val any, err error, resolved bool) {
	s.mu.Lock()
	entries := s.entries
	s.mu.Unlock()

	for i, e := range entries {
		switch e.kind {
		case selectSend:
			sendErr := e.trySend()
			if sendErr == nil {
				return i, nil, nil, true
			}
			if errors.Is(sendErr, errs.New(errs.ChannelClosed)) {
				return i, nil, sendErr, true
			}
		case selectRecv:
			v, recvErr := e.tryRecv()
			if recvErr == nil {
				return i, v, nil, true
			}
			if errors.Is(recvErr, errs.New(errs.ChannelClosed)) {
				return i, nil, recvErr, true
			}
		}
	}
	return 0, nil, nil, false
}
