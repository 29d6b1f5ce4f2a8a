package syncprim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
)

func TestCondVarSignalWakesOneWaiter(t *testing.T) {
	var mu sync.Mutex
	cv := NewCondVar("ready", nil)
	ready := false
	woken := make(chan struct{})

	go func() {
		mu.Lock()
		for !ready {
			cv.Wait(&mu)
		}
		mu.Unlock()
		close(woken)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	ready = true
	mu.Unlock()
	cv.Signal()

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after Signal")
	}
	if cv.SignalCount() != 1 {
		t.Fatalf("expected 1 signal, got %d", cv.SignalCount())
	}
}

func TestCondVarBroadcastWakesAll(t *testing.T) {
	var mu sync.Mutex
	cv := NewCondVar("all", nil)
	ready := false

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			for !ready {
				cv.Wait(&mu)
			}
			mu.Unlock()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	ready = true
	mu.Unlock()
	cv.Broadcast()

	doneCh := make(chan struct{})
	go func() { wg.Wait(); close(doneCh) }()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("not all waiters woke after Broadcast")
	}
}

func TestCondVarTimedWaitExpires(t *testing.T) {
	var mu sync.Mutex
	cv := NewCondVar("timeout", nil)

	mu.Lock()
	err := cv.TimedWait(&mu, 20*time.Millisecond)
	mu.Unlock()

	if !errors.Is(err, errs.New(errs.TaskTimeout)) {
		t.Fatalf("expected TaskTimeout, got %v", err)
	}
}

func TestCondVarTimedWaitSignalledBeforeDeadline(t *testing.T) {
	var mu sync.Mutex
	cv := NewCondVar("fast", nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cv.Signal()
	}()

	mu.Lock()
	err := cv.TimedWait(&mu, time.Second)
	mu.Unlock()

	if err != nil {
		t.Fatalf("expected nil error on timely signal, got %v", err)
	}
}
