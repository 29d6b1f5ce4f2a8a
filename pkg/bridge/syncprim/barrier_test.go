package syncprim

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBarrierReleasesAllPartiesWithOneLeader(t *testing.T) {
	const parties = 3
	b := NewBarrier("three", parties)

	var leaders int32
	var wg sync.WaitGroup
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			leader, err := b.Wait()
			if err != nil {
				t.Errorf("Wait failed: %v", err)
				return
			}
			if leader {
				atomic.AddInt32(&leaders, 1)
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all parties were released")
	}

	if leaders != 1 {
		t.Fatalf("expected exactly 1 leader, got %d", leaders)
	}
	if b.Generation() != 1 {
		t.Fatalf("expected generation 1 after one full round, got %d", b.Generation())
	}
}

func TestBarrierAdvancesAcrossGenerations(t *testing.T) {
	b := NewBarrier("two", 2)

	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				if _, err := b.Wait(); err != nil {
					t.Errorf("round %d: Wait failed: %v", round, err)
				}
			}()
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("round %d: barrier never released", round)
		}
	}

	if b.Generation() != 3 {
		t.Fatalf("expected generation 3 after three rounds, got %d", b.Generation())
	}
}

func TestBarrierResetBreaksWaiters(t *testing.T) {
	b := NewBarrier("reset", 2)

	errCh := make(chan error, 1)
	go func() {
		_, err := b.Wait()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	b.Reset()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error from the broken barrier")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after Reset")
	}
}
