package channel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vortexlang/cbridge/pkg/bridge/errs"
	"github.com/vortexlang/cbridge/pkg/bridge/stats"
)

func TestSendReceiveFIFO(t *testing.T) {
	st := stats.New()
	ch := New[int]("ints", 2, st)

	if err := ch.Send(context.Background(), 1); err != nil {
		t.Fatalf("Send(1) failed: %v", err)
	}
	if err := ch.Send(context.Background(), 2); err != nil {
		t.Fatalf("Send(2) failed: %v", err)
	}
	if err := ch.TrySend(3); !errors.Is(err, errs.New(errs.WouldBlock)) {
		t.Fatalf("expected WouldBlock on full buffer, got %v", err)
	}

	v, err := ch.Receive(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("expected (1, nil), got (%d, %v)", v, err)
	}
	v, err = ch.Receive(context.Background())
	if err != nil || v != 2 {
		t.Fatalf("expected (2, nil), got (%d, %v)", v, err)
	}

	if st.Channel.Sends.Load() != 2 {
		t.Fatalf("expected 2 sends counted, got %d", st.Channel.Sends.Load())
	}
	if st.Channel.Receives.Load() != 2 {
		t.Fatalf("expected 2 receives counted, got %d", st.Channel.Receives.Load())
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	ch := New[string]("strs", 1, nil)

	result := make(chan string, 1)
	go func() {
		v, err := ch.Receive(context.Background())
		if err != nil {
			t.Errorf("Receive failed: %v", err)
			return
		}
		result <- v
	}()

	time.Sleep(20 * time.Millisecond)
	if err := ch.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case v := <-result:
		if v != "ping" {
			t.Fatalf("expected ping, got %s", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive never unblocked")
	}
}

func TestSendBlocksUntilRoom(t *testing.T) {
	ch := New[int]("ints", 1, nil)
	if err := ch.Send(context.Background(), 1); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- ch.Send(context.Background(), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second Send returned before room was freed")
	default:
	}

	if _, err := ch.Receive(context.Background()); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked Send failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Send never returned")
	}
}

func TestSendReceiveContextTimeout(t *testing.T) {
	ch := New[int]("ints", 1, nil)
	if err := ch.Send(context.Background(), 1); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ch.Send(ctx, 2); !errors.Is(err, errs.New(errs.TaskTimeout)) {
		t.Fatalf("expected TaskTimeout on full channel, got %v", err)
	}

	empty := New[int]("empty", 1, nil)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, err := empty.Receive(ctx2); !errors.Is(err, errs.New(errs.TaskTimeout)) {
		t.Fatalf("expected TaskTimeout on empty channel, got %v", err)
	}
}

func TestCloseWakesBlockedReceive(t *testing.T) {
	ch := New[int]("ints", 1, nil)

	done := make(chan error, 1)
	go func() {
		_, err := ch.Receive(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Close()

	select {
	case err := <-done:
		if !errors.Is(err, errs.New(errs.ChannelClosed)) {
			t.Fatalf("expected ChannelClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive never woke on Close")
	}
}

func TestZeroCapacityUnimplemented(t *testing.T) {
	ch := New[int]("z", 0, nil)
	if err := ch.TrySend(1); !errors.Is(err, errs.New(errs.Unimplemented)) {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
	if err := ch.Send(context.Background(), 1); !errors.Is(err, errs.New(errs.Unimplemented)) {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
}

func TestSelectExecutePicksReadyEntry(t *testing.T) {
	a := New[int]("a", 1, nil)
	b := New[int]("b", 1, nil)
	if err := b.Send(context.Background(), 77); err != nil {
		t.Fatalf("priming Send on b failed: %v", err)
	}

	sel := NewSelect()
	AddRecv(sel, a)
	idxB := AddRecv(sel, b)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	idx, val, err := sel.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if idx != idxB {
		t.Fatalf("expected entry %d to resolve, got %d", idxB, idx)
	}
	if val.(int) != 77 {
		t.Fatalf("expected 77, got %v", val)
	}
}

func TestSelectExecuteZeroTimeoutWouldBlock(t *testing.T) {
	a := New[int]("a", 1, nil)

	sel := NewSelect()
	AddRecv(sel, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := sel.Execute(ctx)
	if !errors.Is(err, errs.New(errs.WouldBlock)) {
		t.Fatalf("expected WouldBlock, got %v", err)
	}
}

func TestSelectExecuteResolvesOnLaterSend(t *testing.T) {
	a := New[int]("a", 1, nil)

	sel := NewSelect()
	idx := AddRecv(sel, a)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
		_ = a.Send(context.Background(), 5)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gotIdx, val, err := sel.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if gotIdx != idx || val.(int) != 5 {
		t.Fatalf("expected (%d, 5), got (%d, %v)", idx, gotIdx, val)
	}
	wg.Wait()
}
