package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWaitBlocksUntilSignal(t *testing.T) {
	g := New()
	released := make(chan error, 1)

	go func() { released <- g.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("Wait returned before Signal")
	case <-time.After(50 * time.Millisecond):
	}

	g.Signal()

	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Signal")
	}
}

func TestSignalBeforeWait(t *testing.T) {
	g := New()
	g.Signal()
	if !g.IsOpen() {
		t.Fatal("gate should be open")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSignalIsIdempotent(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Signal()
		}()
	}
	wg.Wait()
	g.Signal()

	if !g.IsOpen() {
		t.Fatal("gate should be open")
	}
	select {
	case <-g.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	g := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
	if g.IsOpen() {
		t.Fatal("cancelled wait must not open the gate")
	}
}
