package httpclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHostLimiter_capsConcurrencyPerHost(t *testing.T) {
	h := NewHostLimiter(2, 0)
	var inFlight, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := h.Acquire(context.Background(), "http://one.example/stream")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			release()
		}()
	}
	wg.Wait()
	if peak > 2 {
		t.Errorf("peak in-flight = %d; want <= 2", peak)
	}
}

func TestHostLimiter_hostsIndependent(t *testing.T) {
	h := NewHostLimiter(1, 0)
	release1, err := h.Acquire(context.Background(), "http://one.example/a")
	if err != nil {
		t.Fatal(err)
	}
	defer release1()

	// A different host must not be blocked by the first host's slot.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	release2, err := h.Acquire(ctx, "http://two.example/b")
	if err != nil {
		t.Fatalf("second host blocked: %v", err)
	}
	release2()
}

func TestHostLimiter_contextCancelled(t *testing.T) {
	h := NewHostLimiter(1, 0)
	release, err := h.Acquire(context.Background(), "http://one.example/a")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.Acquire(ctx, "http://one.example/b"); err == nil {
		t.Fatal("expected context error while host slot is held")
	}
}

func TestHostLimiter_pathsShareHostSlot(t *testing.T) {
	h := NewHostLimiter(1, 0)
	release, err := h.Acquire(context.Background(), "http://one.example/a?x=1")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.Acquire(ctx, "http://one.example/other/path"); err == nil {
		t.Fatal("expected same-host acquire to block")
	}
	release()
}
