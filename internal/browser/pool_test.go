package browser

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rozvidka/rozvidka/internal/catalog"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubRenderer tracks concurrent sessions and serves a canned result.
type stubRenderer struct {
	active atomic.Int32
	peak   atomic.Int32
	delay  time.Duration
	result catalog.GroupingResult
}

func (s *stubRenderer) FetchGrouping(ctx context.Context, url string) catalog.GroupingResult {
	n := s.active.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.active.Add(-1)
	return s.result
}

func TestPoolReturnsResults(t *testing.T) {
	stub := &stubRenderer{result: catalog.GroupingResult{Found: true, Count: 2}}
	p := NewPool(stub, 2, testLogger)
	defer p.Close()

	res := p.FetchGrouping(context.Background(), "https://example.com/p1/")
	if !res.Found || res.Count != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	stub := &stubRenderer{delay: 30 * time.Millisecond}
	p := NewPool(stub, 2, testLogger)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.FetchGrouping(context.Background(), "https://example.com/")
		}()
	}
	wg.Wait()

	if peak := stub.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent sessions, saw %d", peak)
	}
}

func TestPoolCancelledContext(t *testing.T) {
	// The busy task's delay also bounds how long Close blocks at the end.
	stub := &stubRenderer{delay: 300 * time.Millisecond}
	p := NewPool(stub, 1, testLogger)
	defer p.Close()

	// Occupy the single worker.
	go p.FetchGrouping(context.Background(), "https://example.com/busy/")
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan catalog.GroupingResult, 1)
	go func() {
		done <- p.FetchGrouping(ctx, "https://example.com/queued/")
	}()

	select {
	case res := <-done:
		if res.Found {
			t.Errorf("expected zero result on cancellation, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled submit did not return")
	}
}
