package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

type slowEmbedder struct {
	delay    time.Duration
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (s *slowEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if cur <= seen || s.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return domain.EmbeddingResult{}, ctx.Err()
	}
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

func TestBoundedEmbedder_LimitsConcurrency(t *testing.T) {
	inner := &slowEmbedder{delay: 20 * time.Millisecond}
	bounded := NewBoundedEmbedder(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := bounded.Embed(context.Background(), "cat"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if max := inner.maxSeen.Load(); max > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", max)
	}
}

func TestBoundedEmbedder_CancelledWhileQueued(t *testing.T) {
	inner := &slowEmbedder{delay: 100 * time.Millisecond}
	bounded := NewBoundedEmbedder(inner, 1)

	// Occupy the only slot.
	go func() { _, _ = bounded.Embed(context.Background(), "hold") }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bounded.Embed(ctx, "queued")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded for queued call, got %v", err)
	}
}

func TestBoundedEmbedder_ZeroLimitIsUnbounded(t *testing.T) {
	inner := &slowEmbedder{}
	bounded := NewBoundedEmbedder(inner, 0)

	if _, err := bounded.Embed(context.Background(), "cat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
