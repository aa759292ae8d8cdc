package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

// BoundedEmbedder limits concurrent calls into the embedding provider with a
// weighted semaphore. Acquire honors context cancellation, so a caller whose
// deadline expires while queued never reaches the provider.
type BoundedEmbedder struct {
	inner domain.Embedder
	sem   *semaphore.Weighted
}

// NewBoundedEmbedder wraps an embedder with a concurrency limit.
// limit <= 0 means unbounded.
func NewBoundedEmbedder(inner domain.Embedder, limit int64) *BoundedEmbedder {
	var sem *semaphore.Weighted
	if limit > 0 {
		sem = semaphore.NewWeighted(limit)
	}
	return &BoundedEmbedder{inner: inner, sem: sem}
}

// Embed acquires a slot, then delegates.
func (b *BoundedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if b.sem != nil {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("acquire embed slot: %w", err)
		}
		defer b.sem.Release(1)
	}
	return b.inner.Embed(ctx, text)
}

// BatchEmbed acquires a single slot for the whole batch, then delegates.
func (b *BoundedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if b.sem != nil {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("acquire embed slot: %w", err)
		}
		defer b.sem.Release(1)
	}
	return domain.EmbedAll(ctx, b.inner, texts)
}
