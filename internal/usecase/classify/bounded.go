// Package classify decorates the classifier with concurrency bounds.
package classify

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

// BoundedClassifier limits concurrent calls into the classifier. Inference
// is memory-heavy on the provider side, so the bound is the service's main
// backpressure valve for uploads.
type BoundedClassifier struct {
	inner domain.Classifier
	sem   *semaphore.Weighted
}

// NewBoundedClassifier wraps a classifier with a concurrency limit.
// limit <= 0 means unbounded.
func NewBoundedClassifier(inner domain.Classifier, limit int64) *BoundedClassifier {
	var sem *semaphore.Weighted
	if limit > 0 {
		sem = semaphore.NewWeighted(limit)
	}
	return &BoundedClassifier{inner: inner, sem: sem}
}

// Classify acquires a slot, then delegates.
func (b *BoundedClassifier) Classify(ctx context.Context, image []byte) ([][]domain.Prediction, error) {
	if b.sem != nil {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquire classify slot: %w", err)
		}
		defer b.sem.Release(1)
	}
	return b.inner.Classify(ctx, image)
}
