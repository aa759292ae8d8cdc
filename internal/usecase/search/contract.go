package search

import (
	"context"

	"github.com/kailas-cloud/imagedex/internal/domain"
	"github.com/kailas-cloud/imagedex/internal/domain/search/result"
)

// Repository defines the KNN search contract.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Result, error)
}

// Embedder vectorizes query tokens into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
