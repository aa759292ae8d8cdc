package ingest

import (
	"context"

	"github.com/kailas-cloud/imagedex/internal/domain"
	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
)

// Repository defines the storage contract for image documents.
type Repository interface {
	Upsert(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// Classifier labels image bytes.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([][]domain.Prediction, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
