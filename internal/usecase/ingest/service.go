// Package ingest turns an uploaded image into a stored, searchable document.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/domain"
	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
	"github.com/kailas-cloud/imagedex/internal/domain/tag"
	"github.com/kailas-cloud/imagedex/internal/domain/vector"
)

// Service handles the recognize-then-store pipeline. The stored document is
// replaced in full on every successful call with the same file name; a failure
// at any stage leaves previously stored state untouched.
type Service struct {
	repo       Repository
	classifier Classifier
	embedder   Embedder
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New creates an ingest service. timeout bounds each collaborator call
// (classifier, embedder); 0 disables the per-call deadline.
func New(repo Repository, c Classifier, e Embedder, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		classifier: c,
		embedder:   e,
		timeout:    timeout,
		now:        time.Now,
		logger:     logger,
	}
}

// RecognizeAndStore classifies the image, embeds its tag labels, pools them
// into a single fingerprint and upserts the document under fileName.
func (s *Service) RecognizeAndStore(ctx context.Context, fileName string, image []byte) (domdoc.Document, error) {
	preds, err := s.classify(ctx, image)
	if err != nil {
		return domdoc.Document{}, err
	}

	tags := tag.FromPredictions(preds)

	fingerprint, err := s.fingerprint(ctx, tags)
	if err != nil {
		return domdoc.Document{}, err
	}

	doc, err := domdoc.New(fileName, tags, fingerprint, s.now().UTC())
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("build document: %w", err)
	}

	if err := s.repo.Upsert(ctx, &doc); err != nil {
		return domdoc.Document{}, err
	}

	s.logger.Info("Stored image document",
		zap.String("id", doc.ID()),
		zap.Int("tags", len(tags)),
		zap.Int("dimensions", len(fingerprint)),
	)
	return doc, nil
}

// Get retrieves a stored document by file name.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a stored document by file name.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) classify(ctx context.Context, image []byte) ([][]domain.Prediction, error) {
	cctx, cancel := s.collaboratorCtx(ctx)
	defer cancel()

	preds, err := s.classifier.Classify(cctx, image)
	if err != nil {
		return nil, s.mapTimeout(ctx, fmt.Errorf("classify image: %w", err))
	}
	return preds, nil
}

// fingerprint embeds every tag label and mean-pools the vectors. Zero tags
// means zero vectors, which Mean reports as domain.ErrEmptyInput.
func (s *Service) fingerprint(ctx context.Context, tags tag.Set) ([]float32, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags to embed: %w", domain.ErrEmptyInput)
	}

	ectx, cancel := s.collaboratorCtx(ctx)
	defer cancel()

	batch, err := domain.EmbedAll(ectx, s.embedder, tags.Labels())
	if err != nil {
		return nil, s.mapTimeout(ctx, fmt.Errorf("embed tags: %w", err))
	}

	pooled, err := vector.Mean(batch.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("pool embeddings: %w", err)
	}
	return pooled, nil
}

func (s *Service) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// mapTimeout converts a collaborator deadline hit into the timeout sentinel.
// A deadline inherited from the caller stays a plain context error.
func (s *Service) mapTimeout(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("%w: %w", domain.ErrCollaboratorTimeout, err)
	}
	return err
}
