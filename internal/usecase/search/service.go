// Package search answers free-text queries over stored image documents.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/domain"
	"github.com/kailas-cloud/imagedex/internal/domain/search/result"
	"github.com/kailas-cloud/imagedex/internal/domain/vector"
)

// Service embeds query tokens, pools them into one vector and runs KNN
// against the stored fingerprints.
type Service struct {
	repo        Repository
	embed       Embedder
	timeout     time.Duration
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// New creates a search service. timeout bounds the embedding call; 0
// disables the per-call deadline.
func New(repo Repository, embed Embedder, timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		embed:       embed,
		timeout:     timeout,
		defaultTopK: 10,
		maxTopK:     100,
		logger:      logger,
	}
}

// WithTopK configures result count limits.
func (s *Service) WithTopK(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Search tokenizes the query on whitespace, embeds each token, pools the
// vectors and returns up to topK hits scoring at least minScore. Results are
// ordered by score descending, ties broken by ID ascending for a stable
// order across runs.
func (s *Service) Search(
	ctx context.Context, query string, topK int, minScore float64,
) ([]result.Result, error) {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("query has no tokens: %w", domain.ErrEmptyQuery)
	}

	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}

	queryVec, err := s.queryVector(ctx, tokens)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.SearchKNN(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	if minScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score() >= minScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})

	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug("Search completed",
		zap.Int("tokens", len(tokens)),
		zap.Int("hits", len(results)),
	)
	return results, nil
}

func (s *Service) queryVector(ctx context.Context, tokens []string) ([]float32, error) {
	ectx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	batch, err := domain.EmbedAll(ectx, s.embed, tokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCollaboratorTimeout, err)
		}
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	pooled, err := vector.Mean(batch.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("pool query embeddings: %w", err)
	}
	return pooled, nil
}
