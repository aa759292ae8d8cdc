// Package search runs KNN queries against the images FT index.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/imagedex/internal/db"
	"github.com/kailas-cloud/imagedex/internal/domain"
	"github.com/kailas-cloud/imagedex/internal/domain/search/result"
	"github.com/kailas-cloud/imagedex/internal/domain/tag"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a search repository over the given index.
func New(s store, indexName, keyPrefix string) *Repo {
	return &Repo{store: s, indexName: indexName, keyPrefix: keyPrefix}
}

// SearchKNN returns the topK nearest documents to vector. An absent index
// means nothing was ever indexed: that is an empty result, not an error.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]result.Result, error) {
	// __vector_score must be requested explicitly: with a RETURN clause
	// RediSearch returns only the listed fields, and the driver reads the
	// similarity score from that field.
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"tags", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search knn %s: %w: %w", r.indexName, domain.ErrStoreUnavailable, err)
	}

	return r.parseResults(sr)
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName, "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w: %w", r.indexName, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (r *Repo) parseResults(sr *db.SearchResult) ([]result.Result, error) {
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docID := strings.TrimPrefix(entry.Key, r.keyPrefix)

		tags, err := tag.ParseSet([]byte(entry.Fields["tags"]))
		if err != nil {
			return nil, fmt.Errorf("parse entry %s: %w", docID, err)
		}

		results = append(results, result.New(docID, entry.Score, tags))
	}

	return results, nil
}
