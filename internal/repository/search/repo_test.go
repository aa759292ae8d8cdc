package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/imagedex/internal/db"
	"github.com/kailas-cloud/imagedex/internal/domain"
)

func TestSearchKNN_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "imagedex:images:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.K != 2 {
			t.Errorf("unexpected k: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:    "imagedex:images:cat.jpg",
					Score:  1.93,
					Fields: map[string]string{"tags": `[{"tag":"cat","confidence":0.97}]`},
				},
				{
					Key:    "imagedex:images:dog.jpg",
					Score:  1.41,
					Fields: map[string]string{"tags": `[{"tag":"dog","confidence":0.88}]`},
				},
			},
		}, nil
	}

	results, err := repo.SearchKNN(ctx, []float32{0.1, 0.2}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID() != "cat.jpg" {
		t.Fatalf("expected first ID cat.jpg, got %s", results[0].ID())
	}
	if results[0].Score() != 1.93 {
		t.Fatalf("expected score 1.93, got %v", results[0].Score())
	}
	if len(results[0].Tags()) != 1 || results[0].Tags()[0].Label != "cat" {
		t.Fatalf("unexpected tags: %v", results[0].Tags())
	}
}

func TestSearchKNN_RequestsScoreField(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	var gotReturn []string
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		gotReturn = q.ReturnFields
		return &db.SearchResult{}, nil
	}

	if _, err := repo.SearchKNN(ctx, []float32{0.1}, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// RETURN narrows the reply to the listed fields, so the score field has
	// to be part of the list or every entry comes back with score 0.
	for _, want := range []string{"tags", "__vector_score"} {
		found := false
		for _, f := range gotReturn {
			if f == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q in ReturnFields, got %v", want, gotReturn)
		}
	}
}

func TestSearchKNN_MissingIndexIsEmpty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	results, err := repo.SearchKNN(ctx, []float32{0.1}, 5)
	if err != nil {
		t.Fatalf("expected nil error for missing index, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestSearchKNN_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("connection refused")
	}

	_, err := repo.SearchKNN(ctx, []float32{0.1}, 5)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSearchKNN_EntryWithoutTags(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total:   1,
			Entries: []db.SearchEntry{{Key: "imagedex:images:bare.jpg", Score: 0.5}},
		}, nil
	}

	results, err := repo.SearchKNN(ctx, []float32{0.1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || len(results[0].Tags()) != 0 {
		t.Fatalf("expected one tagless result, got %v", results)
	}
}

func TestCount_MissingIndexIsZero(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	ms.searchCountFn = func(_ context.Context, _, _ string) (int, error) {
		return 0, db.ErrIndexNotFound
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}
