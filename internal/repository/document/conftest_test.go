package document

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
	"github.com/kailas-cloud/imagedex/internal/domain/tag"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn    func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn func(ctx context.Context, key string) (map[string]string, error)
	delFn     func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) (bool, error) {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return true, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "imagedex:images:", 4, zap.NewNop())
	return repo, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(
		"cat.jpg",
		tag.Set{{Label: "cat", Confidence: 0.97}, {Label: "pet", Confidence: 0.61}},
		[]float32{0.1, 0.2, 0.3, 0.4},
		time.UnixMilli(1700000000000).UTC(),
	)
	if err != nil {
		t.Fatalf("unexpected error building document: %v", err)
	}
	return doc
}
