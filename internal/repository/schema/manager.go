// Package schema ensures the images FT index exists before any write.
package schema

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/db"
	"github.com/kailas-cloud/imagedex/internal/domain"
)

// store is the consumer interface for schema management (ISP).
type store interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Manager creates the images index on first run and is a no-op afterwards.
// An existing index is NOT validated against the expected schema: a
// mismatched pre-existing index is a deployment error for the operator,
// never auto-corrected.
type Manager struct {
	store     store
	index     string
	dimension int
	hnsw      HNSWConfig
	logger    *zap.Logger
}

// New creates a schema manager for the named index with vector dimension dim.
func New(s store, index string, dim int, logger *zap.Logger) *Manager {
	return &Manager{store: s, index: index, dimension: dim, logger: logger}
}

// WithHNSW overrides HNSW build parameters.
func (m *Manager) WithHNSW(cfg HNSWConfig) *Manager {
	m.hnsw = cfg
	return m
}

// IndexName returns the fully prefixed FT index name.
func (m *Manager) IndexName() string {
	return domain.KeyPrefix + m.index + ":idx"
}

// KeyPrefix returns the hash key prefix covered by the index.
func (m *Manager) KeyPrefix() string {
	return domain.KeyPrefix + m.index + ":"
}

// Ensure creates the index if absent; present means done. A lost creation
// race ("index already exists") also means done — some other instance won.
// Callers block on this once per process lifetime, before serving requests.
func (m *Manager) Ensure(ctx context.Context) error {
	exists, err := m.store.IndexExists(ctx, m.IndexName())
	if err != nil {
		return fmt.Errorf("probe index %s: %w", m.IndexName(), err)
	}
	if exists {
		m.logger.Debug("Index already present", zap.String("index", m.IndexName()))
		return nil
	}

	def := m.buildDefinition()
	if err := m.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w: %w", m.IndexName(), domain.ErrSchemaConflict, err)
	}

	m.logger.Info("Created index",
		zap.String("index", m.IndexName()),
		zap.Int("dimensions", m.dimension),
	)
	return nil
}

func (m *Manager) buildDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:        m.IndexName(),
		StorageType: db.StorageHash,
		Prefixes:    []string{m.KeyPrefix()},
		Fields: []db.IndexField{
			{Name: "file_name", Type: db.IndexFieldTag},
			{Name: "tag_labels", Type: db.IndexFieldTag, TagSeparator: ","},
			{Name: "top_confidence", Type: db.IndexFieldNumeric},
			{
				Name:              "embedding",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         m.dimension,
				VectorDistance:    db.DistanceCosine,
				VectorM:           m.hnsw.M,
				VectorEFConstruct: m.hnsw.EFConstruct,
			},
		},
	}
}
