// Package document persists image documents as Redis hashes.
package document

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imagedex/internal/domain"
	domdoc "github.com/kailas-cloud/imagedex/internal/domain/document"
	"github.com/kailas-cloud/imagedex/internal/domain/vector"
)

// upsertAttempts bounds retries against a flapping store. The attempt
// budget covers the whole call, not per-error.
const upsertAttempts = 3

const retryBackoff = 50 * time.Millisecond

// store is the consumer interface for document persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
}

// Repo stores documents under keyPrefix+id. Upsert is a single HSET, so
// create and replace are the same atomic write — no exists probe, no
// read-modify-write window.
type Repo struct {
	store     store
	keyPrefix string
	dimension int
	logger    *zap.Logger
}

// New creates a document repository writing under the given key prefix.
// dimension is enforced on every write; 0 disables the check.
func New(s store, keyPrefix string, dimension int, logger *zap.Logger) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, dimension: dimension, logger: logger}
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}

// Upsert stores the document, replacing any previous version under the same
// ID in full. Transient store errors are retried up to upsertAttempts times;
// exhaustion surfaces as domain.ErrStoreUnavailable. A failed upsert leaves
// the previously stored document untouched.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) error {
	if r.dimension > 0 {
		if err := vector.Validate(doc.Vector(), r.dimension); err != nil {
			return err
		}
	}

	fields, err := buildFields(doc)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= upsertAttempts; attempt++ {
		lastErr = r.store.HSet(ctx, r.key(doc.ID()), fields)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < upsertAttempts {
			r.logger.Warn("Upsert attempt failed, retrying",
				zap.String("id", doc.ID()),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
			}
		}
	}

	return fmt.Errorf("upsert %s: %w: %w", doc.ID(), domain.ErrStoreUnavailable, lastErr)
}

// Get loads a document by ID. A missing or empty hash is
// domain.ErrDocumentNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return domdoc.Document{}, fmt.Errorf("get %s: %w", id, domain.ErrDocumentNotFound)
	}
	return parseFields(id, fields)
}

// Delete removes a document by ID. Deleting an absent document is
// domain.ErrDocumentNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	existed, err := r.store.Del(ctx, r.key(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	if !existed {
		return fmt.Errorf("delete %s: %w", id, domain.ErrDocumentNotFound)
	}
	return nil
}
