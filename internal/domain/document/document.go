// Package document holds the stored image document aggregate.
package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/imagedex/internal/domain/tag"
)

// MaxIDLength bounds the identity key (a file name).
const MaxIDLength = 256

// Document is the unit of storage: one classified image (immutable value
// object). ID is the idempotency key — at most one stored document per ID.
type Document struct {
	id           string
	tags         tag.Set
	vector       []float32
	lastModified time.Time
}

// New validates and creates a Document.
// ID: a bare file name, 1-256 chars, no path separators or NULs.
// Tags and vector replace any previously stored state in full on upsert.
func New(id string, tags tag.Set, vector []float32, lastModified time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return Document{}, fmt.Errorf("document ID must be a bare file name")
	}
	if len(vector) == 0 {
		return Document{}, fmt.Errorf("document vector is required")
	}

	return Document{
		id:           id,
		tags:         append(tag.Set(nil), tags...),
		vector:       vector,
		lastModified: lastModified,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id string, tags tag.Set, vector []float32, lastModified time.Time) Document {
	return Document{id: id, tags: tags, vector: vector, lastModified: lastModified}
}

// ID returns the identity key.
func (d *Document) ID() string { return d.id }

// Tags returns the ordered tag list.
func (d *Document) Tags() tag.Set { return d.tags }

// Vector returns the pooled embedding fingerprint.
func (d *Document) Vector() []float32 { return d.vector }

// LastModified returns the last successful upsert time.
func (d *Document) LastModified() time.Time { return d.lastModified }
