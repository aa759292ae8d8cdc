// Package result holds the search hit value object.
package result

import "github.com/kailas-cloud/imagedex/internal/domain/tag"

// Result is a single search hit. Score is cosine similarity shifted into
// [0,2] — higher is closer. The stored vector is never carried here.
type Result struct {
	id    string
	tags  tag.Set
	score float64
}

// New creates a search result.
func New(id string, score float64, tags tag.Set) Result {
	return Result{id: id, score: score, tags: tags}
}

// ID returns the document identifier (file name).
func (r *Result) ID() string { return r.id }

// Score returns the similarity score.
func (r *Result) Score() float64 { return r.score }

// Tags returns the document tags.
func (r *Result) Tags() tag.Set { return r.tags }
