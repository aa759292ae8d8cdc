// Package tag normalizes classifier output into an ordered tag list.
package tag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

// Tag is one classifier label with its confidence, immutable once produced.
type Tag struct {
	Label      string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// Set is an ordered tag sequence. Insertion order is the classifier's output
// order. Duplicates are preserved — deduplicating before pooling would change
// the stored fingerprints, so repeated labels deliberately skew the mean.
type Set []Tag

// FromPredictions flattens the classifier's nested per-image output into a
// flat ordered Set. No dedup, no sort, no confidence floor: callers that want
// filtering apply it before building the Set, so the classifier's full output
// stays inspectable.
func FromPredictions(preds [][]domain.Prediction) Set {
	var n int
	for _, p := range preds {
		n += len(p)
	}
	out := make(Set, 0, n)
	for _, image := range preds {
		for _, p := range image {
			out = append(out, Tag{Label: p.Label, Confidence: p.Confidence})
		}
	}
	return out
}

// Labels returns the tag labels in order, duplicates included.
func (s Set) Labels() []string {
	labels := make([]string, len(s))
	for i, t := range s {
		labels[i] = t.Label
	}
	return labels
}

// TopConfidence returns the highest confidence in the set, 0 for an empty set.
func (s Set) TopConfidence() float64 {
	var top float64
	for _, t := range s {
		if t.Confidence > top {
			top = t.Confidence
		}
	}
	return top
}

// MarshalText encodes the set as a JSON array for hash-field storage.
func (s Set) MarshalText() ([]byte, error) {
	data, err := json.Marshal([]Tag(s))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return data, nil
}

// ParseSet decodes a Set from its hash-field representation.
func ParseSet(data []byte) (Set, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	return Set(tags), nil
}

// JoinLabels renders labels as a separator-joined string for TAG indexing.
func (s Set) JoinLabels(sep string) string {
	return strings.Join(s.Labels(), sep)
}
