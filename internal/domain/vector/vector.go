// Package vector implements embedding aggregation (mean pooling).
package vector

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

// Mean pools a list of equal-dimension vectors into one vector by
// component-wise arithmetic mean.
//
// Mean pooling is lossy: semantically distinct inputs collapse toward a
// centroid. That is the documented contract, kept for compatibility with the
// stored fingerprints — do not swap in a weighted scheme here.
//
// Zero vectors is an error, never a silent zero result: a zero vector is
// indistinguishable from a legitimate low-magnitude embedding and would
// corrupt downstream similarity comparisons.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to aggregate: %w", domain.ErrEmptyInput)
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("zero-dimension vector: %w", domain.ErrInvalidVector)
	}

	sums := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf(
				"vector %d has dimension %d, want %d: %w",
				i, len(v), dim, domain.ErrDimensionMismatch,
			)
		}
		for j, c := range v {
			sums[j] += float64(c)
		}
	}

	n := float64(len(vectors))
	out := make([]float32, dim)
	for j, s := range sums {
		out[j] = float32(s / n)
	}

	if err := Validate(out, dim); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that v has exactly dim finite components.
func Validate(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf(
			"vector has dimension %d, want %d: %w",
			len(v), dim, domain.ErrDimensionMismatch,
		)
	}
	for j, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite component at %d: %w", j, domain.ErrInvalidVector)
		}
	}
	return nil
}
