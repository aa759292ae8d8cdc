package domain

import "context"

// Prediction is one (label, confidence) pair from the image classifier.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier is the image classification collaborator contract.
// Classify returns the classifier's raw nested output: one ordered
// prediction list per submitted image (services here submit exactly one).
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([][]Prediction, error)
}
