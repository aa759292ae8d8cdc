package domain

import "errors"

var (
	// ErrEmptyInput signals an aggregation over zero vectors.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmptyQuery signals a query that tokenized to nothing.
	ErrEmptyQuery = errors.New("empty query")
	// ErrDimensionMismatch signals an embedding dimension inconsistency.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidVector signals a non-finite embedding component.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSchemaConflict signals an index definition the store rejected.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrClassifierUnavailable signals a classifier provider failure.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals a store failure after bounded retries.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCollaboratorTimeout signals a collaborator deadline hit.
	ErrCollaboratorTimeout = errors.New("collaborator timeout")
)
