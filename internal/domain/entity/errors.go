package entity

import "errors"

// Pipeline and retrieval failure taxonomy. Callers match with errors.Is;
// wrapped causes carry the detail.
var (
	// ErrExtractionFailed means the extraction collaborator could not
	// produce text. Terminal cause for a pipeline run.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmptyDocument means extraction returned no usable text. The
	// pipeline must fail rather than produce zero chunks silently.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrEmbeddingBackend is surfaced only when every configured
	// embedding backend failed to initialize.
	ErrEmbeddingBackend = errors.New("embedding backend unavailable")

	// ErrGenerationBackend marks a terminal stream failure from the
	// text-generation collaborator. Never retried internally.
	ErrGenerationBackend = errors.New("generation backend error")

	// ErrDuplicateProcessing is the no-op result of starting a pipeline
	// for a document that already has one in flight.
	ErrDuplicateProcessing = errors.New("document is already being processed")

	// ErrDimensionMismatch is a programming invariant violation: a
	// vector of the wrong width reached the store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
