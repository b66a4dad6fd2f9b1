package entities

import "errors"

// Error kinds surfaced by the retrieval pipeline. Callers wrap the upstream
// cause with fmt.Errorf("%w: %w", ErrX, err) and match with errors.Is.
var (
	// ErrEmbedding means the embedding gateway failed or returned no vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrExtraction means text could not be extracted from a source file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrCompletion means the completion gateway failed.
	ErrCompletion = errors.New("completion failed")

	// ErrNoMatch means the store is empty or nothing could be ranked.
	ErrNoMatch = errors.New("no similar documents found")

	// ErrDimensionMismatch means two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
