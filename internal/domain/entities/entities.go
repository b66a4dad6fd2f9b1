// Package entities contains core business entities.
// These are plain domain objects with no knowledge of storage, embedding
// providers or transport.
package entities

import "time"

// Document is the extracted text of a source file (PDF, TXT, MD).
type Document struct {
	ID        string
	Name      string // base file name, used as the chunk source
	Path      string
	Content   string
	CreatedAt time.Time
}

// Chunk is a stored, embedded piece of a document.
// Chunks are immutable once inserted; the store assigns ID and CreatedAt.
type Chunk struct {
	ID          string
	Title       string // "{file} - Part {n}"
	Description string // the chunk text
	SourceFile  string
	Embedding   []float32
	CreatedAt   time.Time
}

// HasEmbedding reports whether the chunk carries a vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk is a chunk paired with its similarity to a query.
// It only exists for the duration of a query.
type ScoredChunk struct {
	Chunk
	Score float64
}

// SelectionMode records which temporal branch picked the final contexts.
type SelectionMode string

const (
	ModeTop         SelectionMode = "top"
	ModeExactYear   SelectionMode = "exact-year"
	ModeClosestYear SelectionMode = "closest-year"
	ModeMultiYear   SelectionMode = "multi-year"
	ModeFallback    SelectionMode = "fallback"
)

// Selection is the set of contexts chosen for a query.
type Selection struct {
	Mode   SelectionMode
	Years  []string // year tokens found in the query
	Chunks []ScoredChunk
}

// QueryRequest is a user question.
type QueryRequest struct {
	Query string
}

// Answer is the completion together with the contexts it was built from.
type Answer struct {
	Text      string
	Selection Selection
	Prompt    string
}

// IngestFailure records a chunk or file that could not be persisted.
type IngestFailure struct {
	SourceFile string
	Part       int // 1-based chunk number, 0 when the whole file failed
	Err        error
}

// IngestReport summarizes a batch ingestion.
type IngestReport struct {
	Files     int
	Persisted int
	Failures  []IngestFailure
}

// Merge folds another report into r.
func (r *IngestReport) Merge(other IngestReport) {
	r.Files += other.Files
	r.Persisted += other.Persisted
	r.Failures = append(r.Failures, other.Failures...)
}
