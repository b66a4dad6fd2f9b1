// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLMService generates text responses from a language model.
type LLMService interface {
	// Generate returns the full completion for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream emits the completion token by token.
	// The channel is closed after a token with Done or Error set.
	GenerateStream(ctx context.Context, prompt string) (<-chan StreamToken, error)
}

// ChunkFilter narrows Count. Zero value counts everything.
type ChunkFilter struct {
	SourceFile   string
	EmbeddedOnly bool
}

// DocumentStore persists chunks. It never deletes or mutates them.
type DocumentStore interface {
	// Insert stores a chunk and returns it with ID and CreatedAt assigned.
	Insert(ctx context.Context, chunk entities.Chunk) (entities.Chunk, error)

	// All returns a snapshot of every stored chunk in insertion order.
	All(ctx context.Context) ([]entities.Chunk, error)

	// Count returns the number of chunks matching filter.
	Count(ctx context.Context, filter ChunkFilter) (int, error)
}

// DocumentLoader reads a file and extracts its text.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// DocumentParser extracts text from binary document formats.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, filename string) (string, error)
}

// EmbeddingCache stores vectors keyed by model and text.
type EmbeddingCache interface {
	// Get returns the cached vector, or ok=false on a miss.
	Get(ctx context.Context, key string) (vec []float32, ok bool, err error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Metrics observes pipeline outcomes.
type Metrics interface {
	ChunkPersisted(sourceFile string)
	ChunkFailed(sourceFile string, stage string)
	QueryServed(mode entities.SelectionMode, elapsed time.Duration)
	QueryFailed(reason string)
}

// StreamToken represents a single token in a streaming LLM response.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
