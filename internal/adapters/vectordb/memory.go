// Package vectordb provides ports.DocumentStore adapters: in-memory,
// SQLite and Postgres with pgvector. All of them are append-only and
// return chunks in insertion order; ranking happens in the domain.
package vectordb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// InMemoryStore keeps chunks in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
}

// NewInMemoryStore creates a new in-memory document store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Insert appends a copy of chunk with a fresh ID.
func (s *InMemoryStore) Insert(ctx context.Context, chunk entities.Chunk) (entities.Chunk, error) {
	if err := validateChunk(chunk); err != nil {
		return entities.Chunk{}, err
	}

	chunk.ID = uuid.NewString()
	chunk.CreatedAt = time.Now().UTC()
	chunk.Embedding = append([]float32(nil), chunk.Embedding...)

	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()

	return chunk, nil
}

// All returns a snapshot of every chunk.
func (s *InMemoryStore) All(ctx context.Context) ([]entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

// Count returns the number of chunks matching filter.
func (s *InMemoryStore) Count(ctx context.Context, filter ports.ChunkFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.chunks {
		if matches(c, filter) {
			n++
		}
	}
	return n, nil
}

func matches(c entities.Chunk, f ports.ChunkFilter) bool {
	if f.SourceFile != "" && c.SourceFile != f.SourceFile {
		return false
	}
	if f.EmbeddedOnly && !c.HasEmbedding() {
		return false
	}
	return true
}
