package usecases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// mockStore implements ports.DocumentStore for testing
type mockStore struct {
	mu       sync.Mutex
	chunks   []entities.Chunk
	insertFn func(c entities.Chunk) error
	allErr   error
}

func (m *mockStore) Insert(ctx context.Context, c entities.Chunk) (entities.Chunk, error) {
	if m.insertFn != nil {
		if err := m.insertFn(c); err != nil {
			return entities.Chunk{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = fmt.Sprintf("chunk-%d", len(m.chunks)+1)
	c.CreatedAt = time.Now()
	m.chunks = append(m.chunks, c)
	return c, nil
}

func (m *mockStore) All(ctx context.Context) ([]entities.Chunk, error) {
	if m.allErr != nil {
		return nil, m.allErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Chunk(nil), m.chunks...), nil
}

func (m *mockStore) Count(ctx context.Context, f ports.ChunkFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.chunks {
		if f.SourceFile != "" && c.SourceFile != f.SourceFile {
			continue
		}
		if f.EmbeddedOnly && !c.HasEmbedding() {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockStore) sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.chunks {
		out = append(out, c.SourceFile)
	}
	return out
}

// mockLoader implements ports.DocumentLoader for testing
type mockLoader struct {
	docs map[string]string // base name -> content
	err  error
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	name := filepath.Base(path)
	content, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", entities.ErrExtraction, name)
	}
	return &entities.Document{ID: name, Name: name, Path: path, Content: content}, nil
}

func (m *mockLoader) SupportedExtensions() []string {
	return []string{".txt", ".pdf"}
}

// mockLLM implements ports.LLMService for testing
type mockLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	lastPrompt string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) GenerateStream(ctx context.Context, prompt string) (<-chan ports.StreamToken, error) {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan ports.StreamToken, 8)
	go func() {
		defer close(ch)
		for _, word := range strings.Fields(m.response) {
			ch <- ports.StreamToken{Content: word + " "}
		}
		ch <- ports.StreamToken{Done: true}
	}()
	return ch, nil
}

func (m *mockLLM) prompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// recordingMetrics implements ports.Metrics for testing
type recordingMetrics struct {
	mu        sync.Mutex
	persisted int
	failed    map[string]int
	served    []entities.SelectionMode
	failures  []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{failed: map[string]int{}}
}

func (r *recordingMetrics) ChunkPersisted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted++
}

func (r *recordingMetrics) ChunkFailed(_ string, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[stage]++
}

func (r *recordingMetrics) QueryServed(mode entities.SelectionMode, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.served = append(r.served, mode)
}

func (r *recordingMetrics) QueryFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, reason)
}
