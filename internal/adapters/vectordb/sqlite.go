package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

// SQLiteStore persists chunks in a local SQLite file.
// Embeddings are stored as JSON arrays.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens (or creates) dataPath/chunks.db.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := "file:" + filepath.Join(dataPath, "chunks.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		source_file TEXT NOT NULL,
		embedding TEXT,
		dims INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source_file ON chunks(source_file);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert stores chunk and returns it with ID and CreatedAt set.
func (s *SQLiteStore) Insert(ctx context.Context, chunk entities.Chunk) (entities.Chunk, error) {
	if err := validateChunk(chunk); err != nil {
		return entities.Chunk{}, err
	}

	var embedding any
	if chunk.HasEmbedding() {
		raw, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return entities.Chunk{}, fmt.Errorf("encoding embedding: %w", err)
		}
		embedding = string(raw)
	}

	chunk.ID = uuid.NewString()
	chunk.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, title, description, source_file, embedding, dims, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		chunk.ID,
		chunk.Title,
		chunk.Description,
		chunk.SourceFile,
		embedding,
		len(chunk.Embedding),
		chunk.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return entities.Chunk{}, fmt.Errorf("inserting chunk: %w", err)
	}
	return chunk, nil
}

// All returns every chunk in insertion order.
func (s *SQLiteStore) All(ctx context.Context) ([]entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, source_file, embedding, created_at
		FROM chunks
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []entities.Chunk
	for rows.Next() {
		var (
			chunk     entities.Chunk
			embedding sql.NullString
			createdAt string
		)
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Description, &chunk.SourceFile, &embedding, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &chunk.Embedding); err != nil {
				return nil, fmt.Errorf("decoding embedding of chunk %s: %w", chunk.ID, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			chunk.CreatedAt = t
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Count returns the number of chunks matching filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ports.ChunkFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)
	if filter.SourceFile != "" {
		conds = append(conds, "source_file = ?")
		args = append(args, filter.SourceFile)
	}
	if filter.EmbeddedOnly {
		conds = append(conds, "dims > 0")
	}

	query := "SELECT COUNT(*) FROM chunks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Ping checks the database file is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
