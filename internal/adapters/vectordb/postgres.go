package vectordb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS chunks (
	seq BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	source_file TEXT NOT NULL,
	embedding vector,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chunks_source_file ON chunks(source_file);
`

// PostgresStore persists chunks in Postgres with the pgvector extension.
// The vector column has no fixed dimension; scoring stays in the domain.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, pings, and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Insert stores chunk and returns it with ID and CreatedAt set.
func (s *PostgresStore) Insert(ctx context.Context, chunk entities.Chunk) (entities.Chunk, error) {
	if err := validateChunk(chunk); err != nil {
		return entities.Chunk{}, err
	}

	var embedding any
	if chunk.HasEmbedding() {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	id := uuid.New()
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		INSERT INTO chunks (id, title, description, source_file, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, id, chunk.Title, chunk.Description, chunk.SourceFile, embedding).Scan(&createdAt)
	if err != nil {
		return entities.Chunk{}, fmt.Errorf("inserting chunk: %w", err)
	}

	chunk.ID = id.String()
	chunk.CreatedAt = createdAt
	return chunk, nil
}

// All returns every chunk in insertion order.
func (s *PostgresStore) All(ctx context.Context) ([]entities.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, title, description, source_file, embedding::text, created_at
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
			embedding *string
		)
		if err := rows.Scan(&chunk.ID, &chunk.Title, &chunk.Description, &chunk.SourceFile, &embedding, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if embedding != nil {
			var vec pgvector.Vector
			if err := vec.Scan(*embedding); err != nil {
				return nil, fmt.Errorf("decoding embedding of chunk %s: %w", chunk.ID, err)
			}
			chunk.Embedding = vec.Slice()
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Count returns the number of chunks matching filter.
func (s *PostgresStore) Count(ctx context.Context, filter ports.ChunkFilter) (int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.SourceFile != "" {
		args = append(args, filter.SourceFile)
		conds = append(conds, fmt.Sprintf("source_file = $%d", len(args)))
	}
	if filter.EmbeddedOnly {
		conds = append(conds, "embedding IS NOT NULL")
	}

	query := "SELECT COUNT(*) FROM chunks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
