package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/seanblong/lernsearch/pkg/models"
)

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// SearchHit is one row of a similarity search: a chunk with its cosine
// distance to the query vector.
type SearchHit struct {
	ChunkID       string
	DocumentID    string
	DocumentTitle string
	Content       string
	ChunkIndex    int
	PageNumber    *int
	TokenCount    int
	Distance      float64
}

// DocumentStore defines the methods that the Store must implement.
type DocumentStore interface {
	Migrate(ctx context.Context, embedDim int) error
	UpsertDocument(ctx context.Context, d models.Document) error
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk, embeddings [][]float32) error
	SimilaritySearch(ctx context.Context, queryVec []float32, k int, distanceThreshold float64, documentIDs []string) ([]SearchHit, error)
	GetChunk(ctx context.Context, id string) (models.Chunk, bool, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context, embedDim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
  id         TEXT PRIMARY KEY,
  title      TEXT NOT NULL,
  path       TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
  id          TEXT PRIMARY KEY,
  document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  content     TEXT NOT NULL,
  chunk_index INT NOT NULL,
  page_number INT,
  token_count INT NOT NULL DEFAULT 0,
  embedding   vector(%d),
  created_at  TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS chunks_document_index_uidx
  ON chunks (document_id, chunk_index);

CREATE INDEX IF NOT EXISTS chunks_document_idx
  ON chunks (document_id);

CREATE INDEX IF NOT EXISTS chunks_embedding_idx
  ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, embedDim))
	return err
}

// UpsertDocument inserts or updates a document record.
func (s *Store) UpsertDocument(ctx context.Context, d models.Document) error {
	const q = `
		INSERT INTO documents (id, title, path, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			path  = EXCLUDED.path;`
	_, err := s.pool.Exec(ctx, q, d.ID, d.Title, d.Path)
	return err
}

// ListDocuments returns all documents ordered by title.
func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, path, created_at FROM documents ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Path, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its chunks go with it via cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// ReplaceChunks swaps a document's chunk set in one transaction. Chunk sets
// are always replaced whole; re-chunking never patches individual rows.
func (s *Store) ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk, embeddings [][]float32) error {
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	const q = `
		INSERT INTO chunks (id, document_id, content, chunk_index, page_number, token_count, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
	for i, c := range chunks {
		var ev any
		if embeddings[i] != nil {
			ev = pgvector.NewVector(embeddings[i])
		} else {
			ev = (*pgvector.Vector)(nil)
		}
		if _, err := tx.Exec(ctx, q, c.ID, documentID, c.Content, c.ChunkIndex, c.PageNumber, c.TokenCount, ev); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SimilaritySearch returns up to k chunks whose cosine distance to queryVec
// is strictly below distanceThreshold, nearest first. An empty documentIDs
// slice searches all documents.
func (s *Store) SimilaritySearch(
	ctx context.Context,
	queryVec []float32,
	k int,
	distanceThreshold float64,
	documentIDs []string,
) ([]SearchHit, error) {
	if len(queryVec) == 0 {
		return []SearchHit{}, nil
	}

	qv := pgvector.NewVector(queryVec)
	args := []any{qv, distanceThreshold, k}

	filter := ""
	if len(documentIDs) > 0 {
		filter = "AND c.document_id = ANY($4)"
		args = append(args, documentIDs)
	}

	q := fmt.Sprintf(`
SELECT c.id, c.document_id, d.title, c.content, c.chunk_index, c.page_number, c.token_count,
       (c.embedding <=> $1) AS distance
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
  AND (c.embedding <=> $1) < $2
  %s
ORDER BY c.embedding <=> $1
LIMIT $3;`, filter)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.DocumentTitle, &h.Content, &h.ChunkIndex, &h.PageNumber, &h.TokenCount, &h.Distance); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetChunk fetches a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (models.Chunk, bool, error) {
	const q = `
		SELECT id, document_id, content, chunk_index, page_number, token_count
		FROM chunks WHERE id = $1 LIMIT 1`
	var c models.Chunk
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&c.ID, &c.DocumentID, &c.Content, &c.ChunkIndex, &c.PageNumber, &c.TokenCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Chunk{}, false, nil
		}
		return models.Chunk{}, false, err
	}
	return c, true, nil
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
