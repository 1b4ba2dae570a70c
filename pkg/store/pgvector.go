package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/legallens/legallens/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "legal_docs"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // bge-small-en-v1.5
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			file_name TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			page_number INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createFileIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_file_name_idx
		ON %s (file_name)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createFileIndex)
	if err != nil {
		return fmt.Errorf("failed to create file name index: %v", err)
	}

	return nil
}

// Insert writes pre-embedded chunks for one document in a single
// transaction. Chunks whose vector is nil (their embedding batch failed) are
// skipped. Returns the number of rows written.
func (vs *VectorStore) Insert(ctx context.Context, documentName string, chunks []models.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (file_name, content, chunk_index, page_number, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		vs.config.TableName)

	cleanName := sanitizeUTF8(documentName)

	inserted := 0
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}

		_, err = tx.Exec(ctx, stmt,
			cleanName,
			sanitizeUTF8(chunk.Content),
			chunk.SequenceIndex,
			chunk.PageNumber,
			pgvector.NewVector(vectors[i]),
			map[string]interface{}{"page_number": chunk.PageNumber},
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk %d: %v", i, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}

	return inserted, nil
}

// Search returns up to topK chunks of the named document whose cosine
// similarity to the query vector is at least threshold, best match first.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, threshold float32, topK int, documentName string) ([]models.MatchedChunk, error) {
	query := fmt.Sprintf(`
		SELECT content, page_number, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE file_name = $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), documentName, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var matches []models.MatchedChunk
	for rows.Next() {
		var m models.MatchedChunk
		if err := rows.Scan(&m.Content, &m.PageNumber, &m.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
