package types

import (
	"context"
	"errors"

	"github.com/legallens/legallens/internal/models"
)

// Error taxonomy shared by the pipeline components. Components wrap these
// with fmt.Errorf("...: %w", ...) and callers discriminate with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrBatchFailed      = errors.New("batch failed")
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrGenerationFailed = errors.New("generation failed")
)

// Extractor converts an uploaded document into plain text annotated with
// page markers of the form "--- PAGE <n> ---".
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// Chunker splits extracted text into bounded-size chunks.
type Chunker interface {
	Chunk(text string) ([]models.Chunk, error)
}

// Embedder turns texts into embedding vectors, one vector per input text,
// in the same order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// VectorStore persists embedded chunks and serves similarity searches.
type VectorStore interface {
	Insert(ctx context.Context, documentName string, chunks []models.Chunk, vectors [][]float32) (int, error)
	Search(ctx context.Context, vector []float32, threshold float32, topK int, documentName string) ([]models.MatchedChunk, error)
	Close()
}

// SessionStore persists consult conversations keyed by session id.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Append(ctx context.Context, sessionID string, turn models.ChatTurn) error
	History(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
}
