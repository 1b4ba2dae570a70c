package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/pkg/store"
)

// Integration test, needs a Postgres with the pgvector extension.
func newTestStore(t *testing.T) *store.VectorStore {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	s, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: connString,
		TableName:  "test_legal_docs",
		VectorDim:  3,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func TestInsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chunks := []models.Chunk{
		{Content: "--- PAGE 1 --- The Lessee agrees to remit payment.", PageNumber: 1, SequenceIndex: 0},
		{Content: "The term of this lease is twelve months.", PageNumber: 2, SequenceIndex: 1},
		{Content: "skipped chunk", PageNumber: 2, SequenceIndex: 2},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		nil, // failed embedding batch
	}

	inserted, err := s.Insert(ctx, "lease.pdf", chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted, "nil vectors are skipped")

	matches, err := s.Search(ctx, []float32{1, 0, 0}, 0.2, 5, "lease.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Contains(t, matches[0].Content, "Lessee")
	assert.Equal(t, 1, matches[0].PageNumber)
	assert.InDelta(t, 1.0, matches[0].Similarity, 0.001)

	// Scoped to the document name
	other, err := s.Search(ctx, []float32{1, 0, 0}, 0.2, 5, "other.pdf")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInsertCountMismatch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Insert(context.Background(), "doc.pdf",
		[]models.Chunk{{Content: "a"}}, [][]float32{{1, 0, 0}, {0, 1, 0}})
	assert.Error(t, err)
}
