// Package consultant answers chat questions about an ingested document by
// retrieving the most similar stored chunks and grounding the generation
// call in them.
package consultant

import (
	"context"
	"fmt"
	"strings"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/logger"
)

const (
	// DefaultMatchThreshold and DefaultMatchCount are the tuned retrieval
	// constants. Kept configurable, not re-derived.
	DefaultMatchThreshold = 0.2
	DefaultMatchCount     = 5
)

// Generator is the generation-service surface the answerer needs.
type Generator interface {
	RephraseQuery(ctx context.Context, query string, history []models.ChatTurn) (string, error)
	AnswerQuery(ctx context.Context, query, docContext string) (string, error)
}

type AnswererConfig struct {
	MatchThreshold float32
	MatchCount     int
	Logger         logger.Logger
}

type Answerer struct {
	config   AnswererConfig
	embedder types.Embedder
	store    types.VectorStore
	gen      Generator
	log      logger.Logger
}

func NewWithConfig(emb types.Embedder, store types.VectorStore, gen Generator, config AnswererConfig) *Answerer {
	if config.MatchThreshold == 0 {
		config.MatchThreshold = DefaultMatchThreshold
	}
	if config.MatchCount == 0 {
		config.MatchCount = DefaultMatchCount
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Answerer{
		config:   config,
		embedder: emb,
		store:    store,
		gen:      gen,
		log:      config.Logger,
	}
}

// Answer runs one chat turn: rephrase the query with the chat history, embed
// it, retrieve matching chunks of the named document and generate a cited
// answer. With no matching chunks the answer is ungrounded and carries no
// sources.
func (a *Answerer) Answer(ctx context.Context, query string, history []models.ChatTurn, documentName string) (models.ConsultAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return models.ConsultAnswer{}, fmt.Errorf("%w: empty query", types.ErrInvalidInput)
	}

	searchQuery := query
	if len(history) > 0 {
		rephrased, err := a.gen.RephraseQuery(ctx, query, history)
		if err != nil || strings.TrimSpace(rephrased) == "" {
			// Rephrasing is best-effort; fall back to the raw query
			a.log.Warn("query rephrasing failed, using raw query", "error", err)
		} else {
			searchQuery = rephrased
		}
	}

	vectors, err := a.embedder.Embed(ctx, []string{searchQuery})
	if err != nil || len(vectors) == 0 {
		return models.ConsultAnswer{}, fmt.Errorf("%w: embedding query: %v", types.ErrRetrievalFailed, err)
	}

	matches, err := a.store.Search(ctx, vectors[0], a.config.MatchThreshold, a.config.MatchCount, documentName)
	if err != nil {
		return models.ConsultAnswer{}, fmt.Errorf("%w: similarity search: %v", types.ErrRetrievalFailed, err)
	}

	if len(matches) == 0 {
		a.log.Info("no chunks retrieved, answering without grounding",
			"document", documentName)
		answer, err := a.gen.AnswerQuery(ctx, query, "")
		if err != nil {
			return models.ConsultAnswer{}, err
		}
		return models.ConsultAnswer{
			Answer:      answer,
			Sources:     []models.SourceReference{},
			UniquePages: []int{},
		}, nil
	}

	answer, err := a.gen.AnswerQuery(ctx, searchQuery, buildContext(matches))
	if err != nil {
		return models.ConsultAnswer{}, err
	}

	return models.ConsultAnswer{
		Answer:      answer,
		Sources:     sourcesOf(matches),
		UniquePages: uniquePages(matches),
	}, nil
}

// buildContext enumerates the matches in retrieval-rank order.
func buildContext(matches []models.MatchedChunk) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[Source %d - Page %d]: %s", i+1, m.PageNumber, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

func sourcesOf(matches []models.MatchedChunk) []models.SourceReference {
	sources := make([]models.SourceReference, len(matches))
	for i, m := range matches {
		sources[i] = models.SourceReference{Content: m.Content, PageNumber: m.PageNumber}
	}
	return sources
}

// uniquePages returns the distinct page numbers in first-occurrence order.
func uniquePages(matches []models.MatchedChunk) []int {
	seen := make(map[int]bool)
	pages := []int{}
	for _, m := range matches {
		if !seen[m.PageNumber] {
			seen[m.PageNumber] = true
			pages = append(pages, m.PageNumber)
		}
	}
	return pages
}
