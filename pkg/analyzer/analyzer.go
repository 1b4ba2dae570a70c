// Package analyzer orchestrates document ingestion: extraction, chunking,
// batched embedding, vector storage and the batched structured analysis that
// produces the final AnalysisResult.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/embedder"
	"github.com/legallens/legallens/pkg/extractor"
	"github.com/legallens/legallens/pkg/llm"
	"github.com/legallens/legallens/pkg/logger"
)

const DefaultAnalysisBatchSize = 10

// BatchAnalyzer runs the structured-analysis generation call for one batch.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, batchText string) (llm.Structured[models.Analysis], error)
}

// ChunkEmbedder embeds a chunk list, skipping failed batches.
type ChunkEmbedder interface {
	EmbedAll(ctx context.Context, chunks []models.Chunk) (embedder.Result, error)
}

type PipelineConfig struct {
	AnalysisBatchSize int

	// SelectExtractor picks the extractor for an uploaded file name.
	// Defaults to extractor.ForFile.
	SelectExtractor func(name string) types.Extractor

	Logger logger.Logger
}

type Pipeline struct {
	config   PipelineConfig
	chunker  types.Chunker
	embedder ChunkEmbedder
	store    types.VectorStore
	analyzer BatchAnalyzer
	log      logger.Logger
}

func NewPipeline(chunker types.Chunker, emb ChunkEmbedder, store types.VectorStore, analyzer BatchAnalyzer, config PipelineConfig) *Pipeline {
	if config.AnalysisBatchSize == 0 {
		config.AnalysisBatchSize = DefaultAnalysisBatchSize
	}
	if config.SelectExtractor == nil {
		config.SelectExtractor = extractor.ForFile
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Pipeline{
		config:   config,
		chunker:  chunker,
		embedder: emb,
		store:    store,
		analyzer: analyzer,
		log:      config.Logger,
	}
}

// Ingest runs the full pipeline for one uploaded document: extract, chunk,
// embed, store, analyze. The document name partitions its chunks in the
// vector store.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, data []byte) (models.AnalysisResult, error) {
	if fileName == "" || len(data) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("%w: file name and data are required", types.ErrInvalidInput)
	}

	log := p.log.With("file", fileName)

	text, err := p.config.SelectExtractor(fileName).Extract(ctx, fileName, data)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	chunks, err := p.chunker.Chunk(text)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	log.Info("document chunked", "chunks", len(chunks))

	embedded, err := p.embedder.EmbedAll(ctx, chunks)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	if embedded.Produced == 0 {
		return models.AnalysisResult{}, fmt.Errorf("%w: all embedding batches failed for %s", types.ErrBatchFailed, fileName)
	}
	if len(embedded.FailedBatches) > 0 {
		log.Warn("some embedding batches were skipped",
			"failedBatches", embedded.FailedBatches,
			"produced", embedded.Produced)
	}

	inserted, err := p.store.Insert(ctx, fileName, chunks, embedded.Vectors)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("storing chunks for %s: %w", fileName, err)
	}
	log.Info("chunks stored", "rows", inserted)

	result, err := p.Analyze(ctx, chunks)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	result.FileName = fileName

	return result, nil
}

// Analyze splits chunks into analysis batches and merges the per-batch
// results. A batch whose generation call fails is skipped and reported in
// FailedBatches; the remaining batches are still analyzed.
func (p *Pipeline) Analyze(ctx context.Context, chunks []models.Chunk) (models.AnalysisResult, error) {
	if len(chunks) == 0 {
		return models.AnalysisResult{}, fmt.Errorf("%w: no chunks to analyze", types.ErrInvalidInput)
	}

	batchSize := p.config.AnalysisBatchSize
	result := models.AnalysisResult{ChunkCount: len(chunks)}

	var summaries []string
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchIndex := start / batchSize

		var b strings.Builder
		b.WriteString("CHUNK TO ANALYZE:\n")
		for _, c := range chunks[start:end] {
			b.WriteString(c.Content)
			b.WriteString("\n")
		}

		analysis, err := p.analyzer.AnalyzeBatch(ctx, b.String())
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			p.log.Warn("analysis batch failed, skipping", "batch", batchIndex, "error", err)
			result.FailedBatches = append(result.FailedBatches, batchIndex)
			continue
		}

		if analysis.Parsed {
			summaries = append(summaries, analysis.Value.Summary)
			result.KeyClauses = append(result.KeyClauses, analysis.Value.KeyClauses...)
			result.JargonBuster = append(result.JargonBuster, analysis.Value.JargonBuster...)
		} else {
			// Unparseable output still carries user-visible content
			summaries = append(summaries, analysis.Raw)
		}
	}

	if len(summaries) == 0 {
		return result, fmt.Errorf("%w: all analysis batches failed", types.ErrBatchFailed)
	}

	parts := make([]string, len(summaries))
	for i, s := range summaries {
		parts[i] = fmt.Sprintf("Part %d: %s", i+1, s)
	}
	result.Summary = strings.Join(parts, "\n\n")

	return result, nil
}
