package embedder

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/logger"
)

const DefaultBatchSize = 20

type BatcherConfig struct {
	BatchSize int

	// Limiter paces the calls to the embedding service. Defaults to one
	// batch per second, matching the upstream rate limit.
	Limiter *rate.Limiter

	Logger logger.Logger
}

type Batcher struct {
	config  BatcherConfig
	client  types.Embedder
	limiter *rate.Limiter
	log     logger.Logger
}

// Result reports the outcome of embedding a chunk list. Vectors is aligned
// 1:1 with the input chunks; entries for chunks in failed batches are nil.
type Result struct {
	Vectors       [][]float32
	Produced      int
	FailedBatches []int
}

func NewBatcherWithConfig(client types.Embedder, config BatcherConfig) *Batcher {
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Limiter == nil {
		config.Limiter = rate.NewLimiter(rate.Limit(1), 1)
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Batcher{
		config:  config,
		client:  client,
		limiter: config.Limiter,
		log:     config.Logger,
	}
}

// EmbedAll embeds chunks in consecutive batches. A batch that fails after
// retries is skipped and reported in FailedBatches; later batches are still
// attempted. Only context cancellation aborts the whole call.
func (b *Batcher) EmbedAll(ctx context.Context, chunks []models.Chunk) (Result, error) {
	if b.config.BatchSize <= 0 {
		return Result{}, fmt.Errorf("%w: batch size must be positive", types.ErrInvalidInput)
	}

	result := Result{Vectors: make([][]float32, len(chunks))}
	if len(chunks) == 0 {
		return result, nil
	}

	for start := 0; start < len(chunks); start += b.config.BatchSize {
		end := start + b.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchIndex := start / b.config.BatchSize

		if err := b.limiter.Wait(ctx); err != nil {
			return result, err
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		b.log.Debug("embedding batch", "batch", batchIndex, "size", len(texts))

		vectors, err := b.client.Embed(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			b.log.Warn("batch failed after retries, skipping",
				"batch", batchIndex, "error", err)
			result.FailedBatches = append(result.FailedBatches, batchIndex)
			continue
		}

		for i, v := range vectors {
			result.Vectors[start+i] = v
		}
		result.Produced += len(vectors)
	}

	b.log.Info("embedding finished",
		"chunks", len(chunks),
		"produced", result.Produced,
		"failedBatches", len(result.FailedBatches))

	return result, nil
}
