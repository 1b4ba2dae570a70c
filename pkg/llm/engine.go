// Package llm wraps the generation service behind typed operations:
// structured document analysis, query rephrasing, grounded answering and the
// ancillary assistant calls.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
)

// EngineConfig represents the configuration for the generation engine.
type EngineConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Engine is the generation-service client used by the pipeline.
type Engine struct {
	config EngineConfig
	llm    llms.Model
}

// NewWithConfig creates an Engine talking to an OpenAI-compatible endpoint.
func NewWithConfig(config EngineConfig) (*Engine, error) {
	if config.Model == "" {
		config.Model = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Engine{config: config, llm: model}, nil
}

// NewWithModel creates an Engine around an existing model. Tests use this to
// plug in a double.
func NewWithModel(model llms.Model, config EngineConfig) *Engine {
	return &Engine{config: config, llm: model}
}

func (e *Engine) generate(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	resp, err := e.llm.GenerateContent(ctx, content,
		llms.WithTemperature(e.config.Temperature),
		llms.WithMaxTokens(e.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: empty response", types.ErrGenerationFailed)
	}

	return resp.Choices[0].Content, nil
}

// AnalyzeBatch runs the structured analysis prompt over one batch of
// document text. Output that is not valid JSON degrades to the raw text.
func (e *Engine) AnalyzeBatch(ctx context.Context, batchText string) (Structured[models.Analysis], error) {
	out, err := e.generate(ctx, documentAnalysisPrompt, "Document:\n"+batchText)
	if err != nil {
		return Structured[models.Analysis]{}, err
	}
	return ParseStructured[models.Analysis](out), nil
}

// RephraseQuery folds the chat history into a single self-contained search
// query.
func (e *Engine) RephraseQuery(ctx context.Context, query string, history []models.ChatTurn) (string, error) {
	user := fmt.Sprintf("Query is: %s\nChat History is: %s", query, formatHistory(history))
	out, err := e.generate(ctx, queryRephrasingPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// AnswerQuery answers a query grounded in the supplied context. An empty
// context produces an ungrounded best-effort answer.
func (e *Engine) AnswerQuery(ctx context.Context, query, docContext string) (string, error) {
	user := fmt.Sprintf("Context: %s\n\nQuestion: %s", docContext, query)
	return e.generate(ctx, queryResponsePrompt, user)
}

// Consult answers a free-form consultant message without document grounding.
func (e *Engine) Consult(ctx context.Context, message string) (string, error) {
	return e.generate(ctx, consultantPrompt, "User:\n"+message)
}

// Proofread checks spelling, grammar and clarity of the given text.
func (e *Engine) Proofread(ctx context.Context, text string) (Structured[models.ProofreadResult], error) {
	out, err := e.generate(ctx, proofreadingPrompt, "Text:\n"+text)
	if err != nil {
		return Structured[models.ProofreadResult]{}, err
	}
	return ParseStructured[models.ProofreadResult](out), nil
}

// JargonMeaning looks up a legal term.
func (e *Engine) JargonMeaning(ctx context.Context, term string) (Structured[models.JargonLookup], error) {
	out, err := e.generate(ctx, jargonMeaningPrompt, "Word is:\n"+term)
	if err != nil {
		return Structured[models.JargonLookup]{}, err
	}
	return ParseStructured[models.JargonLookup](out), nil
}

// LawOfTheDay returns a short educational note about one legal concept.
func (e *Engine) LawOfTheDay(ctx context.Context) (string, error) {
	return e.generate(ctx, lawOfTheDayPrompt, "Give me today's law.")
}

func formatHistory(history []models.ChatTurn) string {
	if len(history) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	}
	return b.String()
}
