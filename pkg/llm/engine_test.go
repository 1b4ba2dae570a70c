package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/llm"
)

// fakeModel returns a canned response and records the last messages.
type fakeModel struct {
	response string
	err      error
	lastMsgs []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMsgs = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestAnalyzeBatch(t *testing.T) {
	fake := &fakeModel{response: `{"summary":"A lease.","keyClauses":[{"title":"Payment","explanation":"Pay monthly."}],"jargonBuster":[{"term":"Lessee","definition":"The renter."}]}`}
	e := llm.NewWithModel(fake, llm.EngineConfig{Temperature: 0.1, MaxTokens: 100})

	result, err := e.AnalyzeBatch(context.Background(), "The Lessee agrees to pay.")
	require.NoError(t, err)

	assert.True(t, result.Parsed)
	assert.Equal(t, "A lease.", result.Value.Summary)
	require.Len(t, result.Value.KeyClauses, 1)
	assert.Equal(t, "Payment", result.Value.KeyClauses[0].Title)
	require.Len(t, result.Value.JargonBuster, 1)

	require.Len(t, fake.lastMsgs, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, fake.lastMsgs[0].Role)
	assert.Contains(t, textOf(t, fake.lastMsgs[1]), "The Lessee agrees to pay.")
}

func TestAnalyzeBatchRawFallback(t *testing.T) {
	fake := &fakeModel{response: "Sorry, I cannot produce JSON today."}
	e := llm.NewWithModel(fake, llm.EngineConfig{Temperature: 0.1, MaxTokens: 100})

	result, err := e.AnalyzeBatch(context.Background(), "text")
	require.NoError(t, err)

	assert.False(t, result.Parsed)
	assert.Equal(t, "Sorry, I cannot produce JSON today.", result.Raw)
}

func TestRephraseQuery(t *testing.T) {
	fake := &fakeModel{response: "Explain the termination clause in the document"}
	e := llm.NewWithModel(fake, llm.EngineConfig{Temperature: 0.1, MaxTokens: 100})

	history := []models.ChatTurn{
		{Role: "user", Text: "Termination Clause"},
		{Role: "assistant", Text: "It ends the lease early."},
	}

	out, err := e.RephraseQuery(context.Background(), "Explain it", history)
	require.NoError(t, err)
	assert.Equal(t, "Explain the termination clause in the document", out)

	user := textOf(t, fake.lastMsgs[1])
	assert.Contains(t, user, "Explain it")
	assert.Contains(t, user, "Termination Clause")
}

func TestAnswerQueryIncludesContext(t *testing.T) {
	fake := &fakeModel{response: "The rent is $500. " + llm.Disclaimer}
	e := llm.NewWithModel(fake, llm.EngineConfig{Temperature: 0.1, MaxTokens: 100})

	docContext := "[Source 1 - Page 3]: The rent is $500 per month."
	out, err := e.AnswerQuery(context.Background(), "How much is the rent?", docContext)
	require.NoError(t, err)
	assert.Contains(t, out, "$500")

	user := textOf(t, fake.lastMsgs[1])
	assert.Contains(t, user, docContext)
	assert.Contains(t, user, "How much is the rent?")
}

func TestGenerationFailure(t *testing.T) {
	fake := &fakeModel{err: errors.New("upstream down")}
	e := llm.NewWithModel(fake, llm.EngineConfig{Temperature: 0.1, MaxTokens: 100})

	_, err := e.Consult(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrGenerationFailed))
}

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		parsed bool
	}{
		{"plain json", `{"term":"Lessee","definition":"The renter."}`, true},
		{"fenced json", "```json\n{\"term\":\"Remit\",\"definition\":\"To send payment.\"}\n```", true},
		{"json with prose", "Here you go: {\"term\":\"Lien\",\"definition\":\"A claim.\"} Hope that helps!", true},
		{"not json", "I am unable to answer that.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := llm.ParseStructured[models.JargonLookup](tt.raw)
			assert.Equal(t, tt.parsed, result.Parsed)
			assert.Equal(t, tt.raw, result.Raw)
			if tt.parsed {
				assert.NotEmpty(t, result.Value.Term)
			}
		})
	}
}
