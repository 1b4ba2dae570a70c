package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/llm"
	"github.com/legallens/legallens/pkg/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePipeline struct {
	result  models.AnalysisResult
	err     error
	gotName string
	gotData []byte
}

func (f *fakePipeline) Ingest(_ context.Context, fileName string, data []byte) (models.AnalysisResult, error) {
	f.gotName = fileName
	f.gotData = data
	return f.result, f.err
}

type fakeAnswerer struct {
	answer     models.ConsultAnswer
	err        error
	gotQuery   string
	gotHistory []models.ChatTurn
	gotDoc     string
}

func (f *fakeAnswerer) Answer(_ context.Context, query string, history []models.ChatTurn, documentName string) (models.ConsultAnswer, error) {
	f.gotQuery = query
	f.gotHistory = history
	f.gotDoc = documentName
	return f.answer, f.err
}

type fakeAssistant struct {
	reply     string
	proofread llm.Structured[models.ProofreadResult]
	jargon    llm.Structured[models.JargonLookup]
	law       string
	err       error
}

func (f *fakeAssistant) Consult(context.Context, string) (string, error) {
	return f.reply, f.err
}

func (f *fakeAssistant) Proofread(context.Context, string) (llm.Structured[models.ProofreadResult], error) {
	return f.proofread, f.err
}

func (f *fakeAssistant) JargonMeaning(context.Context, string) (llm.Structured[models.JargonLookup], error) {
	return f.jargon, f.err
}

func (f *fakeAssistant) LawOfTheDay(context.Context) (string, error) {
	return f.law, f.err
}

type fakeSessions struct {
	nextID   string
	history  map[string][]models.ChatTurn
	appended map[string][]models.ChatTurn
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		nextID:   "session-1",
		history:  make(map[string][]models.ChatTurn),
		appended: make(map[string][]models.ChatTurn),
	}
}

func (f *fakeSessions) Create(context.Context) (string, error) {
	f.history[f.nextID] = nil
	return f.nextID, nil
}

func (f *fakeSessions) Append(_ context.Context, sessionID string, turn models.ChatTurn) error {
	if _, ok := f.history[sessionID]; !ok {
		return session.ErrNotFound
	}
	f.appended[sessionID] = append(f.appended[sessionID], turn)
	return nil
}

func (f *fakeSessions) History(_ context.Context, sessionID string) ([]models.ChatTurn, error) {
	h, ok := f.history[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return h, nil
}

func newTestServer(pipeline Ingestor, answerer Answerer, assistant Assistant, sessions types.SessionStore) *Server {
	return New(pipeline, answerer, assistant, sessions, Config{})
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestAnalyzeUpload(t *testing.T) {
	pipeline := &fakePipeline{result: models.AnalysisResult{
		FileName:   "nda.txt",
		Summary:    "Part 1: a mutual NDA.",
		ChunkCount: 3,
	}}
	srv := newTestServer(pipeline, &fakeAnswerer{}, &fakeAssistant{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "nda.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("This agreement is made between the parties."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nda.txt", pipeline.gotName)
	assert.Equal(t, "This agreement is made between the parties.", string(pipeline.gotData))

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 3, result.ChunkCount)
}

func TestAnalyzeMissingFile(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, nil)
	w := postJSON(t, srv.Router(), "/analyze", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsultWithoutSessions(t *testing.T) {
	answerer := &fakeAnswerer{answer: models.ConsultAnswer{
		Answer:      "Clause 4 limits liability.",
		Sources:     []models.SourceReference{{PageNumber: 2}},
		UniquePages: []int{2},
	}}
	srv := newTestServer(&fakePipeline{}, answerer, &fakeAssistant{}, nil)

	w := postJSON(t, srv.Router(), "/consult", gin.H{
		"query":    "What does clause 4 say?",
		"fileName": "nda.txt",
		"history":  []models.ChatTurn{{Role: "user", Text: "hi"}},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "What does clause 4 say?", answerer.gotQuery)
	assert.Equal(t, "nda.txt", answerer.gotDoc)
	assert.Len(t, answerer.gotHistory, 1)

	var resp consultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Clause 4 limits liability.", resp.Answer)
	assert.Empty(t, resp.SessionID)
}

func TestConsultCreatesSession(t *testing.T) {
	sessions := newFakeSessions()
	answerer := &fakeAnswerer{answer: models.ConsultAnswer{Answer: "It renews annually."}}
	srv := newTestServer(&fakePipeline{}, answerer, &fakeAssistant{}, sessions)

	w := postJSON(t, srv.Router(), "/consult", gin.H{"query": "When does it renew?"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp consultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-1", resp.SessionID)

	turns := sessions.appended["session-1"]
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "When does it renew?", turns[0].Text)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "It renews annually.", turns[1].Text)
}

func TestConsultLoadsSessionHistory(t *testing.T) {
	sessions := newFakeSessions()
	sessions.history["session-1"] = []models.ChatTurn{{Role: "user", Text: "earlier question"}}
	answerer := &fakeAnswerer{answer: models.ConsultAnswer{Answer: "ok"}}
	srv := newTestServer(&fakePipeline{}, answerer, &fakeAssistant{}, sessions)

	w := postJSON(t, srv.Router(), "/consult", gin.H{
		"query":     "follow up",
		"sessionId": "session-1",
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, answerer.gotHistory, 1)
	assert.Equal(t, "earlier question", answerer.gotHistory[0].Text)
}

func TestConsultUnknownSession(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, newFakeSessions())

	w := postJSON(t, srv.Router(), "/consult", gin.H{
		"query":     "anything",
		"sessionId": "missing",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConsultEmptyQuery(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, nil)
	w := postJSON(t, srv.Router(), "/consult", gin.H{"query": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", types.ErrInvalidInput, http.StatusBadRequest},
		{"extraction failed", types.ErrExtractionFailed, http.StatusBadRequest},
		{"retrieval failed", fmt.Errorf("search: %w", types.ErrRetrievalFailed), http.StatusBadGateway},
		{"generation failed", fmt.Errorf("model: %w", types.ErrGenerationFailed), http.StatusBadGateway},
		{"batch failed", types.ErrBatchFailed, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakePipeline{}, &fakeAnswerer{err: tc.err}, &fakeAssistant{}, nil)
			w := postJSON(t, srv.Router(), "/consult", gin.H{"query": "q"})
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestChat(t *testing.T) {
	assistant := &fakeAssistant{reply: "A notary witnesses signatures."}
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, assistant, nil)

	w := postJSON(t, srv.Router(), "/chat", gin.H{"message": "What does a notary do?"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "A notary witnesses signatures."))
}

func TestChatEmptyMessage(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, nil)
	w := postJSON(t, srv.Router(), "/chat", gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProofreadParsed(t *testing.T) {
	assistant := &fakeAssistant{proofread: llm.Structured[models.ProofreadResult]{
		Value: models.ProofreadResult{
			CorrectedText: "The party shall indemnify.",
			Corrections:   []models.Correction{{Original: "shal", Suggestion: "shall"}},
		},
		Parsed: true,
	}}
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, assistant, nil)

	w := postJSON(t, srv.Router(), "/proofread", gin.H{"text": "The party shal indemnify."})

	require.Equal(t, http.StatusOK, w.Code)
	var result models.ProofreadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "The party shall indemnify.", result.CorrectedText)
}

func TestProofreadRawFallback(t *testing.T) {
	assistant := &fakeAssistant{proofread: llm.Structured[models.ProofreadResult]{
		Raw:    "the model rambled instead of returning JSON",
		Parsed: false,
	}}
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, assistant, nil)

	w := postJSON(t, srv.Router(), "/proofread", gin.H{"text": "some text"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "rawText"))
	assert.True(t, strings.Contains(w.Body.String(), "rambled"))
}

func TestJargon(t *testing.T) {
	assistant := &fakeAssistant{jargon: llm.Structured[models.JargonLookup]{
		Value:  models.JargonLookup{Term: "estoppel", Definition: "a bar to asserting a contrary claim"},
		Parsed: true,
	}}
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, assistant, nil)

	w := postJSON(t, srv.Router(), "/jargon", gin.H{"term": "estoppel"})

	require.Equal(t, http.StatusOK, w.Code)
	var result models.JargonLookup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "estoppel", result.Term)
}

func TestWebSocketQuery(t *testing.T) {
	answerer := &fakeAnswerer{answer: models.ConsultAnswer{
		Answer:      "The term is two years.",
		UniquePages: []int{1},
	}}
	srv := newTestServer(&fakePipeline{}, answerer, &fakeAssistant{}, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.WriteJSON(Message{
		Type:    "query",
		Content: "How long is the term?",
		Data:    wsQueryData{FileName: "nda.txt"},
	})
	require.NoError(t, err)

	var status Message
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, "status", status.Type)

	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, "The term is two years.", resp.Content)
	assert.Equal(t, "How long is the term?", answerer.gotQuery)
	assert.Equal(t, "nda.txt", answerer.gotDoc)
}

func TestWebSocketUnsupportedType(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, &fakeAssistant{}, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))

	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
}

func TestLawOfTheDay(t *testing.T) {
	assistant := &fakeAssistant{law: "Good faith is implied in every contract."}
	srv := newTestServer(&fakePipeline{}, &fakeAnswerer{}, assistant, nil)

	req := httptest.NewRequest(http.MethodGet, "/lawoftheday", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Good faith"))
}
