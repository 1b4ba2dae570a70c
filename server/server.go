// Package server exposes the ingestion and consult pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
	"github.com/legallens/legallens/pkg/llm"
	"github.com/legallens/legallens/pkg/logger"
	"github.com/legallens/legallens/pkg/session"
)

const maxUploadBytes = 20 << 20 // 20 MiB

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Ingestor runs the full document analysis pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, fileName string, data []byte) (models.AnalysisResult, error)
}

// Answerer answers one consult turn.
type Answerer interface {
	Answer(ctx context.Context, query string, history []models.ChatTurn, documentName string) (models.ConsultAnswer, error)
}

// Assistant covers the ancillary generation operations.
type Assistant interface {
	Consult(ctx context.Context, message string) (string, error)
	Proofread(ctx context.Context, text string) (llm.Structured[models.ProofreadResult], error)
	JargonMeaning(ctx context.Context, term string) (llm.Structured[models.JargonLookup], error)
	LawOfTheDay(ctx context.Context) (string, error)
}

type Config struct {
	Port   string
	Logger logger.Logger
}

type Server struct {
	config    Config
	pipeline  Ingestor
	answerer  Answerer
	assistant Assistant
	sessions  types.SessionStore
	log       logger.Logger
}

func New(pipeline Ingestor, answerer Answerer, assistant Assistant, sessions types.SessionStore, config Config) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Server{
		config:    config,
		pipeline:  pipeline,
		answerer:  answerer,
		assistant: assistant,
		sessions:  sessions,
		log:       config.Logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.POST("/analyze", s.handleAnalyze)
	r.POST("/chat", s.handleChat)
	r.POST("/consult", s.handleConsult)
	r.POST("/proofread", s.handleProofread)
	r.POST("/jargon", s.handleJargon)
	r.GET("/lawoftheday", s.handleLawOfTheDay)
	r.GET("/ws", s.handleWebSocket)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	s.log.Info("starting server", "port", s.config.Port)
	return s.Router().Run(":" + s.config.Port)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	result, err := s.pipeline.Ingest(c.Request.Context(), header.Filename, data)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type consultRequest struct {
	Query     string            `json:"query"`
	FileName  string            `json:"fileName"`
	SessionID string            `json:"sessionId"`
	History   []models.ChatTurn `json:"history"`
}

type consultResponse struct {
	models.ConsultAnswer
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Server) handleConsult(c *gin.Context) {
	var req consultRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: query is required"})
		return
	}

	ctx := c.Request.Context()
	history := req.History
	sessionID := req.SessionID

	// A session id takes precedence over client-held history
	if s.sessions != nil {
		if sessionID == "" {
			id, err := s.sessions.Create(ctx)
			if err != nil {
				s.fail(c, err)
				return
			}
			sessionID = id
		} else {
			h, err := s.sessions.History(ctx, sessionID)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
					return
				}
				s.fail(c, err)
				return
			}
			history = h
		}
	}

	answer, err := s.answerer.Answer(ctx, req.Query, history, req.FileName)
	if err != nil {
		s.fail(c, err)
		return
	}

	if s.sessions != nil && sessionID != "" {
		if err := s.sessions.Append(ctx, sessionID, models.ChatTurn{Role: "user", Text: req.Query}); err != nil {
			s.log.Error("failed to persist user turn", "session", sessionID, "error", err)
		}
		turn := models.ChatTurn{Role: "assistant", Text: answer.Answer, Sources: answer.Sources}
		if err := s.sessions.Append(ctx, sessionID, turn); err != nil {
			s.log.Error("failed to persist assistant turn", "session", sessionID, "error", err)
		}
	}

	c.JSON(http.StatusOK, consultResponse{ConsultAnswer: answer, SessionID: sessionID})
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat is general legal small talk, ungrounded in any document.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: message is required"})
		return
	}

	reply, err := s.assistant.Consult(c.Request.Context(), req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleProofread(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: text is required"})
		return
	}

	result, err := s.assistant.Proofread(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}

	writeStructured(c, result.Parsed, result.Value, result.Raw)
}

type termRequest struct {
	Term string `json:"term"`
}

func (s *Server) handleJargon(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: term is required"})
		return
	}

	result, err := s.assistant.JargonMeaning(c.Request.Context(), req.Term)
	if err != nil {
		s.fail(c, err)
		return
	}

	writeStructured(c, result.Parsed, result.Value, result.Raw)
}

func (s *Server) handleLawOfTheDay(c *gin.Context) {
	law, err := s.assistant.LawOfTheDay(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"law": law})
}

// writeStructured returns the decoded value, or the rawText wrapper when the
// model output did not parse.
func writeStructured(c *gin.Context, parsed bool, value any, raw string) {
	if parsed {
		c.JSON(http.StatusOK, value)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rawText": raw})
}

// fail maps pipeline errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)

	switch {
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, types.ErrExtractionFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, types.ErrRetrievalFailed), errors.Is(err, types.ErrGenerationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "service temporarily unavailable, please retry"})
	case errors.Is(err, types.ErrBatchFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Message is the websocket chat frame.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type wsQueryData struct {
	FileName string            `json:"fileName"`
	History  []models.ChatTurn `json:"history"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", "malformed message")
			continue
		}

		s.handleWSMessage(c.Request.Context(), conn, msg, raw)
	}
}

func (s *Server) handleWSMessage(ctx context.Context, conn *websocket.Conn, msg Message, raw []byte) {
	if msg.Type != "query" {
		s.sendMessage(conn, "error", "unsupported message type: "+msg.Type)
		return
	}

	var frame struct {
		Data wsQueryData `json:"data"`
	}
	_ = json.Unmarshal(raw, &frame)

	s.sendMessage(conn, "status", "searching document")

	answer, err := s.answerer.Answer(ctx, msg.Content, frame.Data.History, frame.Data.FileName)
	if err != nil {
		s.sendMessage(conn, "error", "consult failed, please retry")
		return
	}

	resp := Message{Type: "response", Content: answer.Answer, Data: answer}
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Error("failed to send websocket response", "error", err)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		s.log.Error("failed to send websocket message", "error", err)
	}
}
