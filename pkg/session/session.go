// Package session persists consult conversations so a chat turn can carry
// its history across requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legallens/legallens/internal/models"
)

// ErrNotFound reports an unknown session id.
var ErrNotFound = errors.New("chat session not found")

type StoreConfig struct {
	ConnString string
}

type Store struct {
	pool *pgxpool.Pool
}

func NewWithConfig(config StoreConfig) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	s := &Store{pool: pool}
	if err := s.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize() error {
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %v", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			sources JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}

	return nil
}

// Create starts a new conversation and returns its id.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, "INSERT INTO chat_sessions (id) VALUES ($1)", id)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %v", err)
	}
	return id, nil
}

// Append adds one turn to an existing conversation.
func (s *Store) Append(ctx context.Context, sessionID string, turn models.ChatTurn) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)", sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session: %v", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	var sources []byte
	if len(turn.Sources) > 0 {
		sources, err = json.Marshal(turn.Sources)
		if err != nil {
			return fmt.Errorf("failed to encode sources: %v", err)
		}
	}

	_, err = s.pool.Exec(ctx,
		"INSERT INTO chat_messages (session_id, role, text, sources) VALUES ($1, $2, $3, $4)",
		sessionID, turn.Role, turn.Text, sources)
	if err != nil {
		return fmt.Errorf("failed to append message: %v", err)
	}

	return nil
}

// History returns a conversation's turns in order.
func (s *Store) History(ctx context.Context, sessionID string) ([]models.ChatTurn, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)", sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %v", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT role, text, sources FROM chat_messages WHERE session_id = $1 ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %v", err)
	}
	defer rows.Close()

	var turns []models.ChatTurn
	for rows.Next() {
		var turn models.ChatTurn
		var sources []byte
		if err := rows.Scan(&turn.Role, &turn.Text, &sources); err != nil {
			return nil, fmt.Errorf("failed to scan message: %v", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &turn.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode sources: %v", err)
			}
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
