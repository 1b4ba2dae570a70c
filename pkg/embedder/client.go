// Package embedder turns chunks into embedding vectors via a remote
// feature-extraction service, in fixed-size batches with retry and backoff.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/legallens/legallens/internal/types"
)

const (
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries = 3

	baseBackoff = time.Second
	maxJitter   = time.Second
)

type ClientConfig struct {
	URL        string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration

	// Sleep and Jitter are injectable so retry behavior can be tested
	// without real timers. Both default to the real thing.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() time.Duration
}

type Client struct {
	config ClientConfig
	client *http.Client
}

func NewClientWithConfig(config ClientConfig) *Client {
	if config.MaxRetries == 0 {
		config.MaxRetries = MaxRetries
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
	if config.Jitter == nil {
		config.Jitter = func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		}
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type embedRequest struct {
	Inputs  []string     `json:"inputs"`
	Options embedOptions `json:"options"`
}

type embedOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Embed requests one vector per input text, in the same order. 429 and 503
// responses are retried with exponential backoff plus jitter; anything else
// fails the call.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs", types.ErrInvalidInput)
	}

	body, err := json.Marshal(embedRequest{
		Inputs:  inputs,
		Options: embedOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		vectors, err := c.doRequest(ctx, body)
		if err == nil {
			if len(vectors) != len(inputs) {
				return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vectors), len(inputs))
			}
			return vectors, nil
		}

		if !isTransient(err) || attempt >= c.config.MaxRetries {
			return nil, err
		}

		delay := Backoff(attempt) + c.config.Jitter()
		if serr := c.config.Sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// Backoff returns the base delay before the retry following failed attempt
// number attempt (0-based), excluding jitter.
func Backoff(attempt int) time.Duration {
	return (1 << attempt) * baseBackoff
}

type transientError struct{ status int }

func (e *transientError) Error() string {
	return fmt.Sprintf("embedding service busy: status %d", e.status)
}

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, &transientError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	return vectors, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
