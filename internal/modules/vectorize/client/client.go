// Package client talks to the external embedding service (§6.3),
// retrying with exponential backoff the way other_examples' scheduler
// code drives cenkalti/backoff, and substituting zero vectors only to
// preserve indexing progress on final failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxEmbedAttempts = 5

// EmbeddingClient calls POST /embed on the embedding service.
type EmbeddingClient struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

func New(baseURL, model string, dimension int, httpClient *http.Client) *EmbeddingClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &EmbeddingClient{baseURL: baseURL, model: model, dimension: dimension, httpClient: httpClient}
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
	Model  string   `json:"model"`
}

// Embed requests embeddings for texts, making up to maxEmbedAttempts
// attempts with exponential backoff (base 1s) between them. On final failure it
// returns zero vectors of the configured dimension and degraded=true,
// never an error, so the pipeline can keep making indexing progress.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) (vectors [][]float64, degraded bool) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.MaxElapsedTime = 0

	var lastErr error
attempts:
	for attempt := 0; attempt < maxEmbedAttempts; attempt++ {
		vectors, lastErr = c.embedOnce(ctx, texts)
		if lastErr == nil {
			return vectors, false
		}
		if attempt == maxEmbedAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			break attempts
		case <-time.After(eb.NextBackOff()):
		}
	}

	zero := make([][]float64, len(texts))
	for i := range zero {
		zero[i] = make([]float64, c.dimension)
	}
	return zero, true
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}

	var vectors [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return vectors, nil
}

// Health calls GET /health on the embedding service, used by §6.1's
// GET /health to report the embedding_service check.
func (c *EmbeddingClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}
	return nil
}
