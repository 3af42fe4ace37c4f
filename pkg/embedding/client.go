package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Client calls an OpenAI-compatible /v1/embeddings endpoint. Transient
// failures are retried with exponential backoff; repeated failures trip a
// circuit breaker so callers fail fast instead of waiting out timeouts.
type Client struct {
	url      string
	apiKey   string
	model    string
	dims     int
	timeout  time.Duration
	maxChars int
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// ClientOptions configures a Client.
type ClientOptions struct {
	URL      string
	APIKey   string
	Model    string
	Dims     int
	Timeout  time.Duration
	MaxChars int
}

// NewClient creates an embedding Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		url:      opts.URL,
		apiKey:   opts.APIKey,
		model:    opts.Model,
		dims:     opts.Dims,
		timeout:  opts.Timeout,
		maxChars: opts.MaxChars,
		http:     &http.Client{Timeout: opts.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "embedding",
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			Timeout: 30 * time.Second,
		}),
	}
}

// Dimensions returns the expected vector length.
func (c *Client) Dimensions() int { return c.dims }

// Embed returns the provider embedding for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch returns provider embeddings for several texts in one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(t, c.maxChars)
	}
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (any, error) {
		var vecs [][]float32
		op := func() error {
			v, err := c.doRequest(ctx, body)
			if err != nil {
				return err
			}
			vecs = v
			return nil
		}
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		if err := backoff.Retry(op, bo); err != nil {
			return nil, err
		}
		return vecs, nil
	})
	if err != nil {
		return nil, err
	}

	vecs := result.([][]float32)
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding response: got %d vectors for %d inputs", len(vecs), len(texts))
	}
	return vecs, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		err := fmt.Errorf("embedding provider returned %d: %s", res.StatusCode, data)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode embedding response: %w", err))
	}

	vecs := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}
