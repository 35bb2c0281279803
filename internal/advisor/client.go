// Package advisor requests natural-language finance suggestions from a chat completion API.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bool64/ctxd"
)

// Common advisor errors.
var (
	ErrNotConfigured = errors.New("advisor api key is not configured")
	ErrEmptyResponse = errors.New("advisor returned no choices")
)

// Default settings.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 20 * time.Second

	maxErrorBody = 1 << 10
)

// Config controls Client.
type Config struct {
	// BaseURL is API root, default DefaultBaseURL.
	BaseURL string

	// APIKey is sent as bearer token, requests fail with ErrNotConfigured if empty.
	APIKey string

	// Model is a name of language model, default DefaultModel.
	Model string

	// Temperature controls randomness of suggestions.
	Temperature float64

	// Timeout limits a single request, default DefaultTimeout.
	Timeout time.Duration

	// Transport is used to perform requests, default http.DefaultTransport.
	Transport http.RoundTripper

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger
}

// Client calls chat completion endpoint.
type Client struct {
	config Config
	http   *http.Client
	log    ctxd.Logger
}

// NewClient creates advisor client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		config: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		log: cfg.Logger,
	}

	if c.log == nil {
		c.log = ctxd.NoOpLogger{}
	}

	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// StatusError is returned for unsuccessful response status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d: %s", e.StatusCode, e.Body)
}

// Complete sends system and user messages and returns content of the first choice.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	defer func() {
		if clErr := resp.Body.Close(); clErr != nil {
			c.log.Warn(ctx, "failed to close response body", "error", clErr)
		}
	}()

	c.log.Debug(ctx, "advisor responded",
		"status", resp.StatusCode,
		"elapsed", time.Since(start).String())

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Best effort error details.

		return "", StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(cr.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
