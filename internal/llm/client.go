package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mb-mentor/internal/config"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	callTimeout = 120 * time.Second
)

// Client talks to an OpenAI-compatible chat completion endpoint. Transient
// failures (transport errors, 429, 5xx) are retried with exponential backoff
// up to maxAttempts; anything else fails immediately.
type Client struct {
	url         string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewClient(cfg config.LLMConfig) *Client {
	temperature := 0.7
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &Client{
		url:         cfg.URL,
		model:       cfg.Name,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: callTimeout},
	}
}

func (c *Client) payload(prompt string, stream bool) map[string]interface{} {
	return map[string]interface{}{
		"model":       c.model,
		"temperature": c.temperature,
		"stream":      stream,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
}

// Complete submits a prompt and returns the full reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(c.payload(prompt, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, retryable, err := c.completeOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("completion failed: %w", lastErr)
}

func (c *Client) completeOnce(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", false, fmt.Errorf("no choices returned")
	}
	return result.Choices[0].Message.Content, false, nil
}
