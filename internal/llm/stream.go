package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// Stream is a lazy, finite, non-restartable sequence of reply chunks. The
// consumer reads Chunks until it closes, then checks Err to learn whether the
// stream finished cleanly. Cancel stops the producer early.
type Stream struct {
	chunks chan string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Chunks yields reply fragments in arrival order. Closed when the stream
// ends, fails or is cancelled.
func (s *Stream) Chunks() <-chan string {
	return s.chunks
}

// Cancel aborts the stream; pending chunks are discarded.
func (s *Stream) Cancel() {
	s.cancel()
}

// Err reports how the stream ended. Only valid after Chunks has closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Stream submits a prompt and returns an incremental reply. The underlying
// request uses SSE ("data: ..." lines, [DONE] sentinel) like every
// OpenAI-compatible server.
func (c *Client) Stream(ctx context.Context, prompt string) (*Stream, error) {
	body, err := json.Marshal(c.payload(prompt, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// No client timeout here: streams legitimately outlive callTimeout and
	// are bounded by ctx instead.
	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, string(raw))
	}

	s := &Stream{
		chunks: make(chan string, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.consume(ctx, resp)
	return s, nil
}

func (s *Stream) consume(ctx context.Context, resp *http.Response) {
	defer close(s.done)
	defer close(s.chunks)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				s.err = err
			}
			if ctx.Err() != nil {
				s.err = ctx.Err()
			}
			return
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Printf("[LLM] stream decode error: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		select {
		case s.chunks <- chunk.Choices[0].Delta.Content:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
}
