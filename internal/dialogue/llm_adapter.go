package dialogue

import (
	"context"
	"errors"

	"mb-mentor/internal/llm"
)

// ErrNotStreamable marks turns that only make sense synchronously.
var ErrNotStreamable = errors.New("this input cannot be answered as a stream")

// LLMAdapter bridges the concrete llm.Client to the Completer capability.
type LLMAdapter struct {
	Client *llm.Client
}

func (a LLMAdapter) Complete(ctx context.Context, prompt string) (string, error) {
	return a.Client.Complete(ctx, prompt)
}

func (a LLMAdapter) Stream(ctx context.Context, prompt string) (Streamer, error) {
	s, err := a.Client.Stream(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
