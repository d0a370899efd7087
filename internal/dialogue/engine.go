package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"

	"mb-mentor/internal/config"
	"mb-mentor/internal/project"
	"mb-mentor/internal/session"
)

// FallbackReply keeps the "every user turn has a response" invariant intact
// when the completion backend fails.
const FallbackReply = "Sorry, I'm having trouble generating a response. Please try again."

var (
	// ErrInsufficientHistory is a warning, not a fault: summarizing a
	// near-empty conversation is not meaningful.
	ErrInsufficientHistory = errors.New("not enough conversation yet to summarize")
	// ErrNoSummary means progress analysis was requested before any
	// summary exists.
	ErrNoSummary = errors.New("no summary yet; generate a summary first")
)

// ContextRetriever is the relevance-gated search capability.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string) (string, bool)
}

// Streamer is a lazy, cancellable sequence of reply chunks.
type Streamer interface {
	Chunks() <-chan string
	Cancel()
	Err() error
}

// Completer is the language-model capability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (Streamer, error)
}

// Engine orchestrates one turn of the reflective interview: retrieval,
// prompt composition, completion, and the termination check. It owns no
// session state; sessions are passed in by the caller.
type Engine struct {
	gate ContextRetriever
	llm  Completer
	cfg  config.DialogueConfig
}

func NewEngine(gate ContextRetriever, llm Completer, cfg config.DialogueConfig) *Engine {
	return &Engine{gate: gate, llm: llm, cfg: cfg}
}

// Respond processes one user turn synchronously. On completion failure the
// fallback reply is appended and the error returned to the caller.
func (e *Engine) Respond(ctx context.Context, sess *session.Session, text string) (string, error) {
	if err := sess.BeginTurn(); err != nil {
		return "", err
	}
	defer sess.EndTurn()

	if project.HasMarker(text) {
		return e.analyzeProject(ctx, sess, text)
	}

	if err := sess.AppendUser(text); err != nil {
		return "", err
	}

	ragContext, hasContext := e.gate.RetrieveContext(ctx, text)
	prompt := ComposePrompt(ragContext, hasContext, sess.History(), sess.Mentor())

	reply, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("[Dialogue] completion failed: %v", err)
		sess.AppendAssistant(FallbackReply)
		return FallbackReply, err
	}

	sess.AppendAssistant(reply)
	e.maybeTerminate(ctx, sess, reply)
	return reply, nil
}

// analyzeProject handles a pasted MusicBlocks export: parse it, derive a
// plain-language algorithm, persist it on the session (it survives persona
// switches) and reply with it.
func (e *Engine) analyzeProject(ctx context.Context, sess *session.Session, text string) (string, error) {
	proj, err := project.Parse(text)
	if err != nil {
		// Session untouched: a bad paste is the learner's to fix.
		return "", err
	}

	if err := sess.AppendUser(text); err != nil {
		return "", err
	}

	algorithm, err := e.llm.Complete(ctx, project.AlgorithmPrompt(proj))
	if err != nil {
		log.Printf("[Dialogue] project analysis failed: %v", err)
		sess.AppendAssistant(FallbackReply)
		return FallbackReply, err
	}

	sess.SetProjectAlgorithm(algorithm)
	reply := fmt.Sprintf("I've looked at your project. Here's what it does:\n\n%s", algorithm)
	sess.AppendAssistant(reply)
	return reply, nil
}
