package dialogue

import (
	"context"
	"log"
	"sync"

	"mb-mentor/internal/project"
	"mb-mentor/internal/session"
)

// TurnStream is the streaming counterpart of Respond. Chunks are forwarded
// as they arrive; the assistant message is appended to the session only once
// the producer finishes cleanly, so a cancelled or failed stream never leaves
// a half-reply in the durable transcript.
type TurnStream struct {
	inner    Streamer
	chunks   chan string
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	reply    string
	err      error
}

// Chunks yields reply fragments. Closed when the turn is finished.
func (t *TurnStream) Chunks() <-chan string { return t.chunks }

// Cancel aborts the underlying completion and releases the forwarder even if
// the consumer has stopped draining Chunks.
func (t *TurnStream) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.inner.Cancel()
}

// Err reports how the turn ended. Only valid after Chunks has closed.
func (t *TurnStream) Err() error {
	<-t.done
	return t.err
}

// Reply returns the full assistant reply. Only valid after Chunks has closed.
func (t *TurnStream) Reply() string {
	<-t.done
	return t.reply
}

// RespondStream processes one user turn with an incremental reply. Project
// uploads take the synchronous path; there is nothing useful to stream while
// parsing blocks.
func (e *Engine) RespondStream(ctx context.Context, sess *session.Session, text string) (*TurnStream, error) {
	if project.HasMarker(text) {
		return nil, ErrNotStreamable
	}

	if err := sess.BeginTurn(); err != nil {
		return nil, err
	}

	if err := sess.AppendUser(text); err != nil {
		sess.EndTurn()
		return nil, err
	}

	ragContext, hasContext := e.gate.RetrieveContext(ctx, text)
	prompt := ComposePrompt(ragContext, hasContext, sess.History(), sess.Mentor())

	inner, err := e.llm.Stream(ctx, prompt)
	if err != nil {
		log.Printf("[Dialogue] stream start failed: %v", err)
		sess.AppendAssistant(FallbackReply)
		sess.EndTurn()
		return nil, err
	}

	t := &TurnStream{
		inner:  inner,
		chunks: make(chan string, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.run(ctx, e, sess)
	return t, nil
}

func (t *TurnStream) run(ctx context.Context, e *Engine, sess *session.Session) {
	// The turn lock must be released before done closes: callers use Err as
	// the "turn is over" barrier.
	defer close(t.done)
	defer sess.EndTurn()

	var acc []byte
	abandoned := false
forward:
	for tok := range t.inner.Chunks() {
		acc = append(acc, tok...)
		select {
		case t.chunks <- tok:
		case <-t.stop:
			// Consumer walked away; stop forwarding so the turn can
			// finish instead of blocking on a full buffer forever.
			abandoned = true
			break forward
		}
	}
	// Drain whatever the producer still emits after cancellation so it can
	// shut down.
	for range t.inner.Chunks() {
	}
	close(t.chunks)

	if err := t.inner.Err(); err != nil || abandoned {
		if err == nil {
			err = context.Canceled
		}
		log.Printf("[Dialogue] stream failed: %v", err)
		t.err = err
		sess.AppendAssistant(FallbackReply)
		t.reply = FallbackReply
		return
	}

	t.reply = string(acc)
	sess.AppendAssistant(t.reply)
	e.maybeTerminate(ctx, sess, t.reply)
}
