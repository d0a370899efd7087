package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mb-mentor/internal/session"
)

// maybeTerminate runs the goodbye classifier once the conversation is long
// enough and flips the one-way terminated flag on an affirmative verdict.
// The turn-count gate keeps short conversations from paying for a classifier
// call on every reply.
func (e *Engine) maybeTerminate(ctx context.Context, sess *session.Session, lastReply string) {
	if sess.AssistantTurns() <= e.cfg.TerminationTurns {
		return
	}
	if e.shouldTerminate(ctx, lastReply) {
		sess.Terminate()
	}
}

// shouldTerminate asks the model a closed yes/no question about the last
// reply. Only the exact token "yes" terminates; any other output, malformed
// responses and completion errors included, keeps the conversation open.
// Premature termination is the costlier mistake.
func (e *Engine) shouldTerminate(ctx context.Context, lastReply string) bool {
	prompt := fmt.Sprintf(`AI Message: %q
Did the AI say bye to the user? Is the AI saying that the conversation is over and has come to an end?
(only yes/no)`, lastReply)

	verdict, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("[Dialogue] termination classifier failed, keeping conversation open: %v", err)
		return false
	}
	return strings.ToLower(strings.TrimSpace(verdict)) == "yes"
}
