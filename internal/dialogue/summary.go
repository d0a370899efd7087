package dialogue

import (
	"context"
	"fmt"
	"strings"

	"mb-mentor/internal/session"
)

// Summarize condenses the learner's side of the conversation into a bounded
// narrative of learning and takeaways. The result is recorded on the session
// (checkpointing the previous summary as the comparison baseline) and
// appended to the transcript as a tagged assistant entry.
func (e *Engine) Summarize(ctx context.Context, sess *session.Session) (string, error) {
	if sess.AssistantTurns() < e.cfg.SummaryMinTurns {
		return "", ErrInsufficientHistory
	}

	var userQueries, assistantReplies []string
	for _, m := range sess.Transcript() {
		switch m.Role {
		case session.RoleUser:
			userQueries = append(userQueries, m.Content)
		case session.RoleAssistant:
			assistantReplies = append(assistantReplies, m.Content)
		}
	}

	prompt := fmt.Sprintf(`Analyze the following conversation and generate a concise summary of the User's learning and takeaway points. Cover User Queries only.
Add only relevant information in this summary. Write a paragraph under 200 words (detailed).
User Queries:
%s
Assistant Responses:
%s
Summary:`, strings.Join(userQueries, "\n"), strings.Join(assistantReplies, "\n"))

	text, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	sess.RecordSummary(text)
	sess.AppendTagged(session.TagSummary, "📝 Here's a summary of our conversation:\n\n"+text)
	return text, nil
}

// AnalyzeProgress compares the checkpointed baseline summary with the
// current one into a short, non-flattering progress verdict. Refuses without
// touching the model when no summary exists yet.
func (e *Engine) AnalyzeProgress(ctx context.Context, sess *session.Session) (string, error) {
	newSummary := sess.Summary()
	if newSummary == "" {
		return "", ErrNoSummary
	}

	prompt := fmt.Sprintf(`Analyze the user's learning by comparing two summaries. Identify key improvements, knowledge growth, and remaining gaps.
Provide a constructive, truthful and realistic assessment of their development over time in a paragraph under 50 words, avoiding flattery.
Previous Summary:
%s
Current Summary:
%s
Learning Outcome:`, sess.OldSummary(), newSummary)

	text, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("progress analysis failed: %w", err)
	}

	sess.RecordAnalysis(text)
	sess.AppendTagged(session.TagProgress, "📈 Learning Outcome:\n\n"+text)
	return text, nil
}
