package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mb-mentor/internal/session"
)

func populatedSession(turns int) *session.Session {
	sess := session.New("id1", 1, "meta")
	for i := 0; i < turns; i++ {
		_ = sess.AppendUser("I tried the pitch-drum matrix")
		sess.AppendAssistant("Why did you choose it?")
	}
	return sess
}

func TestSummarize_InsufficientHistorySkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(4)

	_, err := e.Summarize(context.Background(), sess)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if len(llm.prompts) != 0 {
		t.Errorf("completion collaborator must not be called, got %d prompts", len(llm.prompts))
	}
	if sess.Summary() != "" || len(sess.Transcript()) != 8 {
		t.Errorf("guard must not mutate session state")
	}
}

func TestSummarize_RecordsAndAppendsTagged(t *testing.T) {
	llm := &fakeLLM{replies: []string{"The learner explored rhythm patterns."}}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(10)

	text, err := e.Summarize(context.Background(), sess)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sess.Summary() != text {
		t.Errorf("summary not recorded")
	}
	tr := sess.Transcript()
	last := tr[len(tr)-1]
	if last.Role != session.RoleAssistant || last.Tag != session.TagSummary {
		t.Errorf("summary entry not tagged: %+v", last)
	}
	if !strings.Contains(llm.prompts[0], "I tried the pitch-drum matrix") {
		t.Errorf("summary prompt missing user queries")
	}
}

func TestSummarize_SecondRunCheckpointsBaseline(t *testing.T) {
	llm := &fakeLLM{replies: []string{"first summary", "second summary"}}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(10)

	if _, err := e.Summarize(context.Background(), sess); err != nil {
		t.Fatalf("first Summarize: %v", err)
	}
	if _, err := e.Summarize(context.Background(), sess); err != nil {
		t.Fatalf("second Summarize: %v", err)
	}
	if sess.OldSummary() != "first summary" || sess.Summary() != "second summary" {
		t.Errorf("baseline checkpoint wrong: old=%q new=%q", sess.OldSummary(), sess.Summary())
	}
}

func TestAnalyzeProgress_NoSummarySkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(10)

	_, err := e.AnalyzeProgress(context.Background(), sess)
	if !errors.Is(err, ErrNoSummary) {
		t.Fatalf("expected ErrNoSummary, got %v", err)
	}
	if len(llm.prompts) != 0 {
		t.Errorf("completion collaborator must not be called")
	}
	if sess.Analysis() != "" {
		t.Errorf("guard must not mutate session state")
	}
}

func TestAnalyzeProgress_ComparesSummaries(t *testing.T) {
	llm := &fakeLLM{replies: []string{"old one", "new one", "solid growth, gaps remain"}}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(10)

	_, _ = e.Summarize(context.Background(), sess)
	_, _ = e.Summarize(context.Background(), sess)

	text, err := e.AnalyzeProgress(context.Background(), sess)
	if err != nil {
		t.Fatalf("AnalyzeProgress: %v", err)
	}
	if sess.Analysis() != text {
		t.Errorf("analysis not recorded")
	}
	prompt := llm.prompts[len(llm.prompts)-1]
	if !strings.Contains(prompt, "old one") || !strings.Contains(prompt, "new one") {
		t.Errorf("analysis prompt missing summaries:\n%s", prompt)
	}
	tr := sess.Transcript()
	if tr[len(tr)-1].Tag != session.TagProgress {
		t.Errorf("progress entry not tagged")
	}
}

func TestSummarize_CompletionFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	e := NewEngine(&fakeGate{}, llm, testConfig())
	sess := populatedSession(10)

	if _, err := e.Summarize(context.Background(), sess); err == nil {
		t.Fatalf("expected error")
	}
	if sess.Summary() != "" {
		t.Errorf("failed summarize must not record a summary")
	}
}
