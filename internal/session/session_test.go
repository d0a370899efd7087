package session

import (
	"strings"
	"testing"

	"mb-mentor/internal/mentor"
)

func countSystem(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleSystem {
			n++
		}
	}
	return n
}

func TestNew_InsertsSingleSystemMessage(t *testing.T) {
	s := New("id1", 1, "meta")
	h := s.History()
	if len(h) != 1 || h[0].Role != RoleSystem {
		t.Fatalf("expected single System message, got %+v", h)
	}
	if !strings.Contains(h[0].Content, "Rohan") {
		t.Errorf("system message missing persona instruction")
	}
}

func TestNew_UnknownMentorFallsBack(t *testing.T) {
	s := New("id1", 1, "nope")
	if s.Mentor() != mentor.DefaultID {
		t.Errorf("expected default mentor, got %q", s.Mentor())
	}
}

func TestSetMentor_ReplacesInPlace(t *testing.T) {
	s := New("id1", 1, "meta")
	if err := s.AppendUser("hello"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	s.AppendAssistant("hi there")

	for _, id := range []string{"music", "code", "music", "music"} {
		if err := s.SetMentor(id); err != nil {
			t.Fatalf("SetMentor(%q): %v", id, err)
		}
	}

	h := s.History()
	if countSystem(h) != 1 {
		t.Fatalf("expected exactly one System message after switches, got %d", countSystem(h))
	}
	if h[0].Role != RoleSystem || !strings.Contains(h[0].Content, "Beethoven") {
		t.Errorf("head System message not rebuilt for active persona")
	}
	// Prior user/assistant entries untouched.
	if h[1].Content != "hello" || h[2].Content != "hi there" {
		t.Errorf("persona switch mutated history: %+v", h[1:])
	}
}

func TestSetMentor_Unknown(t *testing.T) {
	s := New("id1", 1, "meta")
	if err := s.SetMentor("philosophy"); err == nil {
		t.Errorf("expected error for unknown mentor")
	}
	if s.Mentor() != "meta" {
		t.Errorf("failed switch changed active mentor")
	}
}

func TestProjectAlgorithm_SurvivesMentorSwitch(t *testing.T) {
	s := New("id1", 1, "meta")
	s.SetProjectAlgorithm("X")
	if err := s.SetMentor("music"); err != nil {
		t.Fatalf("SetMentor: %v", err)
	}
	h := s.History()
	if countSystem(h) != 1 {
		t.Fatalf("expected one System message, got %d", countSystem(h))
	}
	sys := h[0].Content
	if !strings.Contains(sys, "Beethoven") || !strings.Contains(sys, "X") {
		t.Errorf("system message should carry new persona and project algorithm, got: %s", sys)
	}
}

func TestTerminated_OneWay(t *testing.T) {
	s := New("id1", 1, "meta")
	s.Terminate()
	if !s.Terminated() {
		t.Fatalf("expected terminated")
	}
	if err := s.AppendUser("still there?"); err != ErrTerminated {
		t.Errorf("expected ErrTerminated, got %v", err)
	}
	// Only reset clears the flag.
	s.Reset()
	if s.Terminated() {
		t.Errorf("reset should clear terminated")
	}
	if err := s.AppendUser("hello again"); err != nil {
		t.Errorf("AppendUser after reset: %v", err)
	}
}

func TestTurnCounts_DerivedFromLog(t *testing.T) {
	s := New("id1", 1, "meta")
	for i := 0; i < 3; i++ {
		if err := s.AppendUser("u"); err != nil {
			t.Fatalf("AppendUser: %v", err)
		}
		s.AppendAssistant("a")
	}
	s.AppendTagged(TagSummary, "summary text")
	if got := s.UserTurns(); got != 3 {
		t.Errorf("UserTurns = %d, want 3", got)
	}
	// Tagged entries are assistant-authored and count as such.
	if got := s.AssistantTurns(); got != 4 {
		t.Errorf("AssistantTurns = %d, want 4", got)
	}
}

func TestTranscript_ExcludesSystem(t *testing.T) {
	s := New("id1", 1, "meta")
	_ = s.AppendUser("u1")
	s.AppendAssistant("a1")
	tr := s.Transcript()
	if len(tr) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(tr))
	}
	if countSystem(tr) != 0 {
		t.Errorf("transcript must not contain System entries")
	}
}

func TestRecordSummary_CheckpointsOldSummary(t *testing.T) {
	s := New("id1", 1, "meta")
	s.RecordSummary("first")
	if s.OldSummary() != "" {
		t.Errorf("first summary must not create a baseline, got %q", s.OldSummary())
	}
	s.RecordSummary("second")
	if s.OldSummary() != "first" || s.Summary() != "second" {
		t.Errorf("checkpoint broken: old=%q new=%q", s.OldSummary(), s.Summary())
	}
}

func TestLastAssistant(t *testing.T) {
	s := New("id1", 1, "meta")
	if _, ok := s.LastAssistant(); ok {
		t.Errorf("empty session should have no assistant reply")
	}
	_ = s.AppendUser("u")
	s.AppendAssistant("first")
	s.AppendAssistant("second")
	got, ok := s.LastAssistant()
	if !ok || got != "second" {
		t.Errorf("LastAssistant = %q, %v", got, ok)
	}
}

func TestBeginTurn_RejectsConcurrentTurn(t *testing.T) {
	s := New("id1", 1, "meta")
	if err := s.BeginTurn(); err != nil {
		t.Fatalf("BeginTurn: %v", err)
	}
	if err := s.BeginTurn(); err != ErrTurnInFlight {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}
	s.EndTurn()
	if err := s.BeginTurn(); err != nil {
		t.Errorf("BeginTurn after EndTurn: %v", err)
	}
	s.EndTurn()
}

func TestReset_ClearsEverythingButMentor(t *testing.T) {
	s := New("id1", 1, "music")
	_ = s.AppendUser("u")
	s.AppendAssistant("a")
	s.RecordSummary("sum")
	s.SetProjectAlgorithm("alg")
	s.Reset()

	if s.Mentor() != "music" {
		t.Errorf("reset should keep the active mentor")
	}
	if len(s.Transcript()) != 0 {
		t.Errorf("reset should clear the transcript")
	}
	if s.Summary() != "" || s.ProjectAlgorithm() != "" {
		t.Errorf("reset should clear derived texts")
	}
	h := s.History()
	if len(h) != 1 || h[0].Role != RoleSystem {
		t.Errorf("reset session should hold only the System message, got %+v", h)
	}
}
