package session

import (
	"errors"
	"sync"
	"time"

	"mb-mentor/internal/mentor"
)

type Role string

const (
	RoleSystem    Role = "System"
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// Tags distinguish derived assistant entries from ordinary replies so the
// frontend can render them differently. They stay part of the transcript and
// feed back into prompt composition like any other message.
const (
	TagSummary  = "summary"
	TagProgress = "progress"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Tag       string    `json:"tag,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

var (
	// ErrTerminated rejects user input once the mentor has said goodbye.
	ErrTerminated = errors.New("conversation has ended; reset to start a new one")
	// ErrTurnInFlight rejects a user turn while a previous completion for
	// the same conversation is still outstanding.
	ErrTurnInFlight = errors.New("a reply is already being generated for this conversation")
)

// Session holds one learner conversation. The message log is append-only:
// user and assistant entries are never edited after the fact, and the single
// System entry at the head is the only message ever rewritten (on persona
// switch or project upload).
type Session struct {
	ID        string
	UserID    uint
	CreatedAt time.Time
	UpdatedAt time.Time

	mu   sync.Mutex
	turn sync.Mutex

	mentorID         string
	messages         []Message
	terminated       bool
	summary          string
	oldSummary       string
	analysis         string
	projectAlgorithm string
}

// New creates a session with the given mentor active. An unknown mentor id
// falls back to the default persona.
func New(id string, userID uint, mentorID string) *Session {
	if !mentor.Exists(mentorID) {
		mentorID = mentor.DefaultID
	}
	s := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = s.SetMentor(mentorID)
	return s
}

// BeginTurn claims the session for one user turn. It fails immediately with
// ErrTurnInFlight instead of queueing, so a learner mashing send cannot stack
// completions for the same conversation.
func (s *Session) BeginTurn() error {
	if !s.turn.TryLock() {
		return ErrTurnInFlight
	}
	return nil
}

// EndTurn releases the claim taken by BeginTurn.
func (s *Session) EndTurn() {
	s.turn.Unlock()
}

// AppendUser appends a learner message. Rejected once the conversation has
// terminated; reset is the only way back.
func (s *Session) AppendUser(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return ErrTerminated
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
	return nil
}

// AppendAssistant appends a mentor reply.
func (s *Session) AppendAssistant(content string) {
	s.appendAssistant(content, "")
}

// AppendTagged appends a derived assistant entry (summary, progress).
func (s *Session) AppendTagged(tag, content string) {
	s.appendAssistant(content, tag)
}

func (s *Session) appendAssistant(content, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: content, Tag: tag, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
}

// SetMentor activates a persona. The unique System message at the head of the
// log is rewritten in place (or inserted if missing); any project algorithm
// previously derived for this session is re-attached, so switching mentors
// never loses it. Idempotent under repeated calls with the same id.
func (s *Session) SetMentor(id string) error {
	p, err := mentor.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentorID = p.ID
	s.rebuildSystemMessage(p)
	s.UpdatedAt = time.Now()
	return nil
}

// rebuildSystemMessage writes the persona instruction (plus the project
// algorithm suffix when present) into the single System slot. Callers hold mu.
func (s *Session) rebuildSystemMessage(p *mentor.Persona) {
	content := p.Instruction()
	if s.projectAlgorithm != "" {
		content += "\n\nUser's Project Algorithm:\n" + s.projectAlgorithm
	}
	if len(s.messages) > 0 && s.messages[0].Role == RoleSystem {
		s.messages[0].Content = content
		return
	}
	s.messages = append([]Message{{Role: RoleSystem, Content: content, Timestamp: time.Now()}}, s.messages...)
}

// SetProjectAlgorithm stores the algorithm derived from an uploaded project
// and folds it into the System message. It survives persona switches.
func (s *Session) SetProjectAlgorithm(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectAlgorithm = text
	if p, err := mentor.Get(s.mentorID); err == nil {
		s.rebuildSystemMessage(p)
	}
	s.UpdatedAt = time.Now()
}

// Terminate flips the one-way terminated flag.
func (s *Session) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	s.UpdatedAt = time.Now()
}

// Terminated reports whether the mentor has closed the conversation.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Reset clears the log, flags and derived texts, keeping the active mentor.
func (s *Session) Reset() {
	s.mu.Lock()
	id := s.mentorID
	s.messages = nil
	s.terminated = false
	s.summary = ""
	s.oldSummary = ""
	s.analysis = ""
	s.projectAlgorithm = ""
	s.mu.Unlock()
	_ = s.SetMentor(id)
}

// Mentor returns the active persona id.
func (s *Session) Mentor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mentorID
}

// History returns a copy of the full message log, System entry included.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Transcript returns the user-facing log with System entries stripped.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AssistantTurns counts assistant entries by scanning the log. Turn counters
// are always derived this way so they cannot drift from the log contents.
func (s *Session) AssistantTurns() int {
	return s.countRole(RoleAssistant)
}

// UserTurns counts user entries by scanning the log.
func (s *Session) UserTurns() int {
	return s.countRole(RoleUser)
}

func (s *Session) countRole(r Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.Role == r {
			n++
		}
	}
	return n
}

// LastAssistant returns the most recent assistant reply, if any.
func (s *Session) LastAssistant() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// RecordSummary checkpoints the previous summary as the comparison baseline
// and stores the new one. This is the only place oldSummary is written.
func (s *Session) RecordSummary(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != "" {
		s.oldSummary = s.summary
	}
	s.summary = text
	s.UpdatedAt = time.Now()
}

// RecordAnalysis stores the progress analysis text.
func (s *Session) RecordAnalysis(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = text
	s.UpdatedAt = time.Now()
}

// Summary returns the latest summary text ("" if none yet).
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// OldSummary returns the checkpointed baseline summary.
func (s *Session) OldSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oldSummary
}

// Analysis returns the latest progress analysis ("" if none yet).
func (s *Session) Analysis() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// ProjectAlgorithm returns the derived project algorithm ("" if none).
func (s *Session) ProjectAlgorithm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectAlgorithm
}
