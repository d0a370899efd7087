package session

import (
	"encoding/json"
	"fmt"

	"mb-mentor/internal/mentor"
)

// Document is the externally saved/loaded conversation format. It is what a
// learner downloads at the end of a conversation and what an import has to
// reconstruct a session from.
type Document struct {
	Mentor     string            `json:"mentor"`
	MsgHistory []DocumentMessage `json:"msg_history"`
}

type DocumentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Tag     string `json:"tag,omitempty"`
}

// Export renders the session as a Document.
func (s *Session) Export() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := Document{Mentor: s.mentorID, MsgHistory: make([]DocumentMessage, 0, len(s.messages))}
	for _, m := range s.messages {
		doc.MsgHistory = append(doc.MsgHistory, DocumentMessage{Role: string(m.Role), Content: m.Content, Tag: m.Tag})
	}
	return doc
}

// validate checks a document for structural well-formedness: a known mentor,
// known roles, non-empty content, and a System entry nowhere but the head.
func (d *Document) validate() error {
	if !mentor.Exists(d.Mentor) {
		return fmt.Errorf("unknown mentor %q in saved conversation", d.Mentor)
	}
	for i, m := range d.MsgHistory {
		switch Role(m.Role) {
		case RoleSystem:
			if i != 0 {
				return fmt.Errorf("message %d: System entry only allowed at the head", i)
			}
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("message %d: empty content", i)
		}
	}
	return nil
}

// Load reconstructs the session from a saved document. The load is atomic: a
// malformed document leaves the session exactly as it was.
func (s *Session) Load(doc Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	p, err := mentor.Get(doc.Mentor)
	if err != nil {
		return err
	}

	rebuilt := make([]Message, 0, len(doc.MsgHistory)+1)
	for i, m := range doc.MsgHistory {
		if i == 0 && Role(m.Role) == RoleSystem {
			// The head System entry is replaced below with the current
			// persona instruction rather than trusted from the file.
			continue
		}
		rebuilt = append(rebuilt, Message{Role: Role(m.Role), Content: m.Content, Tag: m.Tag})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentorID = p.ID
	s.messages = rebuilt
	s.terminated = false
	s.summary = ""
	s.oldSummary = ""
	s.analysis = ""
	s.rebuildSystemMessage(p)
	return nil
}

// ParseDocument decodes a document from JSON with validation, rejecting
// malformed input before it can touch any session.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("invalid conversation document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}
