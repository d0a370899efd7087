package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mb-mentor/internal/session"
)

// Conversation is a finished (or checkpointed) transcript persisted for the
// learner's record. The message history is stored as a JSON document in the
// saved-conversation format, so an archived row can be re-imported as-is.
type Conversation struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	SessionID  string         `gorm:"size:64;index" json:"session_id"`
	Mentor     string         `gorm:"size:16;not null" json:"mentor"`
	Summary    string         `json:"summary"`
	Analysis   string         `json:"analysis"`
	Terminated bool           `json:"terminated"`
	MsgHistory datatypes.JSON `json:"msg_history"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// Store persists conversations with gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Archive snapshots a session into the database. One row per session id:
// archiving twice updates the existing record.
func (s *Store) Archive(sess *session.Session) (*Conversation, error) {
	doc := sess.Export()
	raw, err := json.Marshal(doc.MsgHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}

	var conv Conversation
	err = s.db.Where("session_id = ? AND user_id = ?", sess.ID, sess.UserID).First(&conv).Error
	switch {
	case err == nil:
		conv.Mentor = doc.Mentor
		conv.Summary = sess.Summary()
		conv.Analysis = sess.Analysis()
		conv.Terminated = sess.Terminated()
		conv.MsgHistory = datatypes.JSON(raw)
		if err := s.db.Save(&conv).Error; err != nil {
			return nil, fmt.Errorf("failed to update archive: %w", err)
		}
		return &conv, nil
	case err == gorm.ErrRecordNotFound:
		conv = Conversation{
			UserID:     sess.UserID,
			SessionID:  sess.ID,
			Mentor:     doc.Mentor,
			Summary:    sess.Summary(),
			Analysis:   sess.Analysis(),
			Terminated: sess.Terminated(),
			MsgHistory: datatypes.JSON(raw),
		}
		if err := s.db.Create(&conv).Error; err != nil {
			return nil, fmt.Errorf("failed to create archive: %w", err)
		}
		return &conv, nil
	default:
		return nil, fmt.Errorf("archive lookup failed: %w", err)
	}
}

// List returns a user's archived conversations, newest first.
func (s *Store) List(userID uint) ([]Conversation, error) {
	var convs []Conversation
	if err := s.db.Where("user_id = ?", userID).Order("updated_at desc").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// Get returns one archived conversation owned by the user.
func (s *Store) Get(userID, id uint) (*Conversation, error) {
	var conv Conversation
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// Document reconstructs the saved-conversation format from an archived row.
func (c *Conversation) Document() (session.Document, error) {
	var history []session.DocumentMessage
	if err := json.Unmarshal(c.MsgHistory, &history); err != nil {
		return session.Document{}, fmt.Errorf("corrupt archived transcript: %w", err)
	}
	return session.Document{Mentor: c.Mentor, MsgHistory: history}, nil
}
