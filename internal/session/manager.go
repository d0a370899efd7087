package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyFmt = "conversation:%d:%s"
	snapshotTTL    = 7 * 24 * time.Hour
)

// ErrNotFound means no live or snapshotted session matches the id.
var ErrNotFound = errors.New("conversation not found")

// Manager owns the live sessions and mirrors them into redis so a restarted
// server can pick a conversation back up. Sessions never share mutable state
// with each other; the manager's lock only guards the map.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rdb      *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		rdb:      rdb,
	}
}

// Create starts a new conversation for the user with the given mentor.
func (m *Manager) Create(ctx context.Context, userID uint, mentorID string) *Session {
	s := New(uuid.New().String(), userID, mentorID)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.Save(ctx, s)
	return s
}

// Get returns the user's session by id, restoring it from redis if the
// process no longer holds it in memory.
func (m *Manager) Get(ctx context.Context, userID uint, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		if s.UserID != userID {
			return nil, ErrNotFound
		}
		return s, nil
	}
	return m.restore(ctx, userID, id)
}

// List returns the ids of the user's live sessions.
func (m *Manager) List(userID uint) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, s := range m.sessions {
		if s.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Delete drops a session from memory and redis.
func (m *Manager) Delete(ctx context.Context, userID uint, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if m.rdb != nil {
		_ = m.rdb.Del(ctx, fmt.Sprintf(snapshotKeyFmt, userID, id)).Err()
	}
}

// snapshot is the redis mirror of a session. It carries more than the export
// Document so summaries and the project algorithm survive a restart.
type snapshot struct {
	Mentor           string    `json:"mentor"`
	Messages         []Message `json:"msg_history"`
	Terminated       bool      `json:"terminated"`
	Summary          string    `json:"summary,omitempty"`
	OldSummary       string    `json:"old_summary,omitempty"`
	Analysis         string    `json:"analysis,omitempty"`
	ProjectAlgorithm string    `json:"project_algorithm,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Save mirrors the session into redis. Snapshot failures are logged and
// swallowed; losing a mirror must not fail the turn that triggered it.
func (m *Manager) Save(ctx context.Context, s *Session) {
	if m.rdb == nil {
		return
	}
	s.mu.Lock()
	snap := snapshot{
		Mentor:           s.mentorID,
		Messages:         append([]Message(nil), s.messages...),
		Terminated:       s.terminated,
		Summary:          s.summary,
		OldSummary:       s.oldSummary,
		Analysis:         s.analysis,
		ProjectAlgorithm: s.projectAlgorithm,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	userID, id := s.UserID, s.ID
	s.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[Session] snapshot marshal failed for %s: %v", id, err)
		return
	}
	key := fmt.Sprintf(snapshotKeyFmt, userID, id)
	if err := m.rdb.Set(ctx, key, raw, snapshotTTL).Err(); err != nil {
		log.Printf("[Session] snapshot write failed for %s: %v", id, err)
	}
}

func (m *Manager) restore(ctx context.Context, userID uint, id string) (*Session, error) {
	if m.rdb == nil {
		return nil, ErrNotFound
	}
	key := fmt.Sprintf(snapshotKeyFmt, userID, id)
	raw, err := m.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, ErrNotFound
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("corrupt conversation snapshot: %w", err)
	}

	s := &Session{
		ID:               id,
		UserID:           userID,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
		mentorID:         snap.Mentor,
		messages:         snap.Messages,
		terminated:       snap.Terminated,
		summary:          snap.Summary,
		oldSummary:       snap.OldSummary,
		analysis:         snap.Analysis,
		projectAlgorithm: snap.ProjectAlgorithm,
	}

	m.mu.Lock()
	// Another request may have restored it concurrently; keep the first.
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}
