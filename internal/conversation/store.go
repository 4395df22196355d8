// Package conversation owns the chat session collection: every mutation of
// sessions and messages goes through the Store, and the full collection is
// rewritten to durable storage after each one.
package conversation

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"golivebuddy/internal/domain"
	"golivebuddy/internal/stream"
)

// titleLimit is the number of leading characters of the first user message
// used as the session title
const titleLimit = 45

// Storage is the durable key-value contract the store persists through.
// The whole serialized session collection lives under a single key and is
// rewritten in full on every persist.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store holds the session collection and the active session pointer.
// It is an explicit state object: construct it once at startup and thread
// it through, never a package-level singleton.
type Store struct {
	mu      sync.Mutex
	storage Storage
	key     string
	logger  *zap.Logger

	sessions []*domain.ChatSession // creation order
	activeID string
	inFlight map[string]string // session id -> streaming assistant message id
}

// NewStore loads the persisted collection, creating one empty session when
// none exist. A corrupt snapshot is logged and treated as absent.
func NewStore(storage Storage, key string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		storage:  storage,
		key:      key,
		logger:   logger,
		inFlight: make(map[string]string),
	}

	raw, ok, err := storage.Get(key)
	if err != nil {
		return nil, err
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.sessions); err != nil {
			logger.Warn("discarding corrupt session snapshot", zap.Error(err))
			s.sessions = nil
		}
	}

	if len(s.sessions) == 0 {
		s.createSessionLocked()
	} else {
		s.activeID = s.sessions[len(s.sessions)-1].ID
	}
	return s, nil
}

// CreateSession appends a new empty session and makes it active
func (s *Store) CreateSession() *domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.createSessionLocked()
	s.persistLocked()
	return sess
}

func (s *Store) createSessionLocked() *domain.ChatSession {
	sess := &domain.ChatSession{
		ID:        uuid.New().String(),
		Title:     domain.DefaultSessionTitle,
		Messages:  []*domain.Message{},
		CreatedAt: time.Now(),
	}
	s.sessions = append(s.sessions, sess)
	s.activeID = sess.ID
	return sess
}

// Sessions returns the session collection in creation order
func (s *Store) Sessions() []*domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ChatSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// ActiveID returns the id of the active session
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveSession returns the active session
func (s *Store) ActiveSession() *domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked(s.activeID)
}

// SelectSession makes an existing session active
func (s *Store) SelectSession(id string) (*domain.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(id)
	if sess == nil {
		return nil, domain.ErrNotFound
	}
	s.activeID = id
	return sess, nil
}

// DeleteSession removes a session. Deleting the active session activates
// the most recently created remaining one, or a fresh session when the
// collection would become empty.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sess := range s.sessions {
		if sess.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	delete(s.inFlight, id)

	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[len(s.sessions)-1].ID
		} else {
			s.createSessionLocked()
		}
	}
	s.persistLocked()
	return nil
}

// BeginTurn appends the user message and the placeholder assistant message
// for one turn and returns the placeholder. It rejects empty submissions
// and sessions with a turn already streaming.
func (s *Store) BeginTurn(text, image string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(text) == "" && image == "" {
		return nil, domain.ErrInvalidRequest
	}

	sess := s.sessionLocked(s.activeID)
	if sess == nil {
		return nil, domain.ErrNotFound
	}
	if _, busy := s.inFlight[sess.ID]; busy {
		return nil, domain.ErrTurnInFlight
	}

	if !hasUserMessage(sess) {
		sess.Title = deriveTitle(text)
	}

	now := time.Now()
	user := &domain.Message{
		ID:        uuid.New().String(),
		Seq:       len(sess.Messages) + 1,
		Role:      domain.RoleUser,
		Content:   text,
		Image:     image,
		CreatedAt: now,
	}
	sess.Messages = append(sess.Messages, user)

	placeholder := &domain.Message{
		ID:        uuid.New().String(),
		Seq:       len(sess.Messages) + 1,
		Role:      domain.RoleAssistant,
		CreatedAt: now,
	}
	sess.Messages = append(sess.Messages, placeholder)

	s.inFlight[sess.ID] = placeholder.ID
	s.persistLocked()
	return placeholder, nil
}

// ApplyEvent applies one segmenter event to the message it was captured
// for at submission time. Events targeting a message that no longer exists
// are harmless no-ops, which makes late-arriving stream completions safe
// without cancellation plumbing.
func (s *Store) ApplyEvent(messageID string, ev stream.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, msg := s.findMessageLocked(messageID)
	if msg == nil {
		return
	}

	switch ev.Type {
	case stream.EventText, stream.EventError:
		msg.Content += ev.Text
	case stream.EventSources:
		nodes := make([]domain.SourceNode, len(ev.Sources))
		copy(nodes, ev.Sources)
		msg.Sources = &nodes
	case stream.EventFocus:
		msg.FocusCoord = ev.Focus
	case stream.EventDone:
		if s.inFlight[sess.ID] == messageID {
			delete(s.inFlight, sess.ID)
		}
	}
	s.persistLocked()
}

// FinishTurn clears the in-flight flag for the turn owning the message.
// Idempotent; covers streams that end without a completion signal.
func (s *Store) FinishTurn(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, msg := s.findMessageLocked(messageID)
	if msg == nil {
		return
	}
	if s.inFlight[sess.ID] == messageID {
		delete(s.inFlight, sess.ID)
	}
}

// FailTurn appends a visible error line to the placeholder and ends the
// turn. Partial content already streamed is kept.
func (s *Store) FailTurn(messageID, visible string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, msg := s.findMessageLocked(messageID)
	if msg == nil {
		return
	}
	if msg.Content != "" && !strings.HasSuffix(msg.Content, "\n") {
		msg.Content += "\n"
	}
	msg.Content += visible
	if s.inFlight[sess.ID] == messageID {
		delete(s.inFlight, sess.ID)
	}
	s.persistLocked()
}

// MarkHelpful records a feedback vote on a message
func (s *Store) MarkHelpful(messageID string, helpful bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, msg := s.findMessageLocked(messageID)
	if msg == nil {
		return domain.ErrNotFound
	}
	msg.Helpful = &helpful
	s.persistLocked()
	return nil
}

// TurnInFlight reports whether a turn is streaming for the session
func (s *Store) TurnInFlight(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[sessionID]
	return busy
}

// FindMessage locates a message and its session across all sessions
func (s *Store) FindMessage(messageID string) (*domain.ChatSession, *domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, msg := s.findMessageLocked(messageID)
	return sess, msg, msg != nil
}

// Counts returns the number of sessions and messages
func (s *Store) Counts() (sessions, messages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		messages += len(sess.Messages)
	}
	return len(s.sessions), messages
}

func (s *Store) sessionLocked(id string) *domain.ChatSession {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

func (s *Store) findMessageLocked(messageID string) (*domain.ChatSession, *domain.Message) {
	for _, sess := range s.sessions {
		for _, msg := range sess.Messages {
			if msg.ID == messageID {
				return sess, msg
			}
		}
	}
	return nil, nil
}

// persistLocked rewrites the full collection in one write. Storage
// failures never interrupt the in-memory conversation.
func (s *Store) persistLocked() {
	raw, err := json.Marshal(s.sessions)
	if err != nil {
		s.logger.Warn("failed to serialize sessions", zap.Error(err))
		return
	}
	if err := s.storage.Set(s.key, string(raw)); err != nil {
		s.logger.Warn("failed to persist sessions", zap.Error(err))
	}
}

func hasUserMessage(sess *domain.ChatSession) bool {
	for _, msg := range sess.Messages {
		if msg.Role == domain.RoleUser {
			return true
		}
	}
	return false
}

func deriveTitle(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.DefaultSessionTitle
	}
	runes := []rune(trimmed)
	if len(runes) <= titleLimit {
		return trimmed
	}
	return string(runes[:titleLimit]) + "..."
}
