package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mystic-chat/internal/api"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the client-side view of one transcript entry. The user's own
// messages are created optimistically before the server confirms; failed
// sends leave a synthetic assistant entry with IsError set.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  *Metadata
	IsError   bool
}

type Metadata struct {
	MessageType string
	RagUsed     bool
	CacheHit    bool
}

// Store holds the client-side session state and reconciles it with the
// remote session store. The remote side owns the data; everything here is
// a cached copy plus the one in-progress transcript.
//
// The session list and transcript are only mutated by Store methods, each
// completing its mutation before the next applies. The mutex is needed
// because the TUI runs remote calls on their own goroutines.
type Store struct {
	client *api.Client
	logger *logrus.Logger

	mu        sync.RWMutex
	sessions  []api.SessionInfo
	currentID string // empty means a new, not-yet-persisted session
	messages  []Message
	loading   bool
	dismissed bool
	loadGen   uint64
}

func NewStore(client *api.Client, logger *logrus.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Sessions returns a copy of the cached session list sorted by last
// activity, newest first.
func (s *Store) Sessions() []api.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]api.SessionInfo, len(s.sessions))
	copy(sessions, s.sessions)
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivity.After(sessions[j].LastActivity)
	})
	return sessions
}

func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return messages
}

func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// NewSession is empty, so suggestions show for it until dismissed.
func (s *Store) IsNewSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages) == 0
}

func (s *Store) SuggestionsDismissed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dismissed
}

func (s *Store) DismissSuggestions() {
	s.mu.Lock()
	s.dismissed = true
	s.mu.Unlock()
}

// RefreshSessions replaces the cached session list wholesale from the
// remote store. On failure the stale list is kept; stale-but-available
// beats empty.
func (s *Store) RefreshSessions(ctx context.Context) error {
	sessions, err := s.client.Sessions(ctx)
	if err != nil {
		s.logger.Warnf("failed to fetch sessions: %v", err)
		return err
	}
	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
	return nil
}

// NewSession resets the client to a fresh, unsaved session. Purely local:
// the remote store only learns about the session on the first message.
func (s *Store) NewSession() {
	s.mu.Lock()
	s.messages = nil
	s.currentID = ""
	s.dismissed = false
	s.loadGen++ // any in-flight history load is now stale
	s.mu.Unlock()
}

// LoadSession switches to a session and replaces the transcript with its
// remote history. The transcript is cleared up front so stale content is
// never shown mid-switch; a response superseded by a later switch is
// discarded. An empty history is a valid session, not an error.
func (s *Store) LoadSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	s.messages = nil
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	history, err := s.client.SessionHistory(ctx, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadGen != gen {
		return nil // a later switch won
	}
	if err != nil {
		s.logger.Warnf("failed to load session %s: %v", sessionID, err)
		s.messages = nil
		return err
	}

	s.currentID = sessionID
	if len(history.Messages) == 0 {
		// A history-less session behaves like a new one.
		s.dismissed = false
	}
	s.messages = make([]Message, 0, len(history.Messages))
	for _, msg := range history.Messages {
		s.messages = append(s.messages, Message{
			ID:        uuid.NewString(),
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}
	return nil
}

// SendMessage submits a chat message. The user's entry is appended
// immediately; the assistant's reply only after the server answers. A
// failed send appends a visible error entry instead of surfacing the
// error, so the conversation view keeps functioning either way.
func (s *Store) SendMessage(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	wasFirst := len(s.messages) == 0
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	s.loading = true
	sessionID := s.currentID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	reply, err := s.client.SendChat(ctx, text, sessionID)
	if err != nil {
		s.logger.Warnf("chat request failed: %v", err)
		s.mu.Lock()
		s.messages = append(s.messages, Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   "Error: " + err.Error(),
			Timestamp: time.Now(),
			IsError:   true,
		})
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   reply.Response,
		Timestamp: reply.Timestamp,
		Metadata: &Metadata{
			MessageType: reply.MessageType,
			RagUsed:     reply.RagUsed,
			CacheHit:    reply.CacheHit,
		},
	})
	// The server assigns the real id on the first exchange.
	s.currentID = reply.SessionID
	s.mu.Unlock()

	if wasFirst {
		if err := s.client.UpdateSessionTitle(ctx, reply.SessionID, GenerateTitle(text)); err != nil {
			s.logger.Warnf("failed to update session title: %v", err)
		}
	}

	// Keep message counts current.
	_ = s.RefreshSessions(ctx)
}

// RenameSession updates the remote title and refreshes the list. The
// local title is not updated optimistically; the refreshed list is the
// source of truth for whatever the server accepted.
func (s *Store) RenameSession(ctx context.Context, sessionID, title string) error {
	if err := s.client.UpdateSessionTitle(ctx, sessionID, title); err != nil {
		s.logger.Warnf("failed to rename session %s: %v", sessionID, err)
		return err
	}
	return s.RefreshSessions(ctx)
}

func (s *Store) ArchiveSession(ctx context.Context, sessionID string) error {
	if err := s.client.ArchiveSession(ctx, sessionID); err != nil {
		s.logger.Warnf("failed to archive session %s: %v", sessionID, err)
		return err
	}
	s.afterRemoval(ctx, sessionID)
	return nil
}

// DeleteSession permanently removes a session. Irreversible; callers are
// expected to confirm with the user before invoking it.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteSession(ctx, sessionID); err != nil {
		s.logger.Warnf("failed to delete session %s: %v", sessionID, err)
		return err
	}
	s.afterRemoval(ctx, sessionID)
	return nil
}

func (s *Store) afterRemoval(ctx context.Context, sessionID string) {
	_ = s.RefreshSessions(ctx)
	s.mu.Lock()
	if s.currentID == sessionID {
		s.messages = nil
		s.currentID = ""
		s.dismissed = false
		s.loadGen++
	}
	s.mu.Unlock()
}

// UnarchiveSession restores an archived session and refreshes the list.
func (s *Store) UnarchiveSession(ctx context.Context, sessionID string) error {
	if err := s.client.UnarchiveSession(ctx, sessionID); err != nil {
		s.logger.Warnf("failed to unarchive session %s: %v", sessionID, err)
		return err
	}
	return s.RefreshSessions(ctx)
}

// MaybeAutoLoad reconciles a current session whose transcript has not
// been fetched yet: when the listed record shows messages but the local
// transcript is empty, the history is loaded. Idempotent once the
// transcript is populated.
func (s *Store) MaybeAutoLoad(ctx context.Context) (bool, error) {
	s.mu.RLock()
	id := s.currentID
	empty := len(s.messages) == 0
	var count int
	for _, session := range s.sessions {
		if session.SessionID == id {
			count = session.MessageCount
			break
		}
	}
	s.mu.RUnlock()

	if id == "" || !empty || count == 0 {
		return false, nil
	}
	s.logger.Debugf("auto-loading %d messages for session %s", count, id)
	return true, s.LoadSession(ctx, id)
}

// Regenerate discards an assistant reply and everything after it, then
// resends the user message that prompted it.
func (s *Store) Regenerate(ctx context.Context, index int) {
	s.mu.Lock()
	if index <= 0 || index >= len(s.messages) ||
		s.messages[index].Role != RoleAssistant || s.messages[index-1].Role != RoleUser {
		s.mu.Unlock()
		return
	}
	prompt := s.messages[index-1].Content
	s.messages = s.messages[:index-1]
	s.mu.Unlock()

	s.SendMessage(ctx, prompt)
}
