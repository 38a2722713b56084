package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"mystic-chat/internal/api"
	"mystic-chat/internal/auth"
)

// fakeBackend is a minimal in-memory stand-in for the remote session
// store, recording the calls the Store makes against it.
type fakeBackend struct {
	mu         sync.Mutex
	sessions   []api.SessionInfo
	histories  map[string][]api.ChatMessage
	titles     map[string]string
	titleCalls []string
	chatCalls  int
	listCalls  int
	failChat   bool
	failList   bool
	// holdHistory, when set for a session id, blocks that history fetch
	// until the channel is closed.
	holdHistory map[string]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		histories:   map[string][]api.ChatMessage{},
		titles:      map[string]string{},
		holdHistory: map[string]chan struct{}{},
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listCalls++
		if b.failList {
			http.Error(w, `{"detail":"list failed"}`, http.StatusInternalServerError)
			return
		}
		sessions := make([]api.SessionInfo, len(b.sessions))
		copy(sessions, b.sessions)
		for i := range sessions {
			if title, ok := b.titles[sessions[i].SessionID]; ok {
				sessions[i].Title = title
			}
		}
		json.NewEncoder(w).Encode(sessions)
	})

	mux.HandleFunc("GET /sessions/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.mu.Lock()
		hold := b.holdHistory[id]
		messages, ok := b.histories[id]
		b.mu.Unlock()
		if hold != nil {
			<-hold
		}
		if !ok {
			http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(api.HistoryResponse{SessionID: id, Messages: messages})
	})

	mux.HandleFunc("PUT /sessions/{id}/title", func(w http.ResponseWriter, r *http.Request) {
		var update api.TitleUpdate
		json.NewDecoder(r.Body).Decode(&update)
		b.mu.Lock()
		b.titles[r.PathValue("id")] = update.Title
		b.titleCalls = append(b.titleCalls, update.Title)
		b.mu.Unlock()
		w.Write([]byte(`{}`))
	})

	mux.HandleFunc("POST /sessions/{id}/archive", func(w http.ResponseWriter, r *http.Request) {
		b.removeSession(r.PathValue("id"))
		w.Write([]byte(`{}`))
	})

	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.removeSession(r.PathValue("id"))
		w.Write([]byte(`{}`))
	})

	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.chatCalls++
		if b.failChat {
			http.Error(w, `{"detail":"the spirits are silent"}`, http.StatusInternalServerError)
			return
		}
		id := req.SessionID
		if id == "" {
			id = "s1"
		}
		b.histories[id] = append(b.histories[id],
			api.ChatMessage{Role: "user", Content: req.Message},
			api.ChatMessage{Role: "assistant", Content: "Hi"},
		)
		b.syncSessionList(id)
		json.NewEncoder(w).Encode(api.ChatResponse{
			Response:  "Hi",
			SessionID: id,
			Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		})
	})

	return mux
}

func (b *fakeBackend) syncSessionList(id string) {
	for i := range b.sessions {
		if b.sessions[i].SessionID == id {
			b.sessions[i].MessageCount = len(b.histories[id])
			b.sessions[i].LastActivity = time.Now()
			return
		}
	}
	b.sessions = append(b.sessions, api.SessionInfo{
		SessionID:    id,
		MessageCount: len(b.histories[id]),
		LastActivity: time.Now(),
	})
}

func (b *fakeBackend) removeSession(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.histories, id)
	kept := b.sessions[:0]
	for _, session := range b.sessions {
		if session.SessionID != id {
			kept = append(kept, session)
		}
	}
	b.sessions = kept
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestStore(t *testing.T, backend *fakeBackend) *Store {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	tokens := auth.NewTokenCache(nil, time.Minute, quietLogger())
	client := api.NewClient(srv.URL, 5*time.Second, tokens, quietLogger())
	return NewStore(client, quietLogger())
}

func TestSendMessageEmptyIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	store.SendMessage(context.Background(), "")
	store.SendMessage(context.Background(), "   ")

	if got := store.Messages(); len(got) != 0 {
		t.Fatalf("empty sends changed state: %v", got)
	}
	if backend.chatCalls != 0 {
		t.Fatalf("empty sends hit the network %d times", backend.chatCalls)
	}
}

func TestSendMessageFirstExchange(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	store.NewSession()
	if store.CurrentID() != "" {
		t.Fatalf("new session should have no id")
	}

	store.SendMessage(context.Background(), "Hello")

	messages := store.Messages()
	if len(messages) != 2 {
		t.Fatalf("transcript has %d entries, want user + assistant", len(messages))
	}
	if messages[0].Role != RoleUser || messages[0].Content != "Hello" {
		t.Fatalf("optimistic user entry wrong: %+v", messages[0])
	}
	if messages[1].Role != RoleAssistant || messages[1].Content != "Hi" {
		t.Fatalf("assistant entry wrong: %+v", messages[1])
	}
	if got := store.CurrentID(); got != "s1" {
		t.Fatalf("current id = %q, want server-assigned s1", got)
	}
	if len(backend.titleCalls) != 1 || backend.titleCalls[0] != "Hello" {
		t.Fatalf("title calls = %v, want one update with derived title", backend.titleCalls)
	}
	if len(store.Sessions()) != 1 {
		t.Fatalf("session list was not refreshed after send")
	}
	if store.Loading() {
		t.Fatalf("loading flag stuck after send")
	}
}

func TestTitleUpdatedOnlyForFirstMessage(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	store.SendMessage(context.Background(), "first question")
	store.SendMessage(context.Background(), "second question")

	if len(backend.titleCalls) != 1 {
		t.Fatalf("title updated %d times, want only on first message", len(backend.titleCalls))
	}
}

func TestSendMessageFailureAppendsErrorEntry(t *testing.T) {
	backend := newFakeBackend()
	backend.failChat = true
	store := newTestStore(t, backend)

	store.SendMessage(context.Background(), "Hello")

	messages := store.Messages()
	if len(messages) != 2 {
		t.Fatalf("transcript has %d entries, want user + error entry", len(messages))
	}
	last := messages[1]
	if !last.IsError || last.Role != RoleAssistant {
		t.Fatalf("expected synthetic error entry, got %+v", last)
	}
	if store.Loading() {
		t.Fatalf("loading flag stuck after failed send")
	}
	if store.CurrentID() != "" {
		t.Fatalf("failed send must not assign a session id")
	}
}

func TestSendMessageNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()

	tokens := auth.NewTokenCache(nil, time.Minute, quietLogger())
	client := api.NewClient(url, time.Second, tokens, quietLogger())
	store := NewStore(client, quietLogger())

	store.SendMessage(context.Background(), "Hello")

	messages := store.Messages()
	if len(messages) != 2 || !messages[1].IsError {
		t.Fatalf("expected exactly one error entry after the optimistic one, got %v", messages)
	}
	if store.Loading() {
		t.Fatalf("loading flag stuck after network failure")
	}
}

func TestLoadSessionReplacesTranscript(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["s1"] = []api.ChatMessage{
		{Role: "user", Content: "about the moon"},
		{Role: "assistant", Content: "waxing gibbous"},
	}
	backend.histories["s2"] = []api.ChatMessage{
		{Role: "user", Content: "life path number"},
	}
	store := newTestStore(t, backend)

	if err := store.LoadSession(context.Background(), "s1"); err != nil {
		t.Fatalf("LoadSession s1: %v", err)
	}
	if got := store.Messages(); len(got) != 2 || got[0].Content != "about the moon" {
		t.Fatalf("s1 transcript wrong: %v", got)
	}

	if err := store.LoadSession(context.Background(), "s2"); err != nil {
		t.Fatalf("LoadSession s2: %v", err)
	}
	got := store.Messages()
	if len(got) != 1 || got[0].Content != "life path number" {
		t.Fatalf("s2 transcript not fully replaced: %v", got)
	}
	if store.CurrentID() != "s2" {
		t.Fatalf("current id = %q, want s2", store.CurrentID())
	}
}

func TestLoadSessionEmptyHistoryStillSwitches(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["empty"] = nil
	store := newTestStore(t, backend)

	if err := store.LoadSession(context.Background(), "empty"); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if store.CurrentID() != "empty" {
		t.Fatalf("history-less session must still become current")
	}
	if len(store.Messages()) != 0 {
		t.Fatalf("expected empty transcript")
	}
}

func TestLoadSessionErrorLeavesTranscriptEmpty(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	if err := store.LoadSession(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
	if len(store.Messages()) != 0 {
		t.Fatalf("transcript not empty after failed load")
	}
	if store.CurrentID() != "" {
		t.Fatalf("failed load must not switch the current session")
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	hold := make(chan struct{})
	backend.histories["slow"] = []api.ChatMessage{{Role: "assistant", Content: "stale"}}
	backend.holdHistory["slow"] = hold
	backend.histories["fast"] = []api.ChatMessage{{Role: "assistant", Content: "fresh"}}
	store := newTestStore(t, backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.LoadSession(context.Background(), "slow")
	}()

	// Give the slow load time to clear the transcript and issue its fetch,
	// then supersede it.
	time.Sleep(50 * time.Millisecond)
	if err := store.LoadSession(context.Background(), "fast"); err != nil {
		t.Fatalf("LoadSession fast: %v", err)
	}
	close(hold)
	<-done

	got := store.Messages()
	if len(got) != 1 || got[0].Content != "fresh" {
		t.Fatalf("stale response overwrote newer session: %v", got)
	}
	if store.CurrentID() != "fast" {
		t.Fatalf("current id = %q, want fast", store.CurrentID())
	}
}

func TestAutoLoadFiresExactlyOnce(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["s1"] = nil
	store := newTestStore(t, backend)

	// A session can become current with an empty transcript while the
	// list already reports messages for it.
	if err := store.LoadSession(context.Background(), "s1"); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	backend.mu.Lock()
	backend.histories["s1"] = []api.ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "greetings"},
	}
	backend.syncSessionList("s1")
	backend.mu.Unlock()
	if err := store.RefreshSessions(context.Background()); err != nil {
		t.Fatalf("RefreshSessions: %v", err)
	}

	loaded, err := store.MaybeAutoLoad(context.Background())
	if err != nil || !loaded {
		t.Fatalf("expected auto-load to fire, got loaded=%v err=%v", loaded, err)
	}
	if len(store.Messages()) != 2 {
		t.Fatalf("auto-load did not populate transcript")
	}

	loaded, err = store.MaybeAutoLoad(context.Background())
	if err != nil || loaded {
		t.Fatalf("auto-load must be idempotent once populated, got loaded=%v", loaded)
	}
}

func TestDeleteCurrentSessionClearsState(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["s1"] = []api.ChatMessage{{Role: "user", Content: "hi"}}
	backend.mu.Lock()
	backend.syncSessionList("s1")
	backend.mu.Unlock()
	store := newTestStore(t, backend)

	if err := store.LoadSession(context.Background(), "s1"); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if err := store.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if store.CurrentID() != "" || len(store.Messages()) != 0 {
		t.Fatalf("deleting the current session must reset state")
	}
	if len(store.Sessions()) != 0 {
		t.Fatalf("session list not refreshed after delete")
	}
}

func TestArchiveOtherSessionKeepsTranscript(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["s1"] = []api.ChatMessage{{Role: "user", Content: "hi"}}
	backend.histories["s2"] = []api.ChatMessage{{Role: "user", Content: "other"}}
	backend.mu.Lock()
	backend.syncSessionList("s1")
	backend.syncSessionList("s2")
	backend.mu.Unlock()
	store := newTestStore(t, backend)

	if err := store.LoadSession(context.Background(), "s1"); err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if err := store.ArchiveSession(context.Background(), "s2"); err != nil {
		t.Fatalf("ArchiveSession: %v", err)
	}
	if store.CurrentID() != "s1" || len(store.Messages()) != 1 {
		t.Fatalf("archiving another session must not touch the current one")
	}
}

func TestRefreshSessionsKeepsStaleListOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.mu.Lock()
	backend.histories["s1"] = []api.ChatMessage{{Role: "user", Content: "hi"}}
	backend.syncSessionList("s1")
	backend.mu.Unlock()
	store := newTestStore(t, backend)

	if err := store.RefreshSessions(context.Background()); err != nil {
		t.Fatalf("RefreshSessions: %v", err)
	}

	backend.mu.Lock()
	backend.failList = true
	backend.mu.Unlock()

	if err := store.RefreshSessions(context.Background()); err == nil {
		t.Fatalf("expected failure")
	}
	if got := store.Sessions(); len(got) != 1 {
		t.Fatalf("stale list must be kept on failure, got %v", got)
	}
}

func TestSessionsSortedByLastActivity(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []api.SessionInfo{
		{SessionID: "old", LastActivity: time.Now().Add(-time.Hour)},
		{SessionID: "new", LastActivity: time.Now()},
		{SessionID: "mid", LastActivity: time.Now().Add(-30 * time.Minute)},
	}
	store := newTestStore(t, backend)

	if err := store.RefreshSessions(context.Background()); err != nil {
		t.Fatalf("RefreshSessions: %v", err)
	}
	got := store.Sessions()
	if got[0].SessionID != "new" || got[1].SessionID != "mid" || got[2].SessionID != "old" {
		t.Fatalf("sessions not sorted newest-first: %v", got)
	}
}

func TestRegenerateResendsPrompt(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	store.SendMessage(context.Background(), "Hello")
	if backend.chatCalls != 1 {
		t.Fatalf("setup: %d chat calls", backend.chatCalls)
	}

	store.Regenerate(context.Background(), 1)

	if backend.chatCalls != 2 {
		t.Fatalf("regenerate did not resend, %d chat calls", backend.chatCalls)
	}
	messages := store.Messages()
	if len(messages) != 2 || messages[0].Content != "Hello" || messages[1].Role != RoleAssistant {
		t.Fatalf("transcript after regenerate: %v", messages)
	}
}

func TestNewSessionResetsDismissal(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(t, backend)

	store.DismissSuggestions()
	if !store.SuggestionsDismissed() {
		t.Fatalf("dismissal not recorded")
	}
	store.NewSession()
	if store.SuggestionsDismissed() {
		t.Fatalf("new session must reset suggestion dismissal")
	}
}
