package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"mystic-chat/internal/auth"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testClient(t *testing.T, handler http.Handler, provider auth.TokenProvider) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := auth.NewTokenCache(provider, time.Minute, quietLogger())
	return NewClient(srv.URL, 5*time.Second, tokens, quietLogger()), srv
}

func TestRequestAttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}), auth.StaticProvider("aaa.bbb.ccc"))

	if err := client.Request(context.Background(), http.MethodGet, "/status", nil, nil, nil); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotAuth != "Bearer aaa.bbb.ccc" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestPerCallHeadersTakePrecedence(t *testing.T) {
	var gotType string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}), nil)

	headers := map[string]string{"Content-Type": "text/plain"}
	if err := client.Request(context.Background(), http.MethodGet, "/status", nil, headers, nil); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotType != "text/plain" {
		t.Fatalf("Content-Type = %q, want per-call override", gotType)
	}
}

type countingProvider struct {
	calls int32
}

func (p *countingProvider) Token(ctx context.Context) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	return "aaa.bbb.ccc", nil
}

func TestUnauthorizedInvalidatesTokenCache(t *testing.T) {
	provider := &countingProvider{}
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"token expired"}`, http.StatusUnauthorized)
	}), provider)

	err := client.Request(context.Background(), http.MethodGet, "/sessions", nil, nil, nil)
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}

	// Cache was invalidated, so the next request derives fresh headers.
	_ = client.Request(context.Background(), http.MethodGet, "/sessions", nil, nil, nil)
	if n := atomic.LoadInt32(&provider.calls); n != 2 {
		t.Fatalf("provider called %d times, want 2 after a 401", n)
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail field", http.StatusNotFound, `{"detail":"Session not found"}`, "Session not found"},
		{"message field", http.StatusBadRequest, `{"message":"bad input"}`, "bad input"},
		{"error field", http.StatusInternalServerError, `{"error":"boom"}`, "boom"},
		{"plain text body", http.StatusBadGateway, `upstream unavailable`, "Bad Gateway"},
		{"empty json", http.StatusConflict, `{}`, "Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}), nil)

			err := client.Request(context.Background(), http.MethodGet, "/x", nil, nil, nil)
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.want {
				t.Fatalf("got %d %q, want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.want)
			}
		})
	}
}

func TestNonJSONSuccessFallsBackToText(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}), nil)

	var raw string
	if err := client.Request(context.Background(), http.MethodGet, "/x", nil, nil, &raw); err != nil {
		t.Fatalf("non-JSON success should not error: %v", err)
	}
	if raw != "plain text response" {
		t.Fatalf("raw text = %q", raw)
	}
}

func TestSessionsRequestIsCacheBusted(t *testing.T) {
	var gotQuery, gotCacheControl, gotPragma string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotCacheControl = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		w.Write([]byte(`[]`))
	}), nil)

	if _, err := client.Sessions(context.Background()); err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if !strings.Contains(gotQuery, "_t=") {
		t.Fatalf("query %q missing cache buster", gotQuery)
	}
	if gotCacheControl != "no-cache" || gotPragma != "no-cache" {
		t.Fatalf("no-cache headers missing: %q / %q", gotCacheControl, gotPragma)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tokens := auth.NewTokenCache(nil, time.Minute, quietLogger())
	client := NewClient(url, time.Second, tokens, quietLogger())

	err := client.Request(context.Background(), http.MethodGet, "/status", nil, nil, nil)
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSendChatRoundTrip(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"response":"Hi","session_id":"s1","message_type":"emotional","timestamp":"2026-08-30T12:00:00Z"}`))
	}), nil)

	reply, err := client.SendChat(context.Background(), "Hello", "")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if reply.Response != "Hi" || reply.SessionID != "s1" || reply.MessageType != "emotional" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}
