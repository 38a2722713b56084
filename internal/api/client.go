package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mystic-chat/internal/auth"
)

// Client is the single request pipeline for the guidance backend: it
// attaches cached auth headers, executes the call and classifies failures
// into *APIError / *NetworkError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *auth.TokenCache
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens *auth.TokenCache, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		tokens:     tokens,
		logger:     logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Request executes one API call. Headers are layered default < auth <
// per-call. A transport failure surfaces as *NetworkError; a non-2xx
// response as *APIError (a 401 additionally invalidates the token cache).
// A 2xx body is decoded into out when non-nil; a body that is not valid
// JSON is not an error when out is a *string, which receives the raw text.
func (c *Client) Request(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.tokens.Headers(ctx) {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
		c.logger.Warnf("%s %s: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if s, ok := out.(*string); ok {
			*s = string(data)
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the most useful message from an error response
// body, trying the JSON fields the backend uses before falling back to
// the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Message != "":
			return payload.Message
		case payload.Err != "":
			return payload.Err
		}
	}
	return http.StatusText(status)
}

// getFresh issues a cache-busted GET with no-cache headers, for reads
// whose results must never come from an intermediate cache.
func (c *Client) getFresh(ctx context.Context, path string, out any) error {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	busted := fmt.Sprintf("%s%s_t=%d", path, sep, time.Now().UnixNano())
	return c.Request(ctx, http.MethodGet, busted, nil, noCacheHeaders(), out)
}

func noCacheHeaders() map[string]string {
	return map[string]string{
		"Cache-Control": "no-cache",
		"Pragma":        "no-cache",
	}
}

func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.Request(ctx, http.MethodGet, "/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.getFresh(ctx, "/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) SessionHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	var history HistoryResponse
	if err := c.getFresh(ctx, "/sessions/"+sessionID+"/history", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (c *Client) UpdateSessionTitle(ctx context.Context, sessionID, title string) error {
	return c.Request(ctx, http.MethodPut, "/sessions/"+sessionID+"/title", TitleUpdate{Title: title}, nil, nil)
}

func (c *Client) ArchiveSession(ctx context.Context, sessionID string) error {
	return c.Request(ctx, http.MethodPost, "/sessions/"+sessionID+"/archive", nil, nil, nil)
}

func (c *Client) UnarchiveSession(ctx context.Context, sessionID string) error {
	return c.Request(ctx, http.MethodPost, "/sessions/"+sessionID+"/unarchive", nil, nil, nil)
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.Request(ctx, http.MethodDelete, "/sessions/"+sessionID, nil, nil, nil)
}

func (c *Client) ArchivedSessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.getFresh(ctx, "/sessions/archived", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SendChat posts a user message. An empty sessionID asks the server to
// start a new session; the response carries the id to adopt.
func (c *Client) SendChat(ctx context.Context, message, sessionID string) (*ChatResponse, error) {
	var reply ChatResponse
	req := ChatRequest{Message: message, SessionID: sessionID}
	if err := c.Request(ctx, http.MethodPost, "/chat", req, nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) ToggleDomain(ctx context.Context, name string, enable bool) (*DomainToggleResult, error) {
	var result DomainToggleResult
	path := fmt.Sprintf("/domains/%s/toggle?enable=%t", name, enable)
	if err := c.Request(ctx, http.MethodPost, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) LunarInfo(ctx context.Context) (*LunarInfo, error) {
	var info LunarInfo
	if err := c.Request(ctx, http.MethodGet, "/lunar", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	var status AuthStatus
	if err := c.Request(ctx, http.MethodGet, "/auth/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) RunCommand(ctx context.Context, command, sessionID string) (*CommandResponse, error) {
	var result CommandResponse
	req := CommandRequest{Command: command, SessionID: sessionID}
	if err := c.Request(ctx, http.MethodPost, "/command", req, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
