package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRetryStopsOnClientError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &APIError{Status: http.StatusBadRequest, Message: "bad input"}
	})
	if calls != 1 {
		t.Fatalf("fn called %d times, client errors must not be retried", calls)
	}
	if !IsAPIError(err) {
		t.Fatalf("expected the original API error, got %v", err)
	}
}

func TestRetryStopsOnAuthFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &APIError{Status: http.StatusUnauthorized, Message: "expired"}
	})
	if calls != 1 {
		t.Fatalf("fn called %d times, auth failures must not be retried", calls)
	}
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &NetworkError{Err: errors.New("connection refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("fn called %d times, want 3", calls)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return &APIError{Status: http.StatusInternalServerError, Message: "boom"}
	})
	if calls != 3 {
		t.Fatalf("fn called %d times, want maxRetries+1 = 3", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected last server error, got %v", err)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 5, 50*time.Millisecond, func() error {
		return &NetworkError{Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
