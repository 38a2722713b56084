package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a resolved set of auth headers is reused before
// the token provider is consulted again.
const DefaultTTL = 30 * time.Second

// TokenProvider supplies the current access token. An empty token with a
// nil error means "no credential available" (anonymous mode).
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenCache caches the Authorization header derived from the token
// provider. Lookups never fail: when no credential can be obtained the
// cache hands back an empty header map and the client proceeds
// unauthenticated.
type TokenCache struct {
	provider TokenProvider
	ttl      time.Duration
	logger   *logrus.Logger

	mu        sync.Mutex
	headers   map[string]string
	fetchedAt time.Time

	group singleflight.Group
}

func NewTokenCache(provider TokenProvider, ttl time.Duration, logger *logrus.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenCache{provider: provider, ttl: ttl, logger: logger}
}

// Headers returns the auth headers to attach to a request. A cached entry
// younger than the TTL is returned as-is; otherwise one refresh runs and
// concurrent callers wait for its result instead of issuing their own.
func (c *TokenCache) Headers(ctx context.Context) map[string]string {
	c.mu.Lock()
	if c.headers != nil && time.Since(c.fetchedAt) < c.ttl {
		headers := c.headers
		c.mu.Unlock()
		return headers
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do("headers", func() (any, error) {
		return c.refresh(ctx), nil
	})
	return v.(map[string]string)
}

func (c *TokenCache) refresh(ctx context.Context) map[string]string {
	headers := map[string]string{}

	if c.provider != nil {
		token, err := c.provider.Token(ctx)
		switch {
		case err != nil:
			// Non-fatal: callers function unauthenticated.
			c.logger.Warnf("could not get auth headers: %v", err)
		case token != "":
			if len(strings.Split(token, ".")) != 3 {
				c.logger.Warnf("access token is not a three-part signed token, sending it as-is")
			}
			headers["Authorization"] = "Bearer " + token
		}
	}

	c.mu.Lock()
	c.headers = headers
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return headers
}

// Invalidate drops the cached entry. The API client calls this whenever a
// request using these headers comes back 401, so the next lookup derives
// fresh headers instead of reusing a rejected one.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.headers = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
