// Package tokencache implements the process-wide OAuth bearer-token slot
// (spec §4.1, C1): a single in-memory token slot, since spec §4.1 calls for
// no background refresh (refresh is driven on-demand by the HTTP client on
// 401) — no health-check loop here, only get/set/clear plus
// singleflight-coalesced refresh.
package tokencache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Token is the bearer credential returned by the token issuer (spec §6).
type Token struct {
	AccessToken string
	IDToken     string
	ExpiresAt   time.Time
}

// Expired reports whether the token is no longer usable.
func (t Token) Expired(now time.Time) bool {
	return t.AccessToken == "" || !t.ExpiresAt.After(now)
}

// Issuer calls the external token issuer (spec §6: returns access_token,
// id_token, token_type=Bearer, expires_in).
type Issuer interface {
	Issue(ctx context.Context) (Token, error)
}

// Cache is the process-wide token slot. Concurrent readers are permitted;
// mutation is exclusive. A single refresh in flight is shared by every
// caller that asks for one during that window (spec §5: "a 401-driven
// refresh by one worker must not cause a thundering herd").
type Cache struct {
	mu     sync.RWMutex
	token  Token
	issuer Issuer
	logger *zap.Logger

	group singleflight.Group
}

// New creates a Cache backed by the given token issuer.
func New(issuer Issuer, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{issuer: issuer, logger: logger.With(zap.String("component", "token_cache"))}
}

// Get returns the current token, or the zero Token if none is cached.
func (c *Cache) Get() (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.AccessToken == "" {
		return Token{}, false
	}
	return c.token, true
}

// Set stores a freshly obtained token.
func (c *Cache) Set(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = t
}

// Clear empties the slot, forcing the next GetOrRefresh to call the issuer.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = Token{}
}

// GetOrRefresh returns a usable token, calling the issuer if the cache is
// empty or the cached token has expired. Concurrent calls that land while a
// refresh is already in flight share its result instead of each calling the
// issuer (singleflight keyed on a constant — there is exactly one token
// slot, so exactly one in-flight refresh makes sense process-wide).
func (c *Cache) GetOrRefresh(ctx context.Context) (Token, error) {
	if t, ok := c.Get(); ok && !t.Expired(time.Now()) {
		return t, nil
	}
	return c.Refresh(ctx)
}

// Refresh unconditionally obtains a fresh token, coalescing concurrent
// callers onto a single in-flight issuer call.
func (c *Cache) Refresh(ctx context.Context) (Token, error) {
	v, err, shared := c.group.Do("refresh", func() (any, error) {
		t, err := c.issuer.Issue(ctx)
		if err != nil {
			return Token{}, err
		}
		c.Set(t)
		return t, nil
	})
	if err != nil {
		c.logger.Warn("token refresh failed", zap.Error(err))
		return Token{}, err
	}
	if shared {
		c.logger.Debug("token refresh coalesced onto in-flight call")
	}
	return v.(Token), nil
}
