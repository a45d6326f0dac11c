package dispatch

import (
	"sync"
	"time"
)

// TokenMinter mints a bearer token for a given subject/actor tuple,
// matching internal/modules/auth/utils.JWTService.MintInternalToken.
type TokenMinter func(subject, clientUserID, actorType, actorID string) (token string, expiresAt time.Time, err error)

// TokenCache caches a bearer token per worker until exp-5m, per §4.4's
// token cache note. Generation and caching are thread-safe.
type TokenCache struct {
	mu     sync.Mutex
	mint   TokenMinter
	tokens map[string]cachedToken
	skew   time.Duration
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// NewTokenCache creates a cache that refreshes tokens 5 minutes before expiry.
func NewTokenCache(mint TokenMinter) *TokenCache {
	return &TokenCache{
		mint:   mint,
		tokens: make(map[string]cachedToken),
		skew:   5 * time.Minute,
	}
}

// Get returns a cached token for workerID if still valid, minting a
// fresh one otherwise.
func (c *TokenCache) Get(workerID, clientUserID, actorType, actorID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.tokens[workerID]; ok && time.Now().Before(cached.expiresAt.Add(-c.skew)) {
		return cached.token, nil
	}

	token, expiresAt, err := c.mint(workerID, clientUserID, actorType, actorID)
	if err != nil {
		return "", err
	}
	c.tokens[workerID] = cachedToken{token: token, expiresAt: expiresAt}
	return token, nil
}

// Invalidate drops workerID's cached token, forcing the next Get to
// mint a fresh one. Used when the remote crew service rejects a token
// as unauthorized, per §4.5's "reload its token and retry once" rule.
func (c *TokenCache) Invalidate(workerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, workerID)
}
