// Package session holds the authenticated session for a single gateway client.
// The cache has exactly one slot: a new token replaces the old one, and the
// token is considered stale once it is older than the configured TTL.
// Concurrent callers that find the slot empty or stale share a single login.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long the gateway keeps a form-login session alive.
const DefaultTTL = 10 * time.Hour

// DefaultLoginTimeout bounds a single shared login exchange. A login that
// hangs past it fails, and the next caller starts a fresh one.
const DefaultLoginTimeout = 30 * time.Second

// refreshKey is the only singleflight key; there is one session per Cache.
const refreshKey = "login"

// Token is an acquired session credential. Tokens are never mutated after
// creation; a refresh produces a new Token.
type Token struct {
	Cookies    []*http.Cookie
	AcquiredAt time.Time
}

// LoginFunc performs the login exchange and returns the session cookies.
type LoginFunc func(ctx context.Context) ([]*http.Cookie, error)

// Cache is the single-slot session store. Safe for concurrent use.
type Cache struct {
	ttl          time.Duration
	loginTimeout time.Duration
	login        LoginFunc
	logger *slog.Logger

	mu    sync.Mutex
	token *Token

	group singleflight.Group

	nowFunc func() time.Time
}

// NewCache creates an empty Cache. A non-positive ttl selects DefaultTTL,
// a non-positive loginTimeout selects DefaultLoginTimeout and a nil now
// selects time.Now.
func NewCache(ttl, loginTimeout time.Duration, login LoginFunc, now func() time.Time, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if loginTimeout <= 0 {
		loginTimeout = DefaultLoginTimeout
	}

	if now == nil {
		now = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		ttl:          ttl,
		loginTimeout: loginTimeout,
		login:        login,
		logger:       logger,
		nowFunc:      now,
	}
}

// Get returns the cached token, or nil if no login has succeeded yet.
// The returned token may be stale; use Valid to check.
func (c *Cache) Get() *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.token
}

// Set replaces the cached token.
func (c *Cache) Set(tok *Token) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// Valid reports whether tok is present and no older than the TTL at now.
func (c *Cache) Valid(tok *Token, now time.Time) bool {
	return tok != nil && now.Sub(tok.AcquiredAt) <= c.ttl
}

// Token returns a valid session token, logging in first if the slot is empty
// or stale. Concurrent callers that miss at the same time wait on one shared
// login. The login itself is detached from ctx so that one caller giving up
// does not fail the others; ctx only bounds this caller's wait. The login is
// bounded by the cache's login timeout instead.
func (c *Cache) Token(ctx context.Context) (*Token, error) {
	if tok := c.Get(); c.Valid(tok, c.nowFunc()) {
		c.logger.Debug("using cached session",
			slog.Time("acquired_at", tok.AcquiredAt),
		)

		return tok, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		loginCtx, cancel := context.WithTimeout(detached, c.loginTimeout)
		defer cancel()

		return c.refresh(loginCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		tok, ok := res.Val.(*Token)
		if !ok {
			return nil, fmt.Errorf("session: unexpected refresh result %T", res.Val)
		}

		if res.Shared {
			c.logger.Debug("joined in-flight login")
		}

		return tok, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh runs inside the singleflight group. A caller that observed a stale
// slot may arrive after another flight already stored a fresh token, so the
// slot is checked again before logging in.
func (c *Cache) refresh(ctx context.Context) (*Token, error) {
	if tok := c.Get(); c.Valid(tok, c.nowFunc()) {
		return tok, nil
	}

	c.logger.Info("session missing or expired, logging in")

	cookies, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	tok := &Token{
		Cookies:    cookies,
		AcquiredAt: c.nowFunc(),
	}

	c.Set(tok)

	c.logger.Debug("session stored",
		slog.Time("acquired_at", tok.AcquiredAt),
		slog.Int("cookie_count", len(cookies)),
	)

	return tok, nil
}
