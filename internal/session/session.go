// Package session holds the bearer token shared by every API client of the
// process. One Context is created at startup and handed to each client, so a
// token written by login is what the next request of any client attaches.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of token claims the client reads. The signature is not
// checked; the backend does that.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SubjectID returns the user id, falling back to the registered "sub" claim.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

type Context struct {
	mu        sync.RWMutex
	token     string
	version   uint64
	nextSubID int
	subs      map[int]func(token string)
}

func New() *Context {
	return &Context{subs: make(map[int]func(string))}
}

// Token returns the current bearer token and whether one is set.
func (c *Context) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}

// SetToken stores token; an empty token clears the session. Subscribers run
// after the new value is visible to readers, in the writer's goroutine.
// Cached per-session queries are keyed by CacheID, so results fetched under
// the previous token are not served after a change.
func (c *Context) SetToken(token string) {
	c.mu.Lock()
	if c.token == token {
		c.mu.Unlock()
		return
	}
	c.token = token
	c.version++
	subs := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}

func (c *Context) Clear() { c.SetToken("") }

// Version increments on every change of the token.
func (c *Context) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// OnTokenChange registers fn and returns a function removing it.
func (c *Context) OnTokenChange(fn func(token string)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Claims decodes the current token as a JWT without verifying it. Opaque
// tokens report false.
func (c *Context) Claims() (*Claims, bool) {
	token, ok := c.Token()
	if !ok {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// UserID returns the user id carried by the token, if any.
func (c *Context) UserID() (string, bool) {
	claims, ok := c.Claims()
	if !ok {
		return "", false
	}
	id := claims.SubjectID()
	return id, id != ""
}

// Expired reports whether the token carries an expiry that is in the past.
// Tokens without expiry, or opaque tokens, never report expired.
func (c *Context) Expired(now time.Time) bool {
	claims, ok := c.Claims()
	if !ok || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// AnonymousCacheID is the CacheID of a session without token.
const AnonymousCacheID = "anonymous"

// CacheID identifies the current token in cache keys without exposing it.
// Sessions holding the same token share the same id.
func (c *Context) CacheID() string {
	token, ok := c.Token()
	if !ok {
		return AnonymousCacheID
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}
