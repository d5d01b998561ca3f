package backend

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials holds the bearer token used for backend requests. It is
// passed explicitly to the client; updates are pushed with Set and observed
// with Subscribe.
type Credentials struct {
	mu     sync.RWMutex
	token  string
	nextID int
	subs   map[int]func(string)
}

// NewCredentials returns credentials seeded with token (may be empty).
func NewCredentials(token string) *Credentials {
	return &Credentials{
		token: token,
		subs:  make(map[int]func(string)),
	}
}

// Token returns the current token.
func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Set replaces the token and notifies subscribers. Empty tokens are
// ignored, matching the login listener which only ever adds one.
func (c *Credentials) Set(token string) {
	if token == "" {
		return
	}

	c.mu.Lock()
	if token == c.token {
		c.mu.Unlock()
		return
	}
	c.token = token
	subs := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(token)
	}
}

// Subscribe registers fn to be called after each token change. The
// returned function removes the subscription.
func (c *Credentials) Subscribe(fn func(string)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Expiry reports the exp claim of a JWT token. The signature is not
// verified; the backend does that. ok is false for opaque tokens or tokens
// without an exp claim.
func (c *Credentials) Expiry() (exp time.Time, ok bool) {
	token := c.Token()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Expired reports whether the token carries an exp claim in the past.
func (c *Credentials) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	return ok && now.After(exp)
}
