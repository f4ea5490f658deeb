package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

// User is the authenticated local viewer.
type User struct {
	ID       match.UserID `json:"id"`
	Username string       `json:"username"`
	Role     string       `json:"role"`
	Rating   int          `json:"rating"`
}

// Resetter is anything that must drop its state on logout.
type Resetter interface {
	Reset()
}

// ResetFunc adapts a plain function to Resetter.
type ResetFunc func()

func (f ResetFunc) Reset() { f() }

// Context holds the viewer identity and the single tracked match. All
// mutations of the tracked id are read-modify-write under one lock.
type Context struct {
	mu        sync.Mutex
	user      *User
	tracked   *match.ID
	resetters []Resetter
}

func New() *Context {
	return &Context{}
}

// Attach registers components reset unconditionally by Logout.
func (c *Context) Attach(r ...Resetter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetters = append(c.resetters, r...)
}

func (c *Context) Login(user User) {
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()

	log.Info().
		Int64("user_id", int64(user.ID)).
		Str("username", user.Username).
		Msg("session started")
}

// Logout clears identity and tracked match, then resets every attached
// component regardless of its current state.
func (c *Context) Logout() {
	c.mu.Lock()
	c.user = nil
	c.tracked = nil
	resetters := append([]Resetter(nil), c.resetters...)
	c.mu.Unlock()

	for _, r := range resetters {
		r.Reset()
	}
	log.Info().Msg("session ended")
}

// User returns a copy of the current user, or false when logged out.
func (c *Context) User() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

func (c *Context) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user != nil
}

func (c *Context) TrackedMatch() (match.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracked == nil {
		return 0, false
	}
	return *c.tracked, true
}

// IsTracked reports whether id is the tracked match.
func (c *Context) IsTracked(id match.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracked != nil && *c.tracked == id
}

// SetTrackedMatch replaces the tracked match; nil clears it.
func (c *Context) SetTrackedMatch(id *match.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == nil {
		c.tracked = nil
		return
	}
	v := *id
	c.tracked = &v
}

// ClearTrackedIf clears the tracked match only if it is still id.
func (c *Context) ClearTrackedIf(id match.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracked == nil || *c.tracked != id {
		return false
	}
	c.tracked = nil
	return true
}

// SwapTracked replaces old with next only if old is still tracked. A nil
// old means "nothing tracked".
func (c *Context) SwapTracked(old, next *match.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case old == nil && c.tracked != nil:
		return false
	case old != nil && (c.tracked == nil || *c.tracked != *old):
		return false
	}
	if next == nil {
		c.tracked = nil
		return true
	}
	v := *next
	c.tracked = &v
	return true
}

// TrackIfIdle starts tracking id only when nothing is tracked yet.
func (c *Context) TrackIfIdle(id match.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracked != nil {
		return false
	}
	c.tracked = &id
	return true
}

// Announcement is what the push channel needs to subscribe this client.
type Announcement struct {
	UserID  match.UserID
	MatchID *match.ID
}

// Announcement returns the auth payload, or false when logged out.
func (c *Context) Announcement() (Announcement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return Announcement{}, false
	}
	a := Announcement{UserID: c.user.ID}
	if c.tracked != nil {
		id := *c.tracked
		a.MatchID = &id
	}
	return a, true
}
