// Package session keeps per-browser login state server side. The browser
// only holds a signed token naming the record.
package session

import (
	"context"
	"time"

	"github.com/cfi/selfservice/internal/model"
)

// Session is the server-side state of one browser.
type Session struct {
	ID    string           `json:"id"`
	State model.LoginState `json:"state"`

	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`

	// ChallengeSession is the identity provider's opaque handle for the
	// challenge in progress.
	ChallengeSession string `json:"challenge_session,omitempty"`
	SecretCode       string `json:"secret_code,omitempty"`
	QRCode           string `json:"qr_code,omitempty"`

	AccessToken string `json:"access_token,omitempty"`
	Admin       bool   `json:"admin,omitempty"`

	Flashes   []string  `json:"flashes,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`

	renew bool
}

func (s *Session) Authenticated() bool {
	return s.State == model.StateAuthenticated && s.AccessToken != ""
}

func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// Renew asks the Manager to move the session to a new ID on the next save.
// Called whenever the session gains privileges.
func (s *Session) Renew() {
	s.renew = true
}

// Renewing reports whether the next save will issue a new ID.
func (s *Session) Renewing() bool {
	return s.renew
}

// PopFlashes returns and clears the pending flash messages.
func (s *Session) PopFlashes() []string {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// Reset drops every login attribute and returns to Anonymous. Flashes and
// a pending renewal are kept so a message can survive a logout or
// restarted login.
func (s *Session) Reset() {
	*s = Session{
		ID:        s.ID,
		State:     model.StateAnonymous,
		Flashes:   s.Flashes,
		ExpiresAt: s.ExpiresAt,
		renew:     s.renew,
	}
}

func (s *Session) clone() *Session {
	c := *s
	if s.Flashes != nil {
		c.Flashes = append([]string(nil), s.Flashes...)
	}
	return &c
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying s.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithContext, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
