package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/platform"
)

const CookieName = "portal_session"

// Manager binds browser cookies to stored sessions. The cookie value is an
// HS256 JWT whose "sid" claim is the session ID.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(store Store, secret []byte, ttl time.Duration, secure bool) *Manager {
	return &Manager{store: store, secret: secret, ttl: ttl, secure: secure, now: time.Now}
}

// Load returns the request's session, or a fresh Anonymous one when the
// cookie is absent, tampered with, or names an expired record. Only store
// failures are returned as errors.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return m.New(), nil
	}
	id, err := m.parse(c.Value)
	if err != nil {
		return m.New(), nil
	}

	s, err := m.store.Load(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		return m.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New returns an unsaved Anonymous session.
func (m *Manager) New() *Session {
	return &Session{
		ID:        platform.NewSessionID(),
		State:     model.StateAnonymous,
		ExpiresAt: m.now().Add(m.ttl),
	}
}

// Save persists s, extends its lifetime and (re)issues the cookie. A
// session marked with Renew is rotated to a new ID first.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if s.renew {
		if err := m.Rotate(r.Context(), s); err != nil {
			return err
		}
	}
	s.ExpiresAt = m.now().Add(m.ttl)
	if err := m.store.Save(r.Context(), s); err != nil {
		return err
	}

	token, err := m.sign(s.ID, s.ExpiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Rotate moves s to a fresh ID and deletes the record stored under the old
// one.
func (m *Manager) Rotate(ctx context.Context, s *Session) error {
	old := s.ID
	s.ID = platform.NewSessionID()
	s.renew = false
	if old == "" {
		return nil
	}
	if err := m.store.Delete(ctx, old); err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	return nil
}

// Destroy deletes the stored record and expires the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request, s *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.store.Delete(r.Context(), s.ID)
}

// Ping checks the backing store, for readiness probes.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) sign(id string, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": id,
		"iat": m.now().Unix(),
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", fmt.Errorf("missing sid claim")
	}
	return sid, nil
}
