package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

// SessionValidator confirms a signed-in session is still accepted by the
// identity provider.
type SessionValidator interface {
	Validate(ctx context.Context, sess *session.Session) (identity.User, error)
	Logout(sess *session.Session)
}

// SessionSaver persists a session and reissues its cookie.
type SessionSaver interface {
	Save(w http.ResponseWriter, r *http.Request, s *session.Session) error
}

// RequireAuth redirects to the login page unless the session is signed in
// and its access token is still valid.
func RequireAuth(auth SessionValidator, sessions SessionSaver, views *response.Views) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil || !sess.Authenticated() {
				response.Redirect(w, r, "/")
				return
			}

			_, err := auth.Validate(r.Context(), sess)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, model.ErrUnauthorized):
				zerolog.Ctx(r.Context()).Info().Str("username", sess.Username).Msg("access token rejected, signing out")
				auth.Logout(sess)
				if err := sessions.Save(w, r, sess); err != nil {
					zerolog.Ctx(r.Context()).Error().Err(err).Msg("save session")
				}
				response.Redirect(w, r, "/")
			default:
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("validate session")
				views.Error(w, r, http.StatusServiceUnavailable, response.ErrorMessage(http.StatusServiceUnavailable))
			}
		})
	}
}

// RequireAdmin renders the forbidden page unless the session belongs to a
// member of the admin group.
func RequireAdmin(views *response.Views) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil || !sess.Admin {
				views.Error(w, r, http.StatusForbidden, response.ErrorMessage(http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
