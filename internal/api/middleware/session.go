package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/session"
)

// SessionLoader is the part of session.Manager the middleware needs.
type SessionLoader interface {
	Load(r *http.Request) (*session.Session, error)
}

// Session loads the browser's session into the request context. Handlers
// save it before writing their response.
func Session(sessions SessionLoader, views *response.Views) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r)
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("load session")
				views.Error(w, r, http.StatusServiceUnavailable, response.ErrorMessage(http.StatusServiceUnavailable))
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithContext(r.Context(), sess)))
		})
	}
}
