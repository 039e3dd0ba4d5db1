package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

// newRequest creates a request with an optional url-encoded form body.
func newRequest(method, target string, form url.Values) *http.Request {
	if form == nil {
		return httptest.NewRequest(method, target, nil)
	}
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withSession attaches sess the way the session middleware does.
func withSession(r *http.Request, sess *session.Session) *http.Request {
	return r.WithContext(session.WithContext(r.Context(), sess))
}

func anonymous() *session.Session {
	return &session.Session{ID: "anon-session", State: model.StateAnonymous}
}

func signedIn(admin bool) *session.Session {
	return &session.Session{
		ID:          "user-session",
		State:       model.StateAuthenticated,
		Username:    "jane",
		Email:       "jane@x.com",
		DisplayName: "Jane Doe",
		AccessToken: "tok",
		Admin:       admin,
	}
}

const validID = "7f9c2a52-5b1e-4c39-9a6e-0d7f3f0f2b11"
