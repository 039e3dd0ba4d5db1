package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	mw "github.com/cfi/selfservice/internal/api/middleware"
	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/session"
)

// Flash messages shown on the next page after a successful action.
const (
	FlashRecordSubmitted = "Record Submitted"
	FlashRecordUpdated   = "Record Updated"
	FlashRecordDeleted   = "Record Deleted"
	FlashURLsUpdated     = "Environment URLs Updated"
	FlashProfileUploaded = "VPN Profile Uploaded"
)

// Pages renders templates with the session's navigation state, saving the
// session before anything is written.
type Pages struct {
	views    *response.Views
	sessions *session.Manager
}

func NewPages(views *response.Views, sessions *session.Manager) *Pages {
	return &Pages{views: views, sessions: sessions}
}

func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	p.render(w, r, status, name, response.Page{Title: title, Data: data})
}

// Invalid re-renders a form page with the error's user message.
func (p *Pages) Invalid(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, err error) {
	zerolog.Ctx(r.Context()).Info().Err(err).Str("page", name).Msg("form rejected")
	p.render(w, r, status, name, response.Page{
		Title: title,
		Data:  data,
		Error: core.UserMessage(err, "Please check the form and try again."),
	})
}

// Redirect saves the session and sends the browser to url.
func (p *Pages) Redirect(w http.ResponseWriter, r *http.Request, url string) {
	if sess := session.FromContext(r.Context()); sess != nil {
		if err := p.sessions.Save(w, r, sess); err != nil {
			p.sessionFailed(w, r, err)
			return
		}
	}
	response.Redirect(w, r, url)
}

// Fail renders the error page for err. Unauthorized errors send the user
// back to the login page.
func (p *Pages) Fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrUnauthorized) {
		p.Redirect(w, r, "/")
		return
	}

	status := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	} else {
		zerolog.Ctx(r.Context()).Info().Err(err).Msg("request rejected")
	}
	p.Render(w, r, status, "error", response.ErrorTitle(status), response.ErrorData{
		Message: core.UserMessage(err, response.ErrorMessage(status)),
	})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, page response.Page) {
	if sess := session.FromContext(r.Context()); sess != nil {
		page.Flashes = sess.PopFlashes()
		if sess.Authenticated() {
			page.User = &response.User{Name: sess.DisplayName, Email: sess.Email, Admin: sess.Admin}
			page.Notifications = mw.GetNotifications(r.Context())
		}
		if err := p.sessions.Save(w, r, sess); err != nil {
			p.sessionFailed(w, r, err)
			return
		}
	}
	p.views.Render(w, r, status, name, page)
}

func (p *Pages) sessionFailed(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("save session")
	p.views.Error(w, r, http.StatusServiceUnavailable, response.ErrorMessage(http.StatusServiceUnavailable))
}

// NotFound renders the 404 page for unknown routes.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, http.StatusNotFound, "error", response.ErrorTitle(http.StatusNotFound),
		response.ErrorData{Message: response.ErrorMessage(http.StatusNotFound)})
}

// adminName is recorded as the reviewer on admin actions.
func adminName(sess *session.Session) string {
	switch {
	case sess.DisplayName != "":
		return sess.DisplayName
	case sess.Email != "":
		return sess.Email
	default:
		return sess.Username
	}
}
