package handler

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/api/request"
	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

// Auth serves the login, password and MFA pages.
type Auth struct {
	svc      *core.AuthService
	sessions *session.Manager
	pages    *Pages
}

func NewAuth(svc *core.AuthService, sessions *session.Manager, pages *Pages) *Auth {
	return &Auth{svc: svc, sessions: sessions, pages: pages}
}

type loginData struct {
	Username string
}

type mfaSetupData struct {
	QRCode     template.URL
	SecretCode string
}

// stepURL is the page that continues a login in state.
func stepURL(state model.LoginState) string {
	switch state {
	case model.StateAuthenticated:
		return "/home/"
	case model.StatePasswordChallenge:
		return "/login/password/reset/force/"
	case model.StateMfaSetupChallenge:
		return "/login/mfa/setup/"
	case model.StateMfaVerifyChallenge:
		return "/login/mfa/request/"
	default:
		return "/"
	}
}

func (h *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.Authenticated() {
		h.pages.Redirect(w, r, "/home/")
		return
	}
	h.pages.Render(w, r, http.StatusOK, "login", "Login", loginData{})
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var f request.LoginForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "login", "Login", loginData{Username: f.Username}, err)
		return
	}
	if err := h.svc.Login(r.Context(), sess, f.Username, f.Password); err != nil {
		h.fail(w, r, "login", "Login", loginData{Username: f.Username}, err)
		return
	}
	h.pages.Redirect(w, r, stepURL(sess.State))
}

func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	h.svc.Logout(sess)
	if err := h.sessions.Destroy(w, r, sess); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("delete session")
	}
	response.Redirect(w, r, "/")
}

func (h *Auth) ForcePasswordPage(w http.ResponseWriter, r *http.Request) {
	if !h.inState(w, r, model.StatePasswordChallenge) {
		return
	}
	h.pages.Render(w, r, http.StatusOK, "password_force", "Change Password", nil)
}

func (h *Auth) ForcePassword(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var f request.NewPasswordForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "password_force", "Change Password", nil, err)
		return
	}
	if err := h.svc.ForcePasswordChange(r.Context(), sess, f.NewPassword); err != nil {
		h.fail(w, r, "password_force", "Change Password", nil, err)
		return
	}
	h.pages.Redirect(w, r, stepURL(sess.State))
}

func (h *Auth) ResetRequestPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "password_reset_request", "Password Reset Request",
		loginData{Username: r.URL.Query().Get("username")})
}

func (h *Auth) ResetRequest(w http.ResponseWriter, r *http.Request) {
	var f request.PasswordResetRequestForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "password_reset_request", "Password Reset Request", loginData{}, err)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), f.Username); err != nil {
		h.fail(w, r, "password_reset_request", "Password Reset Request", loginData{Username: f.Username}, err)
		return
	}
	h.pages.Redirect(w, r, "/login/password/reset/?username="+url.QueryEscape(f.Username))
}

func (h *Auth) ResetPage(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "password_reset", "Password Reset",
		loginData{Username: r.URL.Query().Get("username")})
}

func (h *Auth) Reset(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var f request.PasswordResetForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "password_reset", "Password Reset", loginData{Username: f.Username}, err)
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), sess, f.Username, f.Code, f.NewPassword); err != nil {
		h.fail(w, r, "password_reset", "Password Reset", loginData{Username: f.Username}, err)
		return
	}
	h.pages.Redirect(w, r, "/")
}

func (h *Auth) MfaSetupPage(w http.ResponseWriter, r *http.Request) {
	if !h.inState(w, r, model.StateMfaSetupChallenge) {
		return
	}
	h.pages.Render(w, r, http.StatusOK, "mfa_setup", "Multi-Factor Authentication Setup", setupData(session.FromContext(r.Context())))
}

func (h *Auth) MfaSetup(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var f request.MfaCodeForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "mfa_setup", "Multi-Factor Authentication Setup", setupData(sess), err)
		return
	}
	if err := h.svc.CompleteMfaSetup(r.Context(), sess, f.Code); err != nil {
		h.fail(w, r, "mfa_setup", "Multi-Factor Authentication Setup", setupData(sess), err)
		return
	}
	h.pages.Redirect(w, r, "/")
}

func (h *Auth) MfaVerifyPage(w http.ResponseWriter, r *http.Request) {
	if !h.inState(w, r, model.StateMfaVerifyChallenge) {
		return
	}
	h.pages.Render(w, r, http.StatusOK, "mfa_verify", "Multi-Factor Authentication", nil)
}

func (h *Auth) MfaVerify(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var f request.MfaCodeForm
	if err := request.DecodeForm(r, &f); err != nil {
		h.pages.Invalid(w, r, http.StatusBadRequest, "mfa_verify", "Multi-Factor Authentication", nil, err)
		return
	}
	if err := h.svc.VerifyMfa(r.Context(), sess, f.Code); err != nil {
		h.fail(w, r, "mfa_verify", "Multi-Factor Authentication", nil, err)
		return
	}
	h.pages.Redirect(w, r, stepURL(sess.State))
}

func setupData(sess *session.Session) mfaSetupData {
	return mfaSetupData{QRCode: template.URL(sess.QRCode), SecretCode: sess.SecretCode}
}

// inState redirects to the page for the session's actual login state when
// it is not want.
func (h *Auth) inState(w http.ResponseWriter, r *http.Request, want model.LoginState) bool {
	sess := session.FromContext(r.Context())
	if sess.State != want {
		h.pages.Redirect(w, r, stepURL(sess.State))
		return false
	}
	return true
}

var challengePages = map[string]bool{
	"password_force": true,
	"mfa_setup":      true,
	"mfa_verify":     true,
}

// fail handles an auth service error on a form page.
func (h *Auth) fail(w http.ResponseWriter, r *http.Request, name, title string, data any, err error) {
	sess := session.FromContext(r.Context())
	switch {
	case errors.Is(err, core.ErrInvalidTransition):
		h.pages.Redirect(w, r, stepURL(sess.State))
	case errors.Is(err, core.ErrUnavailable):
		h.pages.Fail(w, r, err)
	case challengePages[name] && sess.State == model.StateAnonymous:
		// Challenge expired; the login has been reset.
		h.pages.Invalid(w, r, http.StatusUnauthorized, "login", "Login", loginData{},
			&core.ServiceError{Message: "Your sign-in has expired. Please log in again.", Err: err})
	default:
		h.pages.Invalid(w, r, response.StatusFor(err), name, title, data, err)
	}
}
