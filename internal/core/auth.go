package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

// Flash messages shown after auth flows complete.
const (
	FlashMfaSetup        = "MFA Setup"
	FlashPasswordChanged = "Password Changed"
)

const totpIssuer = "Self Service Portal"

// AuthService sequences sign-in, password and MFA flows against the
// identity provider, keeping progress in the caller's session.
type AuthService struct {
	idp        IdentityProvider
	adminGroup string
}

func NewAuthService(idp IdentityProvider, adminGroup string) *AuthService {
	return &AuthService{idp: idp, adminGroup: adminGroup}
}

// Login starts a fresh sign-in. Any previous login progress is discarded.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, username, password string) error {
	if err := s.move(sess, EventReset); err != nil {
		return err
	}
	sess.Reset()
	sess.Renew()

	ch, err := s.idp.InitiateAuth(ctx, username, password)
	if err != nil {
		return authError(err, "Incorrect username or password")
	}
	sess.Username = username
	return s.apply(ctx, sess, ch)
}

// ForcePasswordChange answers a NEW_PASSWORD_REQUIRED challenge.
func (s *AuthService) ForcePasswordChange(ctx context.Context, sess *session.Session, newPassword string) error {
	if sess.State != model.StatePasswordChallenge {
		return fmt.Errorf("force password change in %s: %w", sess.State, ErrInvalidTransition)
	}
	ch, err := s.idp.RespondNewPassword(ctx, sess.ChallengeSession, sess.Username, newPassword)
	if err != nil {
		return authError(err, "The new password was rejected")
	}
	sess.AddFlash(FlashPasswordChanged)
	return s.apply(ctx, sess, ch)
}

// CompleteMfaSetup verifies the first TOTP code of a new authenticator.
// On success the user must sign in again with the enrolled device.
func (s *AuthService) CompleteMfaSetup(ctx context.Context, sess *session.Session, code string) error {
	if sess.State != model.StateMfaSetupChallenge {
		return fmt.Errorf("mfa setup in %s: %w", sess.State, ErrInvalidTransition)
	}
	if err := s.idp.VerifySoftwareToken(ctx, sess.ChallengeSession, code); err != nil {
		return authError(err, "The verification code is incorrect")
	}
	if err := s.idp.EnableSoftwareTokenMFA(ctx, sess.Username); err != nil {
		return authError(err, "MFA could not be enabled")
	}
	if err := s.move(sess, EventMfaEnrolled); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("username", sess.Username).Msg("mfa enrolled")
	sess.Reset()
	sess.AddFlash(FlashMfaSetup)
	return nil
}

// VerifyMfa answers a SOFTWARE_TOKEN_MFA challenge.
func (s *AuthService) VerifyMfa(ctx context.Context, sess *session.Session, code string) error {
	if sess.State != model.StateMfaVerifyChallenge {
		return fmt.Errorf("mfa verify in %s: %w", sess.State, ErrInvalidTransition)
	}
	ch, err := s.idp.RespondSoftwareTokenMFA(ctx, sess.ChallengeSession, sess.Username, code)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			// Challenge session expired; start over.
			s.Logout(sess)
		}
		return authError(err, "The verification code is incorrect")
	}
	return s.apply(ctx, sess, ch)
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) error {
	if err := s.idp.ForgotPassword(ctx, username); err != nil {
		return authError(err, "A reset code could not be sent")
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, sess *session.Session, username, code, password string) error {
	if err := s.idp.ConfirmForgotPassword(ctx, username, code, password); err != nil {
		return authError(err, "The reset code or new password was rejected")
	}
	sess.AddFlash(FlashPasswordChanged)
	return nil
}

func (s *AuthService) Logout(sess *session.Session) {
	_ = s.move(sess, EventReset)
	sess.Reset()
}

// Validate confirms an authenticated session's access token is still
// accepted upstream and returns the user behind it.
func (s *AuthService) Validate(ctx context.Context, sess *session.Session) (identity.User, error) {
	if !sess.Authenticated() {
		return identity.User{}, ErrUnauthorized
	}
	u, err := s.idp.GetUser(ctx, sess.AccessToken)
	if err != nil {
		return identity.User{}, fmt.Errorf("validate session: %w", err)
	}
	return u, nil
}

func (s *AuthService) move(sess *session.Session, ev LoginEvent) error {
	next, err := Transition(sess.State, ev)
	if err != nil {
		return err
	}
	sess.State = next
	metrics.RecordLoginTransition(string(next))
	return nil
}

// apply advances the session on an identity provider response.
func (s *AuthService) apply(ctx context.Context, sess *session.Session, ch identity.Challenge) error {
	ev, err := eventFor(ch)
	if err != nil {
		return err
	}
	if _, err := Transition(sess.State, ev); err != nil {
		return err
	}

	sess.ChallengeSession = ch.Session
	switch ev {
	case EventMfaSetupRequired:
		secret, next, err := s.idp.AssociateSoftwareToken(ctx, ch.Session)
		if err != nil {
			return authError(err, "MFA setup could not be started")
		}
		qr, err := QRCodeDataURI(TOTPURI(sess.Username, secret))
		if err != nil {
			return err
		}
		sess.ChallengeSession = next
		sess.SecretCode = secret
		sess.QRCode = qr

	case EventTokensIssued:
		u, err := s.idp.GetUser(ctx, ch.AccessToken)
		if err != nil {
			return authError(err, "Sign-in could not be completed")
		}
		admin, err := s.idp.IsGroupMember(ctx, s.adminGroup, u.Email)
		if err != nil {
			return authError(err, "Sign-in could not be completed")
		}
		sess.AccessToken = ch.AccessToken
		sess.Email = u.Email
		sess.DisplayName = u.DisplayName
		sess.Admin = admin
		sess.ChallengeSession = ""
		sess.SecretCode = ""
		sess.QRCode = ""
		sess.Renew()
		zerolog.Ctx(ctx).Info().Str("username", sess.Username).Bool("admin", admin).Msg("user signed in")
	}

	return s.move(sess, ev)
}

// TOTPURI builds the otpauth:// URI an authenticator app enrols from.
func TOTPURI(username, secret string) string {
	label := url.PathEscape(totpIssuer + ":" + username)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", totpIssuer)
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// QRCodeDataURI renders content as a PNG QR code embedded in a data URI.
func QRCodeDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// authError attaches a user-facing message to identity provider failures
// that the user can act on.
func authError(err error, msg string) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	if m := identity.Message(err); m != "" && errors.Is(err, ErrValidation) {
		msg = m
	}
	return newServiceError(msg, err)
}
