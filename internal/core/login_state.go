package core

import (
	"fmt"

	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/model"
)

// LoginEvent drives the login state machine.
type LoginEvent string

const (
	EventTokensIssued        LoginEvent = "tokens_issued"
	EventNewPasswordRequired LoginEvent = "new_password_required"
	EventMfaSetupRequired    LoginEvent = "mfa_setup_required"
	EventMfaRequired         LoginEvent = "mfa_required"
	EventMfaEnrolled         LoginEvent = "mfa_enrolled"
	EventReset               LoginEvent = "reset"
)

// ErrInvalidTransition is returned for an event the current state does not
// accept, e.g. posting an MFA code without a pending challenge.
var ErrInvalidTransition = fmt.Errorf("invalid login transition: %w", ErrUnauthorized)

var loginTransitions = map[model.LoginState]map[LoginEvent]model.LoginState{
	model.StateAnonymous: {
		EventTokensIssued:        model.StateAuthenticated,
		EventNewPasswordRequired: model.StatePasswordChallenge,
		EventMfaSetupRequired:    model.StateMfaSetupChallenge,
		EventMfaRequired:         model.StateMfaVerifyChallenge,
	},
	model.StatePasswordChallenge: {
		EventTokensIssued:        model.StateAuthenticated,
		EventNewPasswordRequired: model.StatePasswordChallenge,
		EventMfaSetupRequired:    model.StateMfaSetupChallenge,
		EventMfaRequired:         model.StateMfaVerifyChallenge,
	},
	model.StateMfaSetupChallenge: {
		EventMfaEnrolled: model.StateAnonymous,
	},
	model.StateMfaVerifyChallenge: {
		EventTokensIssued: model.StateAuthenticated,
	},
	model.StateAuthenticated: {},
}

// Transition returns the state reached from state on ev. Reset is accepted
// from every state.
func Transition(state model.LoginState, ev LoginEvent) (model.LoginState, error) {
	if ev == EventReset {
		return model.StateAnonymous, nil
	}
	if state == "" {
		state = model.StateAnonymous
	}
	next, ok := loginTransitions[state][ev]
	if !ok {
		return state, fmt.Errorf("%s on %s: %w", ev, state, ErrInvalidTransition)
	}
	return next, nil
}

// eventFor maps an identity provider response onto a login event.
func eventFor(ch identity.Challenge) (LoginEvent, error) {
	if ch.AccessToken != "" {
		return EventTokensIssued, nil
	}
	switch ch.Name {
	case identity.ChallengeNewPassword:
		return EventNewPasswordRequired, nil
	case identity.ChallengeMFASetup:
		return EventMfaSetupRequired, nil
	case identity.ChallengeSoftwareMFA:
		return EventMfaRequired, nil
	default:
		return "", fmt.Errorf("unsupported challenge %q: %w", ch.Name, ErrUnavailable)
	}
}
