package model

// LoginState is the position of a browser session in the sign-in sequence.
type LoginState string

const (
	StateAnonymous          LoginState = "anonymous"
	StatePasswordChallenge  LoginState = "password_challenge"
	StateMfaSetupChallenge  LoginState = "mfa_setup_challenge"
	StateMfaVerifyChallenge LoginState = "mfa_verify_challenge"
	StateAuthenticated      LoginState = "authenticated"
)

// Valid reports whether s is one of the defined states.
func (s LoginState) Valid() bool {
	switch s {
	case StateAnonymous, StatePasswordChallenge, StateMfaSetupChallenge,
		StateMfaVerifyChallenge, StateAuthenticated:
		return true
	}
	return false
}
