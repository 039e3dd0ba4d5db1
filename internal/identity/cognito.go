// Package identity wraps the Cognito user pool used for sign-in.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/cfi/selfservice/internal/metrics"
	"github.com/cfi/selfservice/internal/model"
)

// Challenge names returned by Cognito.
const (
	ChallengeNewPassword = string(types.ChallengeNameTypeNewPasswordRequired)
	ChallengeMFASetup    = string(types.ChallengeNameTypeMfaSetup)
	ChallengeSoftwareMFA = string(types.ChallengeNameTypeSoftwareTokenMfa)
)

// API is the subset of the Cognito identity provider client used by Client.
type API interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	AssociateSoftwareToken(ctx context.Context, in *cip.AssociateSoftwareTokenInput, optFns ...func(*cip.Options)) (*cip.AssociateSoftwareTokenOutput, error)
	VerifySoftwareToken(ctx context.Context, in *cip.VerifySoftwareTokenInput, optFns ...func(*cip.Options)) (*cip.VerifySoftwareTokenOutput, error)
	AdminSetUserMFAPreference(ctx context.Context, in *cip.AdminSetUserMFAPreferenceInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserMFAPreferenceOutput, error)
	AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	ListUsersInGroup(ctx context.Context, in *cip.ListUsersInGroupInput, optFns ...func(*cip.Options)) (*cip.ListUsersInGroupOutput, error)
}

// Challenge is the outcome of an authentication step. Exactly one of Name
// or AccessToken is set.
type Challenge struct {
	Name        string
	Session     string
	AccessToken string
}

// User is the identity behind a valid access token.
type User struct {
	Username    string
	Email       string
	DisplayName string
}

type Client struct {
	api        API
	clientID   string
	userPoolID string
}

func New(api API, clientID, userPoolID string) *Client {
	return &Client{api: api, clientID: clientID, userPoolID: userPoolID}
}

func NewFromConfig(cfg aws.Config, clientID, userPoolID string) *Client {
	return New(cip.NewFromConfig(cfg), clientID, userPoolID)
}

func (c *Client) InitiateAuth(ctx context.Context, username, password string) (_ Challenge, err error) {
	defer metrics.ObserveUpstream("cognito", "InitiateAuth", time.Now(), &err)

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return Challenge{}, classify("initiate auth", err)
	}
	return challengeFrom(out.ChallengeName, out.Session, out.AuthenticationResult), nil
}

func (c *Client) RespondNewPassword(ctx context.Context, session, username, newPassword string) (_ Challenge, err error) {
	defer metrics.ObserveUpstream("cognito", "RespondToAuthChallenge", time.Now(), &err)

	return c.respond(ctx, types.ChallengeNameTypeNewPasswordRequired, session, map[string]string{
		"USERNAME":     username,
		"NEW_PASSWORD": newPassword,
	})
}

func (c *Client) RespondSoftwareTokenMFA(ctx context.Context, session, username, code string) (_ Challenge, err error) {
	defer metrics.ObserveUpstream("cognito", "RespondToAuthChallenge", time.Now(), &err)

	return c.respond(ctx, types.ChallengeNameTypeSoftwareTokenMfa, session, map[string]string{
		"USERNAME":                username,
		"SOFTWARE_TOKEN_MFA_CODE": code,
	})
}

func (c *Client) respond(ctx context.Context, name types.ChallengeNameType, session string, responses map[string]string) (Challenge, error) {
	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ClientId:           aws.String(c.clientID),
		ChallengeName:      name,
		Session:            aws.String(session),
		ChallengeResponses: responses,
	})
	if err != nil {
		return Challenge{}, classify(fmt.Sprintf("respond to %s", name), err)
	}
	return challengeFrom(out.ChallengeName, out.Session, out.AuthenticationResult), nil
}

func challengeFrom(name types.ChallengeNameType, session *string, result *types.AuthenticationResultType) Challenge {
	ch := Challenge{Name: string(name), Session: aws.ToString(session)}
	if result != nil {
		ch.AccessToken = aws.ToString(result.AccessToken)
	}
	return ch
}

// AssociateSoftwareToken starts TOTP enrolment for the user behind session.
// It returns the shared secret and the session to verify with.
func (c *Client) AssociateSoftwareToken(ctx context.Context, session string) (secret, nextSession string, err error) {
	defer metrics.ObserveUpstream("cognito", "AssociateSoftwareToken", time.Now(), &err)

	out, err := c.api.AssociateSoftwareToken(ctx, &cip.AssociateSoftwareTokenInput{
		Session: aws.String(session),
	})
	if err != nil {
		return "", "", classify("associate software token", err)
	}
	return aws.ToString(out.SecretCode), aws.ToString(out.Session), nil
}

// VerifySoftwareToken confirms a TOTP code during enrolment.
func (c *Client) VerifySoftwareToken(ctx context.Context, session, code string) (err error) {
	defer metrics.ObserveUpstream("cognito", "VerifySoftwareToken", time.Now(), &err)

	out, err := c.api.VerifySoftwareToken(ctx, &cip.VerifySoftwareTokenInput{
		Session:            aws.String(session),
		UserCode:           aws.String(code),
		FriendlyDeviceName: aws.String("portal"),
	})
	if err != nil {
		return classify("verify software token", err)
	}
	if out.Status != types.VerifySoftwareTokenResponseTypeSuccess {
		return fmt.Errorf("verify software token: status %s: %w", out.Status, model.ErrValidation)
	}
	return nil
}

// EnableSoftwareTokenMFA makes TOTP the user's preferred second factor.
func (c *Client) EnableSoftwareTokenMFA(ctx context.Context, username string) (err error) {
	defer metrics.ObserveUpstream("cognito", "AdminSetUserMFAPreference", time.Now(), &err)

	_, err = c.api.AdminSetUserMFAPreference(ctx, &cip.AdminSetUserMFAPreferenceInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
		SoftwareTokenMfaSettings: &types.SoftwareTokenMfaSettingsType{
			Enabled:      true,
			PreferredMfa: true,
		},
	})
	if err != nil {
		return classify("enable software token mfa", err)
	}
	return nil
}

// AdminResetRequired reports whether the user must set a new password
// before signing in.
func (c *Client) AdminResetRequired(ctx context.Context, username string) (_ bool, err error) {
	defer metrics.ObserveUpstream("cognito", "AdminGetUser", time.Now(), &err)

	out, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return false, classify("admin get user", err)
	}
	return out.UserStatus == types.UserStatusTypeForceChangePassword ||
		out.UserStatus == types.UserStatusTypeResetRequired, nil
}

// AdminSetPassword sets a permanent password for username.
func (c *Client) AdminSetPassword(ctx context.Context, username, password string) (err error) {
	defer metrics.ObserveUpstream("cognito", "AdminSetUserPassword", time.Now(), &err)

	_, err = c.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
		Password:   aws.String(password),
		Permanent:  true,
	})
	if err != nil {
		return classify("admin set user password", err)
	}
	return nil
}

func (c *Client) ForgotPassword(ctx context.Context, username string) (err error) {
	defer metrics.ObserveUpstream("cognito", "ForgotPassword", time.Now(), &err)

	_, err = c.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(username),
	})
	if err != nil {
		return classify("forgot password", err)
	}
	return nil
}

func (c *Client) ConfirmForgotPassword(ctx context.Context, username, code, password string) (err error) {
	defer metrics.ObserveUpstream("cognito", "ConfirmForgotPassword", time.Now(), &err)

	_, err = c.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(password),
	})
	if err != nil {
		return classify("confirm forgot password", err)
	}
	return nil
}

// GetUser resolves an access token. An expired or revoked token yields
// ErrUnauthorized.
func (c *Client) GetUser(ctx context.Context, accessToken string) (_ User, err error) {
	defer metrics.ObserveUpstream("cognito", "GetUser", time.Now(), &err)

	out, err := c.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return User{}, classify("get user", err)
	}

	u := User{Username: aws.ToString(out.Username)}
	var given, family, name string
	for _, a := range out.UserAttributes {
		switch aws.ToString(a.Name) {
		case "email":
			u.Email = aws.ToString(a.Value)
		case "given_name":
			given = aws.ToString(a.Value)
		case "family_name":
			family = aws.ToString(a.Value)
		case "name":
			name = aws.ToString(a.Value)
		}
	}
	switch {
	case given != "" || family != "":
		u.DisplayName = strings.TrimSpace(given + " " + family)
	case name != "":
		u.DisplayName = name
	case u.Email != "":
		u.DisplayName = u.Email
	default:
		u.DisplayName = u.Username
	}
	return u, nil
}

// IsGroupMember reports whether a user with the given email belongs to group.
func (c *Client) IsGroupMember(ctx context.Context, group, email string) (_ bool, err error) {
	defer metrics.ObserveUpstream("cognito", "ListUsersInGroup", time.Now(), &err)

	p := cip.NewListUsersInGroupPaginator(c.api, &cip.ListUsersInGroupInput{
		UserPoolId: aws.String(c.userPoolID),
		GroupName:  aws.String(group),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, classify("list users in group "+group, err)
		}
		for _, u := range page.Users {
			for _, a := range u.Attributes {
				if aws.ToString(a.Name) == "email" && strings.EqualFold(aws.ToString(a.Value), email) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// classify maps Cognito exceptions onto the model sentinel errors.
func classify(op string, err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		userNotFound  *types.UserNotFoundException
		codeMismatch  *types.CodeMismatchException
		expiredCode   *types.ExpiredCodeException
		invalidPw     *types.InvalidPasswordException
		invalidParam  *types.InvalidParameterException
		enableMFA     *types.EnableSoftwareTokenMFAException
		limit         *types.LimitExceededException
	)
	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &userNotFound):
		return fmt.Errorf("%s: %w: %w", op, model.ErrUnauthorized, err)
	case errors.As(err, &codeMismatch), errors.As(err, &expiredCode),
		errors.As(err, &invalidPw), errors.As(err, &invalidParam),
		errors.As(err, &enableMFA), errors.As(err, &limit):
		return fmt.Errorf("%s: %w: %w", op, model.ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, model.ErrUnavailable, err)
	}
}

// Message returns the provider's human-readable message for err, if any.
func Message(err error) string {
	var apiErr interface{ ErrorMessage() string }
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return ""
}
