package identity

import (
	"context"

	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/stretchr/testify/mock"
)

// mockAPI implements API for testing. Unused methods panic via testify when
// called without an expectation.
type mockAPI struct {
	mock.Mock
}

func ret[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *mockAPI) InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	return ret[cip.InitiateAuthOutput](m.Called(ctx, in))
}

func (m *mockAPI) RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, _ ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	return ret[cip.RespondToAuthChallengeOutput](m.Called(ctx, in))
}

func (m *mockAPI) AssociateSoftwareToken(ctx context.Context, in *cip.AssociateSoftwareTokenInput, _ ...func(*cip.Options)) (*cip.AssociateSoftwareTokenOutput, error) {
	return ret[cip.AssociateSoftwareTokenOutput](m.Called(ctx, in))
}

func (m *mockAPI) VerifySoftwareToken(ctx context.Context, in *cip.VerifySoftwareTokenInput, _ ...func(*cip.Options)) (*cip.VerifySoftwareTokenOutput, error) {
	return ret[cip.VerifySoftwareTokenOutput](m.Called(ctx, in))
}

func (m *mockAPI) AdminSetUserMFAPreference(ctx context.Context, in *cip.AdminSetUserMFAPreferenceInput, _ ...func(*cip.Options)) (*cip.AdminSetUserMFAPreferenceOutput, error) {
	return ret[cip.AdminSetUserMFAPreferenceOutput](m.Called(ctx, in))
}

func (m *mockAPI) AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, _ ...func(*cip.Options)) (*cip.AdminGetUserOutput, error) {
	return ret[cip.AdminGetUserOutput](m.Called(ctx, in))
}

func (m *mockAPI) AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, _ ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error) {
	return ret[cip.AdminSetUserPasswordOutput](m.Called(ctx, in))
}

func (m *mockAPI) ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	return ret[cip.ForgotPasswordOutput](m.Called(ctx, in))
}

func (m *mockAPI) ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	return ret[cip.ConfirmForgotPasswordOutput](m.Called(ctx, in))
}

func (m *mockAPI) GetUser(ctx context.Context, in *cip.GetUserInput, _ ...func(*cip.Options)) (*cip.GetUserOutput, error) {
	return ret[cip.GetUserOutput](m.Called(ctx, in))
}

func (m *mockAPI) ListUsersInGroup(ctx context.Context, in *cip.ListUsersInGroupInput, _ ...func(*cip.Options)) (*cip.ListUsersInGroupOutput, error) {
	return ret[cip.ListUsersInGroupOutput](m.Called(ctx, in))
}
