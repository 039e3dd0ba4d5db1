package core

import (
	"context"
	"time"

	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/model"
)

// AccessRequestStore persists access requests.
type AccessRequestStore interface {
	Create(ctx context.Context, req *model.AccessRequest) error
	Get(ctx context.Context, id string) (*model.AccessRequest, error)
	Decide(ctx context.Context, id string, d model.Decision) error
	Update(ctx context.Context, req *model.AccessRequest) error
	Delete(ctx context.Context, id string) error
	Scan(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error)
	ScanApproved(ctx context.Context, email string) ([]model.AccessRequest, error)
	ScanNotifications(ctx context.Context, email string) ([]model.AccessRequest, error)
	ClearNotification(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// IdentityProvider is the user pool behind sign-in.
type IdentityProvider interface {
	InitiateAuth(ctx context.Context, username, password string) (identity.Challenge, error)
	RespondNewPassword(ctx context.Context, session, username, newPassword string) (identity.Challenge, error)
	RespondSoftwareTokenMFA(ctx context.Context, session, username, code string) (identity.Challenge, error)
	AssociateSoftwareToken(ctx context.Context, session string) (secret, nextSession string, err error)
	VerifySoftwareToken(ctx context.Context, session, code string) error
	EnableSoftwareTokenMFA(ctx context.Context, username string) error
	ForgotPassword(ctx context.Context, username string) error
	ConfirmForgotPassword(ctx context.Context, username, code, password string) error
	GetUser(ctx context.Context, accessToken string) (identity.User, error)
	IsGroupMember(ctx context.Context, group, email string) (bool, error)
}

// SecretStore reads and writes single keys of JSON secrets.
type SecretStore interface {
	Get(ctx context.Context, ref model.SecretRef) (string, error)
	Put(ctx context.Context, ref model.SecretRef, value string) error
}

// ProfileStore holds published VPN profiles.
type ProfileStore interface {
	Put(ctx context.Context, environment string, body []byte) error
	Exists(ctx context.Context, environment string) (bool, error)
	PresignDownload(ctx context.Context, environment string, ttl time.Duration) (string, error)
}

// Catalogue is the immutable environment list loaded at startup.
type Catalogue interface {
	All() []model.Environment
	Names() []string
	Lookup(name string) (model.Environment, bool)
	Precedence(name string) int
}
