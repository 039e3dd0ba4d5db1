package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cfi/selfservice/internal/api/response"
	"github.com/cfi/selfservice/internal/config"
	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/model"
	"github.com/cfi/selfservice/internal/session"
)

var views = response.NewViews()

// testEnv wires real services over mocked adapters.
type testEnv struct {
	store     *mockStore
	idp       *mockIDP
	secrets   *memSecrets
	profiles  *mockProfiles
	catalogue *config.Catalogue
	sessions  *session.Manager
	pages     *Pages
	services  *core.Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := config.NewCatalogue([]model.Environment{
		{Name: "Test", URLSecret: model.SecretRef{Name: "dea-urls", Key: "test"}, Rank: 0},
		{Name: "Development", URLSecret: model.SecretRef{Name: "dea-urls", Key: "dev"}, Rank: 1},
		{Name: "Production", URLSecret: model.SecretRef{Name: "dea-urls", Key: "prod"}, Rank: 2},
	})
	require.NoError(t, err)

	e := &testEnv{
		store:   new(mockStore),
		idp:     new(mockIDP),
		secrets: &memSecrets{values: map[model.SecretRef]string{
			{Name: "dea-urls", Key: "test"}: "https://test.example.com",
			{Name: "dea-urls", Key: "dev"}:  "https://dev.example.com",
			{Name: "dea-urls", Key: "prod"}: "https://prod.example.com",
		}},
		profiles:  new(mockProfiles),
		catalogue: cat,
		sessions:  session.NewManager(session.NewMemoryStore(), []byte("0123456789abcdef0123456789abcdef"), time.Hour, false),
	}
	e.pages = NewPages(views, e.sessions)
	e.services = core.NewServices(core.Deps{
		Requests:   e.store,
		Identity:   e.idp,
		Secrets:    e.secrets,
		Profiles:   e.profiles,
		Catalogue:  cat,
		AdminGroup: "Admins",
		VPNLinkTTL: 15 * time.Minute,
	})
	return e
}

// ---------- Access request store ----------

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, req *model.AccessRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockStore) Get(ctx context.Context, id string) (*model.AccessRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	req := *args.Get(0).(*model.AccessRequest)
	return &req, args.Error(1)
}

func (m *mockStore) Decide(ctx context.Context, id string, d model.Decision) error {
	return m.Called(ctx, id, d).Error(0)
}

func (m *mockStore) Update(ctx context.Context, req *model.AccessRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Scan(ctx context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.AccessRequest)
	return items, args.Error(1)
}

func (m *mockStore) ScanApproved(ctx context.Context, email string) ([]model.AccessRequest, error) {
	args := m.Called(ctx, email)
	items, _ := args.Get(0).([]model.AccessRequest)
	return items, args.Error(1)
}

func (m *mockStore) ScanNotifications(ctx context.Context, email string) ([]model.AccessRequest, error) {
	args := m.Called(ctx, email)
	items, _ := args.Get(0).([]model.AccessRequest)
	return items, args.Error(1)
}

func (m *mockStore) ClearNotification(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ---------- Identity provider ----------

type mockIDP struct {
	mock.Mock
}

func (m *mockIDP) InitiateAuth(ctx context.Context, username, password string) (identity.Challenge, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(identity.Challenge), args.Error(1)
}

func (m *mockIDP) RespondNewPassword(ctx context.Context, session, username, newPassword string) (identity.Challenge, error) {
	args := m.Called(ctx, session, username, newPassword)
	return args.Get(0).(identity.Challenge), args.Error(1)
}

func (m *mockIDP) RespondSoftwareTokenMFA(ctx context.Context, session, username, code string) (identity.Challenge, error) {
	args := m.Called(ctx, session, username, code)
	return args.Get(0).(identity.Challenge), args.Error(1)
}

func (m *mockIDP) AssociateSoftwareToken(ctx context.Context, session string) (string, string, error) {
	args := m.Called(ctx, session)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockIDP) VerifySoftwareToken(ctx context.Context, session, code string) error {
	return m.Called(ctx, session, code).Error(0)
}

func (m *mockIDP) EnableSoftwareTokenMFA(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *mockIDP) ForgotPassword(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *mockIDP) ConfirmForgotPassword(ctx context.Context, username, code, password string) error {
	return m.Called(ctx, username, code, password).Error(0)
}

func (m *mockIDP) GetUser(ctx context.Context, accessToken string) (identity.User, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(identity.User), args.Error(1)
}

func (m *mockIDP) IsGroupMember(ctx context.Context, group, email string) (bool, error) {
	args := m.Called(ctx, group, email)
	return args.Bool(0), args.Error(1)
}

// ---------- Secrets and profiles ----------

type memSecrets struct {
	mu     sync.Mutex
	values map[model.SecretRef]string
	putErr map[model.SecretRef]error
}

func (m *memSecrets) Get(_ context.Context, ref model.SecretRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[ref]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

func (m *memSecrets) Put(_ context.Context, ref model.SecretRef, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putErr[ref]; err != nil {
		return err
	}
	m.values[ref] = value
	return nil
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Put(ctx context.Context, environment string, body []byte) error {
	return m.Called(ctx, environment, body).Error(0)
}

func (m *mockProfiles) Exists(ctx context.Context, environment string) (bool, error) {
	args := m.Called(ctx, environment)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfiles) PresignDownload(ctx context.Context, environment string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, environment, ttl)
	return args.String(0), args.Error(1)
}
