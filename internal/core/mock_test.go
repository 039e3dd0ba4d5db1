package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cfi/selfservice/internal/config"
	"github.com/cfi/selfservice/internal/identity"
	"github.com/cfi/selfservice/internal/model"
)

// ---------- Catalogue ----------

func testCatalogue(t *testing.T) *config.Catalogue {
	t.Helper()
	cat, err := config.NewCatalogue([]model.Environment{
		{Name: "Test", URLSecret: model.SecretRef{Name: "dea-urls", Key: "test"}, Rank: 0},
		{Name: "Development", URLSecret: model.SecretRef{Name: "dea-urls", Key: "dev"}, Rank: 1},
		{Name: "Production", URLSecret: model.SecretRef{Name: "dea-urls", Key: "prod"}, Rank: 2},
	})
	require.NoError(t, err)
	return cat
}

// ---------- In-memory access request store ----------

// memStore is a behavioural fake of the DynamoDB store.
type memStore struct {
	mu    sync.Mutex
	items map[string]model.AccessRequest
	order []string
}

func newMemStore(items ...model.AccessRequest) *memStore {
	s := &memStore{items: map[string]model.AccessRequest{}}
	for _, it := range items {
		s.items[it.ID] = it
		s.order = append(s.order, it.ID)
	}
	return s
}

func (s *memStore) Create(_ context.Context, req *model.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[req.ID]; ok {
		return ErrConflict
	}
	s.items[req.ID] = *req
	s.order = append(s.order, req.ID)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*model.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (s *memStore) Decide(_ context.Context, id string, d model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	it.Status = d.Status
	it.AdminName = d.AdminName
	it.AdminComments = d.Comments
	it.AdminResponseDate = model.FormatTimestamp(d.At)
	it.NotificationAlert = model.NotificationOn
	s.items[id] = it
	return nil
}

func (s *memStore) Update(_ context.Context, req *model.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[req.ID]; !ok {
		return ErrNotFound
	}
	it := *req
	it.NotificationAlert = model.NotificationOff
	s.items[req.ID] = it
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memStore) scan(match func(*model.AccessRequest) bool) []model.AccessRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AccessRequest
	for _, id := range s.order {
		it, ok := s.items[id]
		if ok && match(&it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *memStore) Scan(_ context.Context, f model.AccessRequestFilter) ([]model.AccessRequest, error) {
	return s.scan(f.Matches), nil
}

func (s *memStore) ScanApproved(_ context.Context, email string) ([]model.AccessRequest, error) {
	return s.scan(func(a *model.AccessRequest) bool {
		return a.Status == model.StatusApproved && a.Email == email
	}), nil
}

func (s *memStore) ScanNotifications(_ context.Context, email string) ([]model.AccessRequest, error) {
	return s.scan(func(a *model.AccessRequest) bool {
		return a.NotificationAlert == model.NotificationOn && a.Email == email
	}), nil
}

func (s *memStore) ClearNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	it.NotificationAlert = model.NotificationOff
	s.items[id] = it
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

// ---------- Mock access request store ----------

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
	return args.Get(0).(*model.AccessRequest), args.Error(1)
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

// ---------- Mock identity provider ----------

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

// memSecrets is a map-backed SecretStore recording writes.
type memSecrets struct {
	mu     sync.Mutex
	values map[model.SecretRef]string
	puts   []model.SecretRef
	putErr map[model.SecretRef]error
}

func newMemSecrets(values map[model.SecretRef]string) *memSecrets {
	return &memSecrets{values: values}
}

func (m *memSecrets) Get(_ context.Context, ref model.SecretRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[ref]
	if !ok {
		return "", ErrNotFound
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
	m.puts = append(m.puts, ref)
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
