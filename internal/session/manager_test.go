package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfi/selfservice/internal/model"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, testSecret, time.Hour, true), store
}

// requestWithCookies replays the cookies set on rec into a new request.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/home/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m, _ := newTestManager()

	s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, model.StateAnonymous, s.State)
	assert.Len(t, s.ID, 32)
}

func TestManager_SaveAndLoad(t *testing.T) {
	m, _ := newTestManager()

	s := m.New()
	s.State = model.StateAuthenticated
	s.Email = "jane@example.com"
	s.AccessToken = "token"

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), s))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.NotContains(t, cookies[0].Value, "jane", "cookie carries only the signed session id")

	loaded, err := m.Load(requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.True(t, loaded.Authenticated())
	assert.Equal(t, "jane@example.com", loaded.Email)
}

func TestManager_TamperedCookie(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()
	s.State = model.StateAuthenticated

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), s))

	other := NewManager(NewMemoryStore(), []byte("another-secret-another-secret-xx"), time.Hour, true)
	forged, err := other.sign(s.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/home/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: forged})

	loaded, err := m.Load(r)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, loaded.ID)
	assert.Equal(t, model.StateAnonymous, loaded.State)
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	m, _ := newTestManager()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "abc"})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.parse(raw)
	assert.Error(t, err)
}

func TestManager_ExpiredToken(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), s))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	loaded, err := m.Load(requestWithCookies(rec))
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, loaded.ID)
}

func TestManager_Destroy(t *testing.T) {
	m, store := newTestManager()
	s := m.New()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, m.Save(rec, r, s))

	out := httptest.NewRecorder()
	require.NoError(t, m.Destroy(out, r, s))

	cookies := out.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0)

	_, err := store.Load(context.Background(), s.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Load(context.Context, string) (*Session, error) {
	return nil, errors.New("redis down")
}

func TestManager_StoreFailure(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), s))

	m.store = &failingStore{}
	_, err := m.Load(requestWithCookies(rec))
	assert.Error(t, err)
}

func TestManager_SaveRotatesRenewedSession(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	s := m.New()
	first := httptest.NewRecorder()
	require.NoError(t, m.Save(first, httptest.NewRequest(http.MethodGet, "/", nil), s))
	oldID := s.ID

	s.State = model.StateAuthenticated
	s.AccessToken = "token"
	s.Renew()
	second := httptest.NewRecorder()
	require.NoError(t, m.Save(second, requestWithCookies(first), s))

	assert.NotEqual(t, oldID, s.ID)
	assert.False(t, s.Renewing())
	_, err := store.Load(ctx, oldID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// The old cookie no longer names a session; the new one does.
	stale, err := m.Load(requestWithCookies(first))
	require.NoError(t, err)
	assert.False(t, stale.Authenticated())
	assert.NotEqual(t, oldID, stale.ID)

	fresh, err := m.Load(requestWithCookies(second))
	require.NoError(t, err)
	assert.Equal(t, s.ID, fresh.ID)
	assert.True(t, fresh.Authenticated())
}

func TestManager_SaveKeepsIDWithoutRenew(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()
	id := s.ID

	require.NoError(t, m.Save(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), s))
	require.NoError(t, m.Save(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), s))
	assert.Equal(t, id, s.ID)
}
