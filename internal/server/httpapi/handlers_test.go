package httpapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/dbx"
	"github.com/medpoint/authsvc/internal/logging"
	"github.com/medpoint/authsvc/internal/server/config"
	"github.com/medpoint/authsvc/internal/server/keys"
	"github.com/medpoint/authsvc/internal/server/models"
	"github.com/medpoint/authsvc/internal/server/repositories/users"
	"github.com/medpoint/authsvc/internal/server/services"
	"github.com/medpoint/authsvc/internal/server/token"
)

// --- fakes ---

type fakeUsersRepo struct {
	byUsername map[string]*models.User
	byEmail    map[string]*models.User
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	repo users.Repository
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return f.repo }

type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (f *fakeDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

// --- setup ---

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

type testEnv struct {
	server *Server
	codec  *token.Codec
}

func newTestEnv(t *testing.T, cookieSecure bool) *testEnv {
	t.Helper()

	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	codec := token.NewCodec(&keys.Pair{Private: testKey, Public: &testKey.PublicKey})

	hash, err := bcrypt.GenerateFromPassword([]byte("securepassword"), bcrypt.MinCost)
	require.NoError(t, err)

	doctor := &models.User{
		ID:           "u-doctor",
		Username:     "doctor",
		Email:        "doctor@example.com",
		PasswordHash: string(hash),
	}
	repo := &fakeUsersRepo{
		byUsername: map[string]*models.User{"doctor": doctor},
		byEmail:    map[string]*models.User{"doctor@example.com": doctor},
	}

	cfg := &config.Config{
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		CookieSecure:                 cookieSecure,
	}

	auth := services.NewAuthService(nil, &fakeRepoManager{repo: repo}, codec,
		&fakeDenylist{revoked: make(map[string]bool)}, cfg)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return &testEnv{server: NewServer(logger, auth, cfg), codec: codec}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, credentials, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"credentials": credentials, "password": password})
	require.NoError(t, err)
	return e.do(t, http.MethodPost, "/api/v1/auth/login", body, nil)
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

// --- tests ---

func TestLogin_SeededUser(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.login(t, "doctor@example.com", "securepassword")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, accessToken(t, w))

	cookie := refreshCookie(w)
	require.NotNil(t, cookie, "login must set a refresh cookie")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
	assert.Positive(t, cookie.MaxAge)
}

func TestLogin_SecureCookieFlag(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.login(t, "doctor", "securepassword")

	require.Equal(t, http.StatusOK, w.Code)
	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.login(t, "doctor@example.com", "wrongpassword")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, refreshCookie(w), "no cookie on failed login")
}

func TestLogin_NoEnumeration(t *testing.T) {
	env := newTestEnv(t, false)

	wrongPass := env.login(t, "doctor@example.com", "wrongpassword")
	unknown := env.login(t, "ghost@example.com", "whatever")

	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String(),
		"failure responses must not reveal whether the identifier exists")
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", []byte(`{"credentials":"doctor"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh_RotatesCookie(t *testing.T) {
	env := newTestEnv(t, false)

	loginResp := env.login(t, "doctor", "securepassword")
	require.Equal(t, http.StatusOK, loginResp.Code)
	cookie := refreshCookie(loginResp)
	require.NotNil(t, cookie)

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, accessToken(t, w))

	rotated := refreshCookie(w)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value, "refresh must rotate the refresh token")

	// The redeemed token is revoked; replaying it must fail.
	replay := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestRefresh_MissingCookie(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, false)

	expired, err := env.codec.Mint("u-doctor", token.KindRefresh, -1*time.Minute)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: expired})
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared, "invalid refresh must clear the cookie")
	assert.Negative(t, cleared.MaxAge)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	env := newTestEnv(t, false)

	loginResp := env.login(t, "doctor", "securepassword")
	access := accessToken(t, loginResp)

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: access})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t, false)

	loginResp := env.login(t, "doctor", "securepassword")
	access := accessToken(t, loginResp)
	cookie := refreshCookie(loginResp)
	require.NotNil(t, cookie)

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
		r.AddCookie(cookie)
	})

	require.Equal(t, http.StatusOK, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	// The revoked refresh token can no longer be redeemed.
	replay := env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestLogout_RequiresAccessToken(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_BearerAuth(t *testing.T) {
	env := newTestEnv(t, false)

	loginResp := env.login(t, "doctor", "securepassword")
	access := accessToken(t, loginResp)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u-doctor", resp["user_id"])
}

func TestMe_ExpiredAccessTokenSignalsRefresh(t *testing.T) {
	env := newTestEnv(t, false)

	expired, err := env.codec.Mint("u-doctor", token.KindAccess, -1*time.Minute)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+expired)
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TOKEN_EXPIRED", resp.Code)
}

func TestMe_RefreshTokenRejectedAsAccess(t *testing.T) {
	env := newTestEnv(t, false)

	refresh, err := env.codec.Mint("u-doctor", token.KindRefresh, time.Hour)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+refresh)
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_TOKEN", resp.Code)
}

func TestMe_MissingHeader(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
