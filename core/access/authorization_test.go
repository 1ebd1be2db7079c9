package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/carlot/core/store"
	"github.com/relabs-tech/carlot/core/store/memory"
)

func TestMain(m *testing.M) {
	PasswordCost = bcrypt.MinCost
	code := m.Run()
	os.Exit(code)
}

func TestAuthorization_HasRole(t *testing.T) {
	var auth *Authorization
	assert.False(t, auth.HasRole(RoleAdmin))

	auth = &Authorization{Roles: []string{"viewer", RoleAdmin}}
	assert.True(t, auth.HasRole(RoleAdmin))
	assert.False(t, auth.HasRole("owner"))
}

func TestAuthorization_Context(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, AuthorizationFromContext(ctx))

	auth := &Authorization{Roles: []string{RoleAdmin}, Subject: uuid.New(), Username: "anna"}
	ctx = ContextWithAuthorization(ctx, auth)
	assert.Equal(t, auth, AuthorizationFromContext(ctx))
}

func TestAuthorizationCache(t *testing.T) {
	cache := NewAuthorizationCache()
	auth := &Authorization{Username: "anna"}

	assert.Nil(t, cache.Read("token"))
	cache.Write("token", auth, time.Now().Add(time.Minute))
	assert.Equal(t, auth, cache.Read("token"))

	cache.Write("old", auth, time.Now().Add(-time.Second))
	assert.Nil(t, cache.Read("old"))
	assert.Equal(t, 1, cache.Len())

	cache.Write("older", auth, time.Now().Add(-time.Second))
	cache.Write("new", auth, time.Now().Add(time.Minute))
	assert.Equal(t, 2, cache.Len(), "expired entries are purged on write")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
	assert.False(t, CheckPassword("not a hash", "correct horse"))
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := CreateAdmin(ctx, s, " ", "long enough")
	assert.Error(t, err)
	_, err = CreateAdmin(ctx, s, "anna", "short")
	assert.Error(t, err)

	admin, err := CreateAdmin(ctx, s, " anna ", "long enough")
	require.NoError(t, err)
	assert.Equal(t, "anna", admin.Username)
	assert.True(t, CheckPassword(admin.PasswordHash, "long enough"))

	_, err = CreateAdmin(ctx, s, "Anna", "long enough")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, EnsureAdmin(ctx, s, "admin", "first password"))
	first, err := s.GetAdminByUsername(ctx, "admin")
	require.NoError(t, err)

	// an existing admin keeps its password
	require.NoError(t, EnsureAdmin(ctx, s, "admin", "second password"))
	second, err := s.GetAdminByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, CheckPassword(second.PasswordHash, "first password"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	created, err := CreateAdmin(ctx, s, "anna", "long enough")
	require.NoError(t, err)

	admin, err := Authenticate(ctx, s, "ANNA", "long enough")
	require.NoError(t, err)
	assert.Equal(t, created.ID, admin.ID)

	_, err = Authenticate(ctx, s, "anna", "wrong password")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = Authenticate(ctx, s, "bert", "long enough")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", "carlot-test")
}

func TestTokenIssuer(t *testing.T) {
	ti := newTestIssuer()
	admin := &store.Admin{ID: uuid.New(), Username: "anna"}

	pair, err := ti.IssuePair(admin)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 900, pair.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(DefaultRefreshTTL), pair.RefreshExpiresAt, time.Minute)

	claims, err := ti.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID())
	assert.Equal(t, "anna", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	claims, err = ti.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID())
	assert.Equal(t, TokenTypeRefresh, claims.Type)

	// tokens are not interchangeable
	_, err = ti.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ti.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.ParseAccess("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	admin := &store.Admin{ID: uuid.New(), Username: "anna"}
	ti := newTestIssuer()

	other := NewTokenIssuer("other-secret", "refresh-secret", "carlot-test")
	token, err := other.IssueAccess(admin)
	require.NoError(t, err)
	_, err = ti.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "bad signature")

	foreign := NewTokenIssuer("access-secret", "refresh-secret", "somebody-else")
	token, err = foreign.IssueAccess(admin)
	require.NoError(t, err)
	_, err = ti.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	past := newTestIssuer()
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err = past.IssueAccess(admin)
	require.NoError(t, err)
	_, err = ti.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func newAuthorizedHandler(t *testing.T, jmb *JwtMiddlewareBuilder) (http.Handler, **Authorization) {
	var seen *Authorization
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AuthorizationFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return NewJwtMiddelware(jmb)(final), &seen
}

func TestJwtMiddleware(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	admin, err := CreateAdmin(ctx, s, "anna", "long enough")
	require.NoError(t, err)
	ti := newTestIssuer()
	token, err := ti.IssueAccess(admin)
	require.NoError(t, err)

	cache := NewAuthorizationCache()
	handler, seen := newAuthorizedHandler(t, &JwtMiddlewareBuilder{Issuer: ti, Admins: s, Cache: cache})

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, *seen)
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, *seen)
		assert.True(t, (*seen).HasRole(RoleAdmin))
		assert.Equal(t, admin.ID, (*seen).Subject)
		assert.Equal(t, "anna", (*seen).Username)
		assert.NotNil(t, cache.Read(token))
	})

	t.Run("cookie", func(t *testing.T) {
		*seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieJWT, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, *seen)
		assert.Equal(t, admin.ID, (*seen).Subject)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown admin", func(t *testing.T) {
		ghost, err := ti.IssueAccess(&store.Admin{ID: uuid.New(), Username: "ghost"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+ghost)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(auth *Authorization) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if auth != nil {
			req = req.WithContext(ContextWithAuthorization(req.Context(), auth))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&Authorization{Roles: []string{"viewer"}}))
	assert.Equal(t, http.StatusNoContent, serve(&Authorization{Roles: []string{RoleAdmin}}))
}
