// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/client"
	"github.com/relabs-tech/carlot/core/store"
)

func TestAuth(t *testing.T) {
	s := newTestService(t)
	admin, err := access.CreateAdmin(context.Background(), s.store, "alice", "correct horse")
	require.NoError(t, err)

	status, _ := s.clientNoAuth.RawPost("/api/auth/login", loginPayload{Username: "alice", Password: "wrong password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.clientNoAuth.RawPost("/api/auth/login", loginPayload{Username: "bob", Password: "correct horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.clientNoAuth.RawPost("/api/auth/login", map[string]string{"username": "alice"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var pair access.TokenPair
	_, err = s.clientNoAuth.RawPost("/api/auth/login", loginPayload{Username: "alice", Password: "correct horse"}, &pair)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int(s.issuer.AccessTTL.Seconds()), pair.ExpiresIn)

	// the access token opens the back office
	tokenClient := s.clientNoAuth.WithToken(pair.AccessToken)
	var me store.Admin
	_, err = tokenClient.RawGet("/api/auth/me", &me)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, me.ID)
	assert.Equal(t, "alice", me.Username)
	_, err = tokenClient.RawPost("/api/admin/brands", brandPayload{Name: "Skoda"}, nil)
	assert.NoError(t, err)

	status, _ = s.clientNoAuth.RawGet("/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.clientNoAuth.WithToken("garbage").RawGet("/api/admin/statistics", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.clientNoAuth.WithToken("garbage").RawGet("/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = s.clientNoAuth.WithToken("garbage").RawGet("/api/brands", nil)
	assert.Equal(t, http.StatusOK, status, "public routes ignore the token")
	status, _ = s.clientNoAuth.WithToken(pair.RefreshToken).RawGet("/api/admin/statistics", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "a refresh token is no access token")

	// refresh through the body
	var refreshed accessTokenResponse
	_, err = s.clientNoAuth.RawPost("/api/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, &refreshed)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "Bearer", refreshed.TokenType)
	_, err = s.clientNoAuth.WithToken(refreshed.AccessToken).RawGet("/api/admin/statistics", nil)
	assert.NoError(t, err)

	status, _ = s.clientNoAuth.RawPost("/api/auth/refresh", map[string]string{"refresh_token": pair.AccessToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "an access token is no refresh token")
	status, _ = s.clientNoAuth.RawPost("/api/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuth_Cookies(t *testing.T) {
	s := newTestService(t)
	_, err := access.CreateAdmin(context.Background(), s.store, "alice", "correct horse")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"username":"alice","password":"correct horse"}`))
	s.router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieRefresh, cookie.Name)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.AddCookie(cookie)
	s.router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")

	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.AddCookie(cookie)
	s.router.ServeHTTP(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieRefresh, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuth_RefreshWithExpiredAccessToken(t *testing.T) {
	s := newTestService(t)
	admin, err := access.CreateAdmin(context.Background(), s.store, "alice", "correct horse")
	require.NoError(t, err)
	pair, err := s.issuer.IssuePair(admin)
	require.NoError(t, err)

	past := *s.issuer
	past.AccessTTL = -time.Minute
	expired, err := past.IssueAccess(admin)
	require.NoError(t, err)

	status, _ := s.clientNoAuth.WithToken(expired).RawGet("/api/admin/statistics", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	t.Run("bearer", func(t *testing.T) {
		var refreshed accessTokenResponse
		_, err := s.clientNoAuth.WithToken(expired).RawPost("/api/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, &refreshed)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
		_, err = s.clientNoAuth.WithToken(refreshed.AccessToken).RawGet("/api/admin/statistics", nil)
		assert.NoError(t, err)
	})

	t.Run("cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: access.CookieJWT, Value: expired})
		r.AddCookie(&http.Cookie{Name: CookieRefresh, Value: pair.RefreshToken})
		s.router.ServeHTTP(rec, r)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "access_token")
	})

	t.Run("login", func(t *testing.T) {
		status, _ := s.clientNoAuth.WithToken(expired).RawPost("/api/auth/login", loginPayload{Username: "alice", Password: "correct horse"}, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestAuth_RateLimited(t *testing.T) {
	s := newTestService(t, func(b *Builder) {
		b.LoginRate = 0.001
		b.LoginBurst = 1
	})
	cl := client.NewWithRouter(s.router)
	status, _ := cl.RawPost("/api/auth/login", loginPayload{Username: "alice", Password: "whatever1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"username":"alice","password":"whatever1"}`))
	r.RemoteAddr = ""
	s.router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
