package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

// CookieRefresh is the HttpOnly cookie carrying the refresh token
const CookieRefresh = "Carlot-Refresh"

// refreshCookiePath restricts the refresh cookie to the authentication routes
const refreshCookiePath = "/api/auth"

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *API) handleAuth(public *mux.Router) {
	logger.Default().Debugln("authentication")
	handle(public, "/auth/login", a.limit(a.loginLimiter, a.login), http.MethodPost)
	handle(public, "/auth/refresh", a.limit(a.loginLimiter, a.refresh), http.MethodPost)
	handle(public, "/auth/logout", a.logout, http.MethodPost)
	handle(public, "/auth/me", a.authenticate(http.HandlerFunc(a.me)).ServeHTTP, http.MethodGet)
}

func (a *API) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     CookieRefresh,
		Value:    token,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := a.readBody(r, schema.LoginID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4771)
		return
	}
	rlog := logger.FromContext(r.Context())
	admin, err := access.Authenticate(r.Context(), a.store, payload.Username, payload.Password)
	if errors.Is(err, access.ErrBadCredentials) {
		rlog.Infoln("failed login for", payload.Username)
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4772)
		return
	}
	pair, err := a.issuer.IssuePair(admin)
	if err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4773)
		return
	}
	rlog.Infoln("admin", admin.Username, "logged in")
	a.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, r, http.StatusOK, pair)
}

// refreshToken returns the refresh token from the cookie or from the body {"refresh_token": ...}
func refreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieRefresh); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(body) == 0 {
		return ""
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.RefreshToken
}

// refresh issues a new access token for a valid refresh token. The refresh token stays
// valid until it expires.
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		http.Error(w, "missing refresh token", http.StatusUnauthorized)
		return
	}
	claims, err := a.issuer.ParseRefresh(token)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Debugln("rejected refresh token")
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	admin, err := a.store.GetAdmin(r.Context(), claims.AdminID())
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}
	if err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4774)
		return
	}
	accessToken, err := a.issuer.IssueAccess(admin)
	if err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4775)
		return
	}
	writeJSON(w, r, http.StatusOK, accessTokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(a.issuer.AccessTTL.Seconds()),
	})
}

// logout clears the refresh cookie. Issued tokens stay valid until they expire.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.setRefreshCookie(w, "", time.Time{})
	w.WriteHeader(http.StatusNoContent)
}

// me returns the authenticated admin
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	auth := access.AuthorizationFromContext(r.Context())
	if auth == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if !auth.HasRole(access.RoleAdmin) {
		http.Error(w, "missing role "+access.RoleAdmin, http.StatusForbidden)
		return
	}
	admin, err := a.store.GetAdmin(r.Context(), auth.Subject)
	if err != nil {
		respondWithError(w, r, err, core.ResourceAdmin, 4776)
		return
	}
	writeJSON(w, r, http.StatusOK, admin)
}
