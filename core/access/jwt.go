package access

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/store"
)

// CookieJWT is the cookie which may carry the access token instead of the Authorization header
const CookieJWT = "Carlot-JWT"

// AdminLookup looks up admins by id
type AdminLookup interface {
	GetAdmin(ctx context.Context, id uuid.UUID) (*store.Admin, error)
}

// JwtMiddlewareBuilder is a helper builder for JwtMiddelware
type JwtMiddlewareBuilder struct {
	// Issuer verifies access tokens
	Issuer *TokenIssuer
	// Admins is used to check that the admin of a token still exists
	Admins AdminLookup
	// Cache caches authorizations per token. Optional.
	Cache *AuthorizationCache
}

// bearerToken returns the token from the Authorization header or the Carlot-JWT cookie
func bearerToken(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 0 && bearer != "null" {
		if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
			return bearer[7:]
		}
		return bearer
	}
	if cookie, _ := r.Cookie(CookieJWT); cookie != nil {
		return cookie.Value
	}
	return ""
}

// NewJwtMiddelware returns a middleware handler to validate access tokens.
//
// Requests without a token pass through unauthenticated. This is a final handler
// with regards to the token: it returns http.StatusUnauthorized when a token is
// present but invalid, or when its admin no longer exists.
func NewJwtMiddelware(jmb *JwtMiddlewareBuilder) mux.MiddlewareFunc {
	cache := jmb.Cache
	if cache == nil {
		cache = NewAuthorizationCache()
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if AuthorizationFromContext(r.Context()) != nil { // already authorized?
				h.ServeHTTP(w, r)
				return
			}
			tokenString := bearerToken(r)
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}
			rlog := logger.FromContext(r.Context())

			auth := cache.Read(tokenString)
			if auth == nil {
				claims, err := jmb.Issuer.ParseAccess(tokenString)
				if err != nil {
					rlog.WithError(err).Debugln("rejected access token")
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				admin, err := jmb.Admins.GetAdmin(r.Context(), claims.AdminID())
				if errors.Is(err, store.ErrNotFound) {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				if err != nil {
					rlog.WithError(err).Errorln("Error 4790: cannot look up admin")
					http.Error(w, "Error 4790", http.StatusInternalServerError)
					return
				}
				auth = &Authorization{
					Roles:    []string{RoleAdmin},
					Subject:  admin.ID,
					Username: admin.Username,
				}
				cache.Write(tokenString, auth, claims.ExpiresAt.Time)
			}

			ctx := ContextWithAuthorization(r.Context(), auth)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, auth.Username)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns a middleware which rejects requests without the role. Unauthenticated
// requests get http.StatusUnauthorized, authenticated requests without the role get
// http.StatusForbidden.
func RequireRole(role string) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := AuthorizationFromContext(r.Context())
			if auth == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !auth.HasRole(role) {
				http.Error(w, "missing role "+role, http.StatusForbidden)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}
