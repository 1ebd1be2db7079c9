/*
Package access provides authentication and authorization for the back office.

An Authorization is added to the request context by the JWT middleware when the
request carries a valid access token, either as "Authorization: Bearer" header
or as "Carlot-JWT" cookie. Handlers retrieve it with

	auth := access.AuthorizationFromContext(ctx)

and routes are protected with RequireRole.
*/
package access

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the role of back office users
const RoleAdmin = "admin"

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

const (
	contextKeyAuthorization contextKey = "_authorization_"
)

// Authorization is a context object which stores authorization information
// for an authenticated admin
type Authorization struct {
	Roles    []string  `json:"roles"`
	Subject  uuid.UUID `json:"subject"`
	Username string    `json:"username"`
}

// HasRole returns true if the authorization contains the requested role;
// otherwise it returns false.
func (a *Authorization) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, hasRole := range a.Roles {
		if role == hasRole {
			return true
		}
	}
	return false
}

// ContextWithAuthorization returns a new context with this authorization added to it
func ContextWithAuthorization(ctx context.Context, auth *Authorization) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, auth)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// AuthorizationCache is an in-memory cache for authorizations. It is used by
// jwt middleware to cache authorization objects for access tokens, so that the
// admin is looked up only once per token. Entries expire with their token.
type AuthorizationCache struct {
	mutex sync.RWMutex
	cache map[string]cachedAuthorization
}

type cachedAuthorization struct {
	auth    *Authorization
	expires time.Time
}

// NewAuthorizationCache creates a new authorization cache
func NewAuthorizationCache() *AuthorizationCache {
	return &AuthorizationCache{cache: make(map[string]cachedAuthorization)}
}

// Read returns an authorization from the cache, or nil if there is none or it has expired.
// This function is go-routine safe
func (a *AuthorizationCache) Read(token string) *Authorization {
	a.mutex.RLock()
	entry, ok := a.cache[token]
	a.mutex.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(entry.expires) {
		a.mutex.Lock()
		delete(a.cache, token)
		a.mutex.Unlock()
		return nil
	}
	return entry.auth
}

// Write stores an authorization for token until expires. Expired entries are purged on write.
// This function is go-routine safe
func (a *AuthorizationCache) Write(token string, auth *Authorization, expires time.Time) {
	now := time.Now()
	a.mutex.Lock()
	defer a.mutex.Unlock()
	for t, entry := range a.cache {
		if now.After(entry.expires) {
			delete(a.cache, t)
		}
	}
	a.cache[token] = cachedAuthorization{auth: auth, expires: expires}
}

// Len returns the number of cached authorizations
func (a *AuthorizationCache) Len() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return len(a.cache)
}
