package access

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/relabs-tech/carlot/core/store"
)

// token types, carried in the "typ" claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// default token lifetimes
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for tokens which are malformed, expired, badly signed,
// of the wrong type or from another issuer
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims of carlot tokens. The subject is the admin id.
type Claims struct {
	Type     string `json:"typ"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful login
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int       `json:"expires_in"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenIssuer issues and verifies HS256 signed access and refresh tokens.
// Access and refresh tokens are signed with different secrets.
type TokenIssuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// now is replaced in tests
	now func() time.Time
}

// NewTokenIssuer returns a token issuer with default lifetimes
func NewTokenIssuer(accessSecret, refreshSecret, issuer string) *TokenIssuer {
	return &TokenIssuer{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		Issuer:        issuer,
		AccessTTL:     DefaultAccessTTL,
		RefreshTTL:    DefaultRefreshTTL,
	}
}

func (ti *TokenIssuer) timeNow() time.Time {
	if ti.now != nil {
		return ti.now()
	}
	return time.Now()
}

func (ti *TokenIssuer) sign(admin *store.Admin, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := ti.timeNow()
	expires := now.Add(ttl)
	claims := Claims{
		Type:     typ,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.Issuer,
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot sign %s token: %w", typ, err)
	}
	return token, expires, nil
}

// IssueAccess returns a new access token for admin
func (ti *TokenIssuer) IssueAccess(admin *store.Admin) (string, error) {
	token, _, err := ti.sign(admin, TokenTypeAccess, ti.AccessSecret, ti.AccessTTL)
	return token, err
}

// IssuePair returns a new access token and a new refresh token for admin
func (ti *TokenIssuer) IssuePair(admin *store.Admin) (*TokenPair, error) {
	access, err := ti.IssueAccess(admin)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpires, err := ti.sign(admin, TokenTypeRefresh, ti.RefreshSecret, ti.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(ti.AccessTTL.Seconds()),
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// ParseAccess verifies an access token and returns its claims
func (ti *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return ti.parse(token, TokenTypeAccess, ti.AccessSecret)
}

// ParseRefresh verifies a refresh token and returns its claims
func (ti *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return ti.parse(token, TokenTypeRefresh, ti.RefreshSecret)
}

func (ti *TokenIssuer) parse(tokenString, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, typ, claims.Type)
	}
	if claims.Issuer != ti.Issuer {
		return nil, fmt.Errorf("%w: wrong issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if !claims.VerifyExpiresAt(ti.timeNow(), true) {
		return nil, fmt.Errorf("%w: token has expired", ErrInvalidToken)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return claims, nil
}

// AdminID returns the admin id of the token subject
func (c *Claims) AdminID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}
