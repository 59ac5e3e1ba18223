// Package auth resolves the current user from a bearer token. The
// rest of the server treats it as an opaque "get current user" call.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User types.
const (
	UserTypeRegular = "regular"
	UserTypeGuest   = "guest"
)

var ErrInvalidToken = errors.New("invalid session token")

// Session identifies the authenticated user for one request.
type Session struct {
	UserID string
	Type   string
}

// Authenticator verifies session tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
}

// New creates an authenticator with the given signing secret.
func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

type sessionClaims struct {
	UserType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken mints a session token for a user. Used by the auth
// front-end and by tests.
func (a *Authenticator) IssueToken(userID, userType string, ttl time.Duration) (string, error) {
	if userType == "" {
		userType = UserTypeRegular
	}
	claims := sessionClaims{
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a session token and returns the session it encodes.
func (a *Authenticator) Verify(token string) (*Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	userType := claims.UserType
	if userType == "" {
		userType = UserTypeRegular
	}
	return &Session{UserID: claims.Subject, Type: userType}, nil
}
