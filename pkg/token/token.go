// Package token issues and verifies the signed session tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "roomchat"

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrUnrecognizedToken = errors.New("unrecognized token")
)

// SessionClaims binds a token to a chat session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func newClaims(sessionID string, now, exp time.Time) *SessionClaims {
	return &SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
}

// New signs a token for sessionID valid for ttl.
func New(sessionID string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(sessionID, now, exp))

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", exp, err
	}
	return signed, exp, nil
}

// Verify parses token and returns its claims.
func Verify(token string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithIssuer(issuer))

	switch {
	case err == nil && parsed.Valid:
		if claims.SessionID == "" {
			return nil, ErrTokenInvalid
		}
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrUnrecognizedToken
	}
}
