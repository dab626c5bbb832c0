// Package auth guards the summarization routes with HS256 bearer tokens.
// Operators mint tokens with the CLI; the service only validates them.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret is empty")
)

// Claims carried by nepsum tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs a token for subject that expires after ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses an "Authorization" header value and returns the
// token's subject.
func ValidateToken(header string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return "", ErrMissingToken
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("missing sub claim"))
	}
	return claims.Subject, nil
}
