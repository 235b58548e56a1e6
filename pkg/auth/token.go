package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// DefaultTokenTTL is the session token lifetime used when the configuration
// does not override it.
const DefaultTokenTTL = 24 * time.Hour

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// signToken issues a signed HS256 session token for the user.
func signToken(secret []byte, user *User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOFailure, "failed to sign session token", err)
	}
	return token, nil
}

// parseToken validates a session token and returns the user ID it was
// issued for. Every failure mode (bad signature, wrong algorithm, expiry)
// collapses into Unauthorized.
func parseToken(secret []byte, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Newf(apperrors.CodeUnauthorized, "unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperrors.New(apperrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.Subject == "" {
		return "", apperrors.New(apperrors.CodeUnauthorized, "invalid session token")
	}
	return claims.Subject, nil
}
