package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/ytfetch/internal/shared"
)

// Claims holds the registered claims and the session's user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// IssueToken signs a session token for userID valid for ttl.
func IssueToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user ID is required", shared.ErrInvalidInput)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a session token and returns its user ID.
//
// Any invalid, expired, or tampered token is [shared.ErrNotAuthenticated].
func ParseToken(tokenString string, secret []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: session expired", shared.ErrNotAuthenticated)
		}
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", shared.ErrNotAuthenticated
	}
	return claims.UserID, nil
}
