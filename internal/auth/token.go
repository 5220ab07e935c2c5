// Package auth issues and verifies the HMAC-signed bearer tokens used by the API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognized by the platform.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// ErrBadToken is returned when a token fails verification for any reason.
var ErrBadToken = errors.New("auth: invalid token")

// TokenTTL bounds how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

// Claims carries the authenticated identity inside a signed token.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given user and role.
func IssueToken(userID, role, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a raw token and returns its claims.
func ParseToken(raw, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrBadToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrBadToken
	}
	return claims, nil
}

// ValidRole reports whether role is one the platform knows about.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}
