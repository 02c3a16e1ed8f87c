// Package auth issues and validates the bearer tokens that identify
// reviewers and administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleReviewer Role = "reviewer" // approves and rejects plans
	RoleAdmin    Role = "admin"    // everything a reviewer does, plus ledger reset
)

func (r Role) Valid() bool { return r == RoleReviewer || r == RoleAdmin }

// Allows reports whether r grants the permissions of required.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

type Claims struct {
	Actor string
	Role  Role
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Actor string `json:"actor"`
	Role  string `json:"role"`
}

var ErrInvalidToken = errors.New("invalid token")

func GenerateToken(actor string, role Role, secret string, expiry time.Duration) (string, error) {
	if actor == "" {
		return "", fmt.Errorf("GenerateToken: actor is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("GenerateToken: unknown role %q", role)
	}
	if secret == "" {
		return "", fmt.Errorf("GenerateToken: secret is required")
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Actor: actor,
		Role:  string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	role := Role(tc.Role)
	if tc.Actor == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: missing actor or role", ErrInvalidToken)
	}

	return &Claims{Actor: tc.Actor, Role: role}, nil
}

// =============================================================================
// CONTEXT
// =============================================================================

type claimsKey struct{}

func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
