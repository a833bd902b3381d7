// Package auth provides registration, login, and token services.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/tempus/internal/models"
)

// Claims represents the JWT claims for access tokens. The tenant and role
// travel inside the token so every request is self-contained: no session
// store and no authorization round-trip per request.
type Claims struct {
	jwt.RegisteredClaims
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	TenantID string      `json:"tenantId"`
	Role     models.Role `json:"role"`
}

// MissingClaimError reports a signed, unexpired token that lacks one of the
// required identity claims. It is distinct from signature and expiry
// failures so callers can tell malformed tokens from tampered ones.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("missing required claim: %s", e.Claim)
}

// JWTConfig is the process-wide token configuration, injected at startup.
// The secret's lifetime equals the process lifetime and is never mutated.
type JWTConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "tempus"
	}
	return &JWTService{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: issuer,
	}
}

// GenerateToken creates a signed access token carrying the user's identity,
// tenant, and role.
func (s *JWTService) GenerateToken(user *models.User, tenantID string, role models.Role) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:    user.Email,
		Name:     user.Name,
		TenantID: tenantID,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies signature, issuer, and expiry, then checks that the
// identity claims are all present. The service never repairs a malformed
// token; every failure path rejects.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if claims.Issuer != s.issuer {
		return nil, errors.New("invalid issuer")
	}

	switch {
	case claims.Email == "":
		return nil, &MissingClaimError{Claim: "email"}
	case claims.TenantID == "":
		return nil, &MissingClaimError{Claim: "tenantId"}
	case claims.Role == "":
		return nil, &MissingClaimError{Claim: "role"}
	}

	return claims, nil
}

// AuthenticatedUser materializes the identity carried by validated claims.
func (c *Claims) AuthenticatedUser() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		UserID:   c.Subject,
		TenantID: c.TenantID,
		Email:    c.Email,
		Role:     c.Role,
	}
}

// TTL returns the token time-to-live duration.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// TTLSeconds returns the token TTL in seconds.
func (s *JWTService) TTLSeconds() int {
	return int(s.ttl.Seconds())
}
