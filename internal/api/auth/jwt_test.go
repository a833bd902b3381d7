package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/good-yellow-bee/tempus/internal/models"
)

func testJWTService() *JWTService {
	return NewJWTService(JWTConfig{
		Secret: []byte("test-secret-key-32-bytes-long!!"),
		Issuer: "tempus",
		TTL:    15 * time.Minute,
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := testJWTService()

	user := &models.User{
		ID:    "user-123",
		Name:  "Test User",
		Email: "test@example.com",
	}

	token, err := svc.GenerateToken(user, "tenant-456", models.RoleOwner)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.Subject != user.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, want %q", claims.Email, user.Email)
	}
	if claims.TenantID != "tenant-456" {
		t.Errorf("TenantID = %q, want tenant-456", claims.TenantID)
	}
	if claims.Role != models.RoleOwner {
		t.Errorf("Role = %q, want OWNER", claims.Role)
	}

	authUser := claims.AuthenticatedUser()
	if authUser.UserID != user.ID || authUser.TenantID != "tenant-456" {
		t.Errorf("AuthenticatedUser = %+v", authUser)
	}
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := testJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"wrong-segments", "a.b"},
		{"invalid-signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1aWQiOiJ0ZXN0In0.invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tc.token)
			if err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestJWTService_DifferentSecret(t *testing.T) {
	svc1 := NewJWTService(JWTConfig{Secret: []byte("secret-one-32-bytes-long!!!!!!!"), TTL: time.Minute})
	svc2 := NewJWTService(JWTConfig{Secret: []byte("secret-two-32-bytes-long!!!!!!!"), TTL: time.Minute})

	user := &models.User{ID: "user-123", Email: "test@example.com"}

	token, err := svc1.GenerateToken(user, "tenant-1", models.RoleMember)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService(JWTConfig{
		Secret: []byte("test-secret-key-32-bytes-long!!"),
		TTL:    -time.Minute,
	})

	user := &models.User{ID: "user-123", Email: "test@example.com"}
	token, err := svc.GenerateToken(user, "tenant-1", models.RoleMember)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestJWTService_WrongIssuer(t *testing.T) {
	svc := testJWTService()
	other := NewJWTService(JWTConfig{
		Secret: []byte("test-secret-key-32-bytes-long!!"),
		Issuer: "someone-else",
		TTL:    time.Minute,
	})

	user := &models.User{ID: "user-123", Email: "test@example.com"}
	token, err := other.GenerateToken(user, "tenant-1", models.RoleMember)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("token with a foreign issuer must be rejected")
	}
}

// signToken builds a token with arbitrary claims using the test secret.
func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-key-32-bytes-long!!"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTService_MissingClaims(t *testing.T) {
	svc := testJWTService()

	base := func() *Claims {
		now := time.Now()
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "tempus",
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
			Email:    "test@example.com",
			TenantID: "tenant-1",
			Role:     models.RoleMember,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Claims)
		claim  string
	}{
		{"no-email", func(c *Claims) { c.Email = "" }, "email"},
		{"no-tenant", func(c *Claims) { c.TenantID = "" }, "tenantId"},
		{"no-role", func(c *Claims) { c.Role = "" }, "role"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims := base()
			tc.mutate(claims)

			_, err := svc.ValidateToken(signToken(t, claims))
			var missing *MissingClaimError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingClaimError, got %v", err)
			}
			if missing.Claim != tc.claim {
				t.Errorf("claim = %q, want %q", missing.Claim, tc.claim)
			}
		})
	}
}

func TestJWTService_TTLSeconds(t *testing.T) {
	svc := testJWTService()
	if svc.TTLSeconds() != 900 {
		t.Errorf("TTLSeconds = %d, want 900", svc.TTLSeconds())
	}
}
