package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", RoleName: RoleComplianceOfficer}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.UserID != claims.UserID || parsed.RoleName != claims.RoleName {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	if parsed.Issuer != TokenIssuer || parsed.Subject != "u1" || parsed.ID == "" {
		t.Fatalf("registered claims not set: %+v", parsed.RegisteredClaims)
	}

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsForeignIssuerAndExpiry(t *testing.T) {
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   "u1",
		RoleName: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken("secret", signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer rejection, got %v", err)
	}

	expired, err := GenerateToken("secret", Claims{UserID: "u1", RoleName: RoleAdmin}, -time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry rejection, got %v", err)
	}

	if _, err := GenerateToken("secret", Claims{UserID: "u1"}, time.Hour); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected missing role rejection, got %v", err)
	}
}

func TestStaticPermissions(t *testing.T) {
	perms := StaticPermissions{}
	cases := []struct {
		role, perm string
		want       bool
	}{
		{RoleAdmin, PermComplianceRetention, true},
		{RoleComplianceOfficer, PermComplianceRequests, true},
		{RoleComplianceOfficer, PermComplianceRetention, false},
		{RoleAnalyst, PermComplianceRead, true},
		{RoleAnalyst, PermComplianceManage, false},
		{"unknown", PermComplianceRead, false},
	}
	for _, tc := range cases {
		got, err := perms.HasPermission(context.Background(), tc.role, tc.perm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.perm, tc.want, got)
		}
	}
}

type stubUsers struct {
	user      *AuthUser
	lastLogin string
}

func (s *stubUsers) FindActiveUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	if s.user == nil || email != "dpo@example.com" {
		return nil, nil
	}
	return s.user, nil
}

func (s *stubUsers) UpdateLastLogin(ctx context.Context, userID string) error {
	s.lastLogin = userID
	return nil
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	users := &stubUsers{user: &AuthUser{ID: "u1", RoleName: RoleAdmin, Password: hash}}
	svc := NewService(users, "secret", time.Hour)

	token, err := svc.Login(context.Background(), " DPO@example.com ", "correct horse")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "u1" || claims.RoleName != RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if users.lastLogin != "u1" {
		t.Fatal("expected last login update")
	}

	if _, err := svc.Login(context.Background(), "dpo@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}
