package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserFinder interface {
	FindActiveUserByEmail(ctx context.Context, email string) (*AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Service struct {
	users  UserFinder
	secret string
	ttl    time.Duration
}

func NewService(users UserFinder, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Login checks the password and issues a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if s.users == nil {
		return "", errors.New("user store unavailable")
	}
	user, err := s.users.FindActiveUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", err
	}
	if user == nil || user.Password == "" {
		return "", ErrInvalidCredentials
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := GenerateToken(s.secret, Claims{UserID: user.ID, RoleName: user.RoleName}, s.ttl)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("last login update failed", "err", err)
	}
	return token, nil
}
