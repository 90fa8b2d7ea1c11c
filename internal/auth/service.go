package auth

import (
	"context"
	"strings"
	"time"

	"dynatable/internal/domain"
	"dynatable/internal/token"
)

// TokenPair is the login/refresh response: a short-lived access token and
// a longer-lived refresh token, both HS256 signed.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service registers users and exchanges credentials for token pairs.
type Service struct {
	users      *UserRepo
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates an auth service signing with the given symmetric
// secret. TTLs of zero fall back to 1h access / 720h refresh.
func NewService(users *UserRepo, secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL == 0 {
		accessTTL = time.Hour
	}
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		users:      users,
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a user after checking the password confirmation.
func (s *Service) Register(ctx context.Context, email, password, confirm string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrValidation("a valid email is required")
	}
	if len(password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}
	if password != confirm {
		return nil, domain.ErrValidation("password and confirmation do not match")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, email, hash)
}

// Login verifies credentials and issues a token pair. Invalid email and
// invalid password produce the same error, so callers cannot probe which
// subjects exist.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrAccessDenied("invalid credentials")
	}
	if !VerifyPassword(user.Password, password) {
		return nil, domain.ErrAccessDenied("invalid credentials")
	}
	return s.issuePair(user.ID)
}

// Refresh verifies a refresh token and issues a fresh pair for the same
// subject.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := token.Verify(refreshToken, s.secret, s.issuer, s.audience)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, claims.Subject); err != nil {
		return nil, domain.ErrAccessDenied("invalid credentials")
	}
	return s.issuePair(claims.Subject)
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenString string) (token.Claims, error) {
	return token.Verify(tokenString, s.secret, s.issuer, s.audience)
}

// Me returns the user behind an authenticated subject.
func (s *Service) Me(ctx context.Context, subject string) (*User, error) {
	return s.users.GetByID(ctx, subject)
}

func (s *Service) issuePair(subject string) (*TokenPair, error) {
	access, err := token.Issue(subject, s.issuer, s.audience, s.accessTTL).Sign(s.secret)
	if err != nil {
		return nil, err
	}
	refresh, err := token.Issue(subject, s.issuer, s.audience, s.refreshTTL).Sign(s.secret)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
