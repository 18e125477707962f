package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"clariox/internal/auth/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type Repository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type AuthService struct {
	Repo     Repository
	Secret   []byte
	TokenTTL time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

func NewAuthService(repo Repository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{Repo: repo, Secret: []byte(secret), TokenTTL: ttl, Now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, creds model.Credentials) (*model.TokenResponse, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, err
	}
	if len(creds.Password) < minPasswordLength {
		return nil, model.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.IssueToken(u)
}

func (s *AuthService) Login(ctx context.Context, creds model.Credentials) (*model.TokenResponse, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return s.IssueToken(u)
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *AuthService) IssueToken(u *model.User) (*model.TokenResponse, error) {
	now := s.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.TokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &model.TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.ErrInvalidEmail
	}
	return email, nil
}
