// Package auth issues JWTs for platform accounts and implements the
// authorization gate consulted by governance and tickets.
package auth

import (
	"context"
	"time"

	"mercado/internal/domain"
	"mercado/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the account lookup surface auth needs.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	HasRole(ctx context.Context, userID uuid.UUID, rol domain.Rol) (bool, error)
}

// Service handles login and token issuance.
type Service struct {
	repo      Repository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewService(repo Repository, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{repo: repo, jwtSecret: jwtSecret, jwtExpiry: jwtExpiry}
}

// LoginRequest captures credentials for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UserID      uuid.UUID  `json:"user_id"`
	Rol         domain.Rol `json:"rol"`
}

// Login verifies credentials and returns a signed token. Credential
// failures are indistinguishable on purpose.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if isErr(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	return s.issueToken(user)
}

func (s *Service) issueToken(user *domain.User) (*TokenResponse, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"rol":     string(user.Rol),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}
	return &TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Rol:         user.Rol,
	}, nil
}

// HashPassword produces the stored bcrypt hash. Used by seeding.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// RoleGate checks roles against the users table. It backs the
// authorization gate of both governance and tickets.
type RoleGate struct {
	repo Repository
}

func NewRoleGate(repo Repository) *RoleGate {
	return &RoleGate{repo: repo}
}

func (g *RoleGate) HasRole(ctx context.Context, userID uuid.UUID, rol domain.Rol) (bool, error) {
	return g.repo.HasRole(ctx, userID, rol)
}
