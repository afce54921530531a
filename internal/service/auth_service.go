// Package service holds application services that sit between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/aidesk-io/aidesk/internal/models"
	"github.com/aidesk-io/aidesk/internal/repository"
)

// ErrInvalidCredentials is returned for a bad username or password. The
// two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

const defaultTokenTTL = 8 * time.Hour

// AuthService authenticates technicians and issues JWT access tokens.
type AuthService struct {
	technicians repository.TechnicianRepository
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl != 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewAuthService creates an authentication service.
func NewAuthService(technicians repository.TechnicianRepository, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		technicians: technicians,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies a technician's credentials and returns the technician
// with a signed access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Technician, string, error) {
	tech, err := s.technicians.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a hash comparison so a missing user costs the same
			// as a wrong password.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000u"), []byte(password))
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tech.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(tech)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return tech, token, nil
}

// ValidateToken parses an access token and returns the technician
// identity embedded in it.
func (s *AuthService) ValidateToken(tokenString string) (*models.Technician, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return nil, errors.New("missing subject in token")
	}
	username, _ := claims["username"].(string)
	name, _ := claims["name"].(string)

	return &models.Technician{ID: id, Username: username, Name: name}, nil
}

func (s *AuthService) generateToken(tech *models.Technician) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      tech.ID,
		"username": tech.Username,
		"name":     tech.Name,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Register creates a technician account with a bcrypt password hash.
func (s *AuthService) Register(ctx context.Context, username, password, name, email string) (*models.Technician, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.technicians.Create(ctx, username, string(hash), name, email)
}
