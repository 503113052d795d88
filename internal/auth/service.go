package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidEmail is returned when a non-empty email cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidToken is returned when a bearer token is malformed, expired or
	// names a user that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
)

// validate checks input that also arrives outside gin binding, e.g. from the CLI.
var validate = validator.New()

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// CreateAccount validates input and stores a user with a hashed password.
func (s *Service) CreateAccount(ctx context.Context, username, email, password string, role store.Role) (*store.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 || len(password) > maxPasswordBytes {
		return nil, ErrInvalidPassword
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if err := validate.Var(email, "email"); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	if !role.Valid() {
		role = store.RoleUser
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// The lookup above races with concurrent sign-ups; the constraint decides.
	user, err := s.store.CreateUser(ctx, username, email, hashedPassword, role)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Register creates a plain user and returns a JWT token.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	user, err := s.CreateAccount(ctx, username, email, password, store.RoleUser)
	if err != nil {
		return "", err
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Authenticate resolves a bearer token to a principal. The role comes from the
// stored user rather than the token, so role changes and deletions apply to
// tokens that were issued earlier.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (access.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return access.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return access.Principal{}, fmt.Errorf("%w: user %d no longer exists", ErrInvalidToken, claims.UserID)
		}
		return access.Principal{}, fmt.Errorf("load user: %w", err)
	}

	return access.Principal{UserID: user.ID, Role: user.Role}, nil
}
