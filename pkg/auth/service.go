package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillhq/quill/pkg/observability"
)

// RegisterRequest carries the fields needed to create an identity
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// Service orchestrates registration and login over a UserStore, a
// PasswordHasher, and a TokenService
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	logger *observability.Logger
}

// NewService creates a credential service
func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenService, logger *observability.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a new identity. Fails with ErrDuplicateEmail if the
// email is already registered; failure leaves no partial state behind.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleUser
	}

	user := &User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithRequest(ctx).WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login verifies credentials and issues a bearer token. Returns
// ErrUserNotFound when the email is unknown and ErrInvalidCredentials when
// the password does not verify; the HTTP layer collapses both into one
// client-facing message.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.WithRequest(ctx).Debug("login attempt for unknown email")
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.WithRequest(ctx).WithField("user_id", user.ID).Debug("login attempt with wrong password")
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.WithRequest(ctx).WithField("user_id", user.ID).Info("user logged in")
	return token, user, nil
}
