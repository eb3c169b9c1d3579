package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/pkg/observability"
)

type fakeUserStore struct {
	byEmail map[string]*User
	byID    map[string]*User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

func (s *fakeUserStore) Create(ctx context.Context, user *User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func newTestService(store UserStore) *Service {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	hasher := NewPasswordHasher(4) // min cost keeps tests fast
	tokens := NewTokenService([]byte("test-secret"), time.Hour)
	return NewService(store, hasher, tokens, logger)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := newTestService(store)

	user, err := svc.Register(ctx, RegisterRequest{
		Email:     "a@x.com",
		Password:  "secret123",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterRequest{Email: "a@x.com", Password: "other"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("explicit role kept", func(t *testing.T) {
		admin, err := svc.Register(ctx, RegisterRequest{
			Email:    "admin@x.com",
			Password: "secret123",
			Role:     RoleAdmin,
		})
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, admin.Role)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := newTestService(store)

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:    "a@x.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	t.Run("success issues a valid token", func(t *testing.T) {
		token, user, err := svc.Login(ctx, "a@x.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		claims, err := svc.tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, claims.Subject)
		assert.Equal(t, "a@x.com", claims.Email)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody@x.com", "secret123")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "a@x.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
