package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var storeTracer = otel.Tracer("quill/auth/store")

// uniqueViolation is the postgres error code for unique constraint violations
const uniqueViolation = "23505"

// UserStore persists identity records keyed uniquely by email
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// PostgresUserStore implements UserStore using PostgreSQL
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore creates the store and ensures its schema exists
func NewPostgresUserStore(db *sql.DB) (*PostgresUserStore, error) {
	if _, err := db.Exec(usersSchema); err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}
	return &PostgresUserStore{db: db}, nil
}

// Create inserts a new identity. A duplicate email yields ErrDuplicateEmail.
func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	ctx, span := storeTracer.Start(ctx, "UserStore.Create",
		trace.WithAttributes(attribute.String("user.email", user.Email)),
	)
	defer span.End()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateEmail
		}
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail finds an identity by its email (case-sensitive, as stored)
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := storeTracer.Start(ctx, "UserStore.GetByEmail")
	defer span.End()

	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at
		FROM users WHERE email = $1
	`, email))
}

// GetByID finds an identity by its ID
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	ctx, span := storeTracer.Start(ctx, "UserStore.GetByID",
		trace.WithAttributes(attribute.String("user.id", id)),
	)
	defer span.End()

	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	var createdAt, updatedAt time.Time
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName,
		&user.LastName, &user.Role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return user, nil
}
