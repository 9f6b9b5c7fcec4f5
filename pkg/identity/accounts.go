package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// account is the credential row backing a subject id. It never crosses the
// package boundary; callers only see sessions and profiles.
type account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountStore persists accounts in PostgreSQL
type AccountStore struct {
	db *sql.DB
}

// NewAccountStore creates an account store
func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create inserts a new account and returns its generated id.
// Returns ErrEmailTaken when the email is already registered.
func (s *AccountStore) Create(ctx context.Context, email, passwordHash string) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
	`, id, strings.ToLower(email), passwordHash)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	return id, nil
}

// GetByEmail returns the account for an email.
// Returns ErrInvalidCredentials when no account exists, so sign-in failures
// look the same for unknown emails and wrong passwords.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*account, error) {
	a := &account{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`, strings.ToLower(email)).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return a, nil
}
