package identity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ProfileStore persists profiles in PostgreSQL
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore creates a profile store
func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileColumns = `id, email, role, approved, is_deleted, deleted_at, created_at, updated_at`

func scanProfile(row *sql.Row) (*Profile, error) {
	p := &Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.Role, &p.Approved, &p.IsDeleted,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Select returns the profile for a subject id, tombstoned rows included.
// sql.ErrNoRows maps to ErrProfileNotFound; every other error is returned
// wrapped but unclassified, so callers can tell the two apart.
func (s *ProfileStore) Select(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id = $1
	`, id)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	} else if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	return p, nil
}

// Insert stores a new profile row. A duplicate subject id surfaces as
// ErrProfileExists so concurrent lazy-creates can re-read the winner's row.
func (s *ProfileStore) Insert(ctx context.Context, p *Profile) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email, role, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`, p.ID, p.Email, p.Role, p.Approved).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update applies the non-nil fields and returns the updated row
func (s *ProfileStore) Update(ctx context.Context, id string, fields ProfileUpdate) (*Profile, error) {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	idx := 1

	if fields.Email != nil {
		set = append(set, fmt.Sprintf("email = $%d", idx))
		args = append(args, strings.ToLower(*fields.Email))
		idx++
	}
	if fields.Role != nil {
		if !fields.Role.Valid() {
			return nil, fmt.Errorf("invalid role: %s", *fields.Role)
		}
		set = append(set, fmt.Sprintf("role = $%d", idx))
		args = append(args, *fields.Role)
		idx++
	}
	if fields.Approved != nil {
		set = append(set, fmt.Sprintf("approved = $%d", idx))
		args = append(args, *fields.Approved)
		idx++
	}
	if len(set) == 0 {
		return s.Select(ctx, id)
	}

	set = append(set, "updated_at = NOW()")
	args = append(args, id)

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE profiles
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(set, ", "), idx, profileColumns), args...)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// Tombstone revokes an identity in place: role becomes deleted, the email is
// anonymized, and the soft-delete markers are set. The row is never removed.
func (s *ProfileStore) Tombstone(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET role = $1,
		    email = 'deleted+' || id || '@anonymized.invalid',
		    is_deleted = TRUE,
		    deleted_at = NOW(),
		    updated_at = NOW()
		WHERE id = $2
		RETURNING `+profileColumns+`
	`, RoleDeleted, id)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to tombstone profile: %w", err)
	}
	return p, nil
}

// List returns profiles ordered by creation time, newest first
func (s *ProfileStore) List(ctx context.Context, limit, offset int) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.Email, &p.Role, &p.Approved, &p.IsDeleted,
			&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
