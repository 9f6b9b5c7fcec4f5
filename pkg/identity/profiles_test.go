package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileRows(p *Profile) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "role", "approved", "is_deleted", "deleted_at", "created_at", "updated_at",
	}).AddRow(p.ID, p.Email, p.Role, p.Approved, p.IsDeleted, p.DeletedAt, p.CreatedAt, p.UpdatedAt)
}

func TestProfileStore_Select(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	want := &Profile{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     "alice@example.com",
		Role:      RoleAdmin,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(want.ID).
		WillReturnRows(profileRows(want))

	store := NewProfileStore(db)
	got, err := store.Select(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, RoleAdmin, got.Role)
	assert.False(t, got.Approved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_SelectNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WillReturnError(sql.ErrNoRows)

	store := NewProfileStore(db)
	_, err = store.Select(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileStore_SelectOtherErrorIsNotNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A transient backend fault must stay distinguishable from the no-row
	// signal; collapsing the two would make the resolver lazily create
	// profiles during network blips.
	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WillReturnError(errors.New("connection reset"))

	store := NewProfileStore(db)
	_, err = store.Select(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestProfileStore_InsertDuplicateIsRaceLoss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO profiles").
		WillReturnError(&pq.Error{Code: "23505"})

	store := NewProfileStore(db)
	err = store.Insert(context.Background(), &Profile{
		ID:       "11111111-1111-1111-1111-111111111111",
		Email:    "alice@example.com",
		Role:     RoleUser,
		Approved: true,
	})
	assert.ErrorIs(t, err, ErrProfileExists)
}

func TestProfileStore_Tombstone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	tombstoned := &Profile{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     "deleted+11111111-1111-1111-1111-111111111111@anonymized.invalid",
		Role:      RoleDeleted,
		Approved:  true,
		IsDeleted: true,
		DeletedAt: &now,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now,
	}

	mock.ExpectQuery("UPDATE profiles").
		WithArgs(string(RoleDeleted), tombstoned.ID).
		WillReturnRows(profileRows(tombstoned))

	store := NewProfileStore(db)
	got, err := store.Tombstone(context.Background(), tombstoned.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleDeleted, got.Role)
	assert.True(t, got.IsDeleted)
	assert.NotNil(t, got.DeletedAt)
	assert.NotContains(t, got.Email, "alice")
}

func TestProfileStore_UpdateNoFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	want := &Profile{
		ID: "11111111-1111-1111-1111-111111111111", Email: "alice@example.com",
		Role: RoleUser, Approved: true, CreatedAt: now, UpdatedAt: now,
	}

	// Empty update degrades to a read
	mock.ExpectQuery("SELECT (.+) FROM profiles").
		WithArgs(want.ID).
		WillReturnRows(profileRows(want))

	store := NewProfileStore(db)
	got, err := store.Update(context.Background(), want.ID, ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, want.Email, got.Email)
}

func TestProfileStore_UpdateRejectsUnknownRole(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bogus := Role("owner")
	store := NewProfileStore(db)
	_, err = store.Update(context.Background(), "id", ProfileUpdate{Role: &bogus})
	assert.Error(t, err)
}
