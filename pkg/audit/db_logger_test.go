package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*DBLogger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)
	return logger, mock
}

func TestNewDBLogger_RequiresDB(t *testing.T) {
	_, err := NewDBLogger(nil)
	assert.Error(t, err)
}

func TestLog_InsertsAndCapturesID(t *testing.T) {
	logger, mock := newTestLogger(t)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "admin.role_change", "success",
			"actor-1", "", "target-1", "req-1", "", "promoted to admin", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	event := &Event{
		EventType: EventTypeRoleChange,
		ActorID:   "actor-1",
		TargetID:  "target-1",
		RequestID: "req-1",
		Message:   "promoted to admin",
	}
	require.NoError(t, logger.Log(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_DefaultsStatusToSuccess(t *testing.T) {
	logger, mock := newTestLogger(t)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "auth.sign_out", "success",
			"subject-1", "u@example.com", "", "", "", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	event := &Event{
		EventType:  EventTypeSignOut,
		ActorID:    "subject-1",
		ActorEmail: "u@example.com",
	}
	require.NoError(t, logger.Log(context.Background(), event))
	assert.Equal(t, EventStatusSuccess, event.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_FailureStatusPreserved(t *testing.T) {
	logger, mock := newTestLogger(t)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), "auth.sign_in_failed", "failure",
			"", "bad@example.com", "", "req-9", "", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err := logger.Log(context.Background(), &Event{
		EventType:  EventTypeSignInFailed,
		Status:     EventStatusFailure,
		ActorEmail: "bad@example.com",
		RequestID:  "req-9",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_FiltersByActorAndLimit(t *testing.T) {
	logger, mock := newTestLogger(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "timestamp", "event_type", "status",
		"actor_id", "actor_email", "target_id",
		"request_id", "ip_address", "message", "metadata",
	}).AddRow(int64(3), now, "admin.user_approve", "success",
		"actor-1", "boss@example.com", "target-1", "req-2", "", "approved", []byte(`{"note":"ok"}`))

	mock.ExpectQuery("SELECT id, timestamp, event_type, status").
		WithArgs("actor-1", 10).
		WillReturnRows(rows)

	events, err := logger.Search(context.Background(), SearchFilter{ActorID: "actor-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeUserApprove, events[0].EventType)
	assert.Equal(t, "target-1", events[0].TargetID)
	assert.Equal(t, "ok", events[0].Metadata["note"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneBefore_ReturnsDeletedCount(t *testing.T) {
	logger, mock := newTestLogger(t)

	cutoff := time.Now().AddDate(0, 0, -90)
	mock.ExpectExec("DELETE FROM audit_logs WHERE timestamp").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	n, err := logger.PruneBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
