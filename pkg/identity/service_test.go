package identity

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/copperkettle/storefront/pkg/observability"
)

func newTestService(t *testing.T, cfg ServiceConfig) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	svc := NewService(
		NewAccountStore(db),
		NewProfileStore(db),
		NewSessionStore(client, time.Hour),
		cfg,
		logger,
		nil,
	)
	return svc, mock
}

func accountRow(id, email, hash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
		AddRow(id, email, hash, time.Now())
}

func TestService_SignInAndGetSession(t *testing.T) {
	svc, mock := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("alice@example.com").
		WillReturnRows(accountRow("subject-1", "alice@example.com", string(hash)))

	sess, err := svc.SignIn(ctx, "Alice@Example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "subject-1", sess.SubjectID)

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.SubjectID, got.SubjectID)
}

func TestService_SignInWrongPassword(t *testing.T) {
	svc, mock := newTestService(t, ServiceConfig{})

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(accountRow("subject-1", "alice@example.com", string(hash)))

	_, err = svc.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_SignInUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc, mock := newTestService(t, ServiceConfig{})

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	_, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_SignInThrottled(t *testing.T) {
	svc, mock := newTestService(t, ServiceConfig{MaxSignInAttempts: 2})
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WillReturnRows(accountRow("subject-1", "alice@example.com", string(hash)))
		_, err := svc.SignIn(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Third attempt is rejected before touching the account store
	_, err = svc.SignIn(ctx, "alice@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrSignInThrottled)
}

func TestService_SessionOpsAreCounted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := observability.NewMetrics(prometheus.NewRegistry())
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	svc := NewService(
		NewAccountStore(db),
		NewProfileStore(db),
		NewSessionStore(client, time.Hour),
		ServiceConfig{},
		logger,
		m,
	)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(accountRow("subject-1", "alice@example.com", string(hash)))

	sess, err := svc.SignIn(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	_, err = svc.GetSession(ctx, "no-such-token")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, svc.SignOut(ctx, sess.Token))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues("get", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues("get", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues("delete", "ok")))
}

func TestService_SignOutPublishesEvent(t *testing.T) {
	svc, mock := newTestService(t, ServiceConfig{})
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(accountRow("subject-1", "alice@example.com", string(hash)))

	var events []AuthEventType
	unsubscribe := svc.OnAuthStateChange(func(ev AuthEvent) {
		events = append(events, ev.Type)
	})
	defer unsubscribe()

	sess, err := svc.SignIn(ctx, "alice@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.Token))

	assert.Equal(t, []AuthEventType{AuthSignedIn, AuthSignedOut}, events)

	_, err = svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
