package storefront

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestCreateOrder_InsertsOrderAndItemsInOneTransaction(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("subject-1", "pending", int64(1300)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(5), now, now))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(5), int64(1), 2, int64(400)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(5), int64(2), 1, int64(500)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	order := &Order{
		SubjectID: "subject-1",
		Items: []OrderItem{
			{MenuItemID: 1, Quantity: 2, PriceCents: 400},
			{MenuItemID: 2, Quantity: 1, PriceCents: 500},
		},
	}
	require.NoError(t, store.CreateOrder(context.Background(), order))

	assert.Equal(t, int64(5), order.ID)
	assert.Equal(t, int64(1300), order.TotalCents)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, int64(5), order.Items[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_RejectsEmptyOrder(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.CreateOrder(context.Background(), &Order{SubjectID: "subject-1"})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.UpdateOrderStatus(context.Background(), 1, OrderStatus("burnt"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPreparing, true},
		{OrderStatusPreparing, OrderStatusReady, true},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusReady, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusReady, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusReady, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestUpdateOrderStatus_FollowsFulfillmentSequence(t *testing.T) {
	store, mock := newTestStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectQuery("UPDATE orders").
		WithArgs("preparing", int64(3), "pending").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "subject_id", "status", "total_cents", "created_at", "updated_at",
		}).AddRow(int64(3), "customer-1", "preparing", int64(900), now, now))

	order, err := store.UpdateOrderStatus(context.Background(), 3, OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPreparing, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_RejectsIllegalTransition(t *testing.T) {
	store, mock := newTestStore(t)

	// A completed order cannot be reopened
	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	_, err := store.UpdateOrderStatus(context.Background(), 3, OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatus_ConcurrentMoveIsRejected(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT status FROM orders").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	// Another transition landed between the check and the guarded update
	mock.ExpectQuery("UPDATE orders").
		WithArgs("preparing", int64(3), "pending").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "subject_id", "status", "total_cents", "created_at", "updated_at",
		}))

	_, err := store.UpdateOrderStatus(context.Background(), 3, OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMenuItem_RemovesRow(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM menu_items").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteMenuItem(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMenuItem_UnknownIDIsNotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM menu_items").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteMenuItem(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMenuItem_ReferencedItemIsInUse(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM menu_items").
		WithArgs(int64(4)).
		WillReturnError(&pq.Error{Code: "23503"})

	err := store.DeleteMenuItem(context.Background(), 4)
	assert.ErrorIs(t, err, ErrMenuItemInUse)
}

func TestRedeemGiftCard_DeductsBalance(t *testing.T) {
	store, mock := newTestStore(t)
	expires := time.Now().Add(24 * time.Hour)

	mock.ExpectQuery("UPDATE gift_cards").
		WithArgs(int64(300), "card-code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}).AddRow(int64(1), "card-code", "subject-1", int64(700), true, expires, time.Now()))

	card, err := store.RedeemGiftCard(context.Background(), "card-code", 300)
	require.NoError(t, err)
	assert.Equal(t, int64(700), card.BalanceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemGiftCard_ClassifiesInactiveCard(t *testing.T) {
	store, mock := newTestStore(t)

	// Guarded update matches nothing
	mock.ExpectQuery("UPDATE gift_cards").
		WithArgs(int64(300), "card-code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}))
	// Follow-up read finds a deactivated card
	mock.ExpectQuery("SELECT id, code, subject_id").
		WithArgs("card-code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}).AddRow(int64(1), "card-code", "subject-1", int64(700), false,
			time.Now().Add(24*time.Hour), time.Now()))

	_, err := store.RedeemGiftCard(context.Background(), "card-code", 300)
	assert.ErrorIs(t, err, ErrGiftCardInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemGiftCard_ClassifiesInsufficientBalance(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("UPDATE gift_cards").
		WithArgs(int64(5000), "card-code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}))
	mock.ExpectQuery("SELECT id, code, subject_id").
		WithArgs("card-code").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}).AddRow(int64(1), "card-code", "subject-1", int64(700), true,
			time.Now().Add(24*time.Hour), time.Now()))

	_, err := store.RedeemGiftCard(context.Background(), "card-code", 5000)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemGiftCard_UnknownCodeIsNotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("UPDATE gift_cards").
		WithArgs(int64(100), "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}))
	mock.ExpectQuery("SELECT id, code, subject_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "subject_id", "balance_cents", "active", "expires_at", "created_at",
		}))

	_, err := store.RedeemGiftCard(context.Background(), "missing", 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateExpiredGiftCards_ReturnsCount(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE gift_cards").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeactivateExpiredGiftCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLoyaltyAccount_CreatesRowOnFirstAccess(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO loyalty_accounts").
		WithArgs("subject-1").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "points", "updated_at"}).
			AddRow("subject-1", int64(0), time.Now()))

	acct, err := store.GetLoyaltyAccount(context.Background(), "subject-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Points)
	assert.Equal(t, LoyaltyTierBronze, acct.Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTierForPoints_Thresholds(t *testing.T) {
	tests := []struct {
		points int64
		want   LoyaltyTier
	}{
		{0, LoyaltyTierBronze},
		{499, LoyaltyTierBronze},
		{500, LoyaltyTierSilver},
		{1999, LoyaltyTierSilver},
		{2000, LoyaltyTierGold},
		{50000, LoyaltyTierGold},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, TierForPoints(tt.points), "points=%d", tt.points)
	}
}

func TestAddLoyaltyPoints_Accumulates(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO loyalty_accounts").
		WithArgs("subject-1", int64(13)).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "points", "updated_at"}).
			AddRow("subject-1", int64(20), time.Now()))

	acct, err := store.AddLoyaltyPoints(context.Background(), "subject-1", 13)
	require.NoError(t, err)
	assert.Equal(t, int64(20), acct.Points)
	assert.Equal(t, LoyaltyTierBronze, acct.Tier)
}

func TestAddLoyaltyPoints_CrossingThresholdMovesTier(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO loyalty_accounts").
		WithArgs("subject-1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id", "points", "updated_at"}).
			AddRow("subject-1", int64(520), time.Now()))

	acct, err := store.AddLoyaltyPoints(context.Background(), "subject-1", 50)
	require.NoError(t, err)
	assert.Equal(t, LoyaltyTierSilver, acct.Tier)
}
