package storefront

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store persists the shop domain in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a shop store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const menuItemColumns = `id, name, description, category, price_cents, available, created_at, updated_at`

func scanMenuItem(row *sql.Row) (*MenuItem, error) {
	m := &MenuItem{}
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category,
		&m.PriceCents, &m.Available, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMenuItems returns the menu. includeUnavailable is for staff views;
// the public menu shows available items only.
func (s *Store) ListMenuItems(ctx context.Context, includeUnavailable bool) ([]*MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items`
	if !includeUnavailable {
		query += ` WHERE available = TRUE`
	}
	query += ` ORDER BY category, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	var items []*MenuItem
	for rows.Next() {
		m := &MenuItem{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Category,
			&m.PriceCents, &m.Available, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// GetMenuItem returns one menu item by id
func (s *Store) GetMenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE id = $1
	`, id)

	m, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("menu item lookup failed: %w", err)
	}
	return m, nil
}

// CreateMenuItem inserts a new menu item and fills in the generated fields
func (s *Store) CreateMenuItem(ctx context.Context, m *MenuItem) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (name, description, category, price_cents, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, m.Name, m.Description, m.Category, m.PriceCents, m.Available).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

// UpdateMenuItem replaces the mutable fields of a menu item
func (s *Store) UpdateMenuItem(ctx context.Context, m *MenuItem) (*MenuItem, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE menu_items
		SET name = $1, description = $2, category = $3,
		    price_cents = $4, available = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+menuItemColumns+`
	`, m.Name, m.Description, m.Category, m.PriceCents, m.Available, m.ID)

	updated, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to update menu item: %w", err)
	}
	return updated, nil
}

// DeleteMenuItem removes a menu item. Items referenced by order lines are
// protected by the foreign key and read back as ErrMenuItemInUse; those
// stay on the menu as unavailable instead.
func (s *Store) DeleteMenuItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrMenuItemInUse
		}
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrder inserts the order and its items in one transaction. The total
// is computed from the item lines; line prices must already be captured.
func (s *Store) CreateOrder(ctx context.Context, o *Order) error {
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}

	var total int64
	for _, item := range o.Items {
		total += item.PriceCents * int64(item.Quantity)
	}
	o.TotalCents = total
	o.Status = OrderStatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (subject_id, status, total_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, o.SubjectID, o.Status, o.TotalCents).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, price_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, item.OrderID, item.MenuItemID, item.Quantity, item.PriceCents).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

const orderColumns = `id, subject_id, status, total_cents, created_at, updated_at`

// GetOrder returns an order with its item lines
func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o := &Order{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.SubjectID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, quantity, price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID,
			&item.Quantity, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// ListOrdersBySubject returns a customer's orders, newest first
func (s *Store) ListOrdersBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, subjectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return collectOrders(rows)
}

// ListOrdersByStatus returns all orders in a status, oldest first, for the
// staff fulfillment queue.
func (s *Store) ListOrdersByStatus(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]*Order, error) {
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o := &Order{}
		if err := rows.Scan(&o.ID, &o.SubjectID, &o.Status, &o.TotalCents,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order to a new status. The move must be a
// legal transition from the order's current status; the update is guarded
// on the status that was checked, so a concurrent transition cannot be
// silently overwritten.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var current OrderStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("order status lookup failed: %w", err)
	}
	if !current.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, status)
	}

	o := &Order{}
	err = s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING `+orderColumns+`
	`, status, id, current).Scan(&o.ID, &o.SubjectID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		// The order moved between the check and the update
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	} else if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return o, nil
}

const giftCardColumns = `id, code, subject_id, balance_cents, active, expires_at, created_at`

// IssueGiftCard creates an active card with a generated code
func (s *Store) IssueGiftCard(ctx context.Context, subjectID string, balanceCents int64, expiresAt time.Time) (*GiftCard, error) {
	card := &GiftCard{
		Code:         uuid.NewString(),
		SubjectID:    subjectID,
		BalanceCents: balanceCents,
		Active:       true,
		ExpiresAt:    expiresAt,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO gift_cards (code, subject_id, balance_cents, active, expires_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id, created_at
	`, card.Code, card.SubjectID, card.BalanceCents, card.ExpiresAt).
		Scan(&card.ID, &card.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to issue gift card: %w", err)
	}
	return card, nil
}

// GetGiftCardByCode returns a card regardless of its active flag
func (s *Store) GetGiftCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	card := &GiftCard{}
	err := s.db.QueryRowContext(ctx, `
		SELECT `+giftCardColumns+`
		FROM gift_cards
		WHERE code = $1
	`, code).Scan(&card.ID, &card.Code, &card.SubjectID, &card.BalanceCents,
		&card.Active, &card.ExpiresAt, &card.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("gift card lookup failed: %w", err)
	}
	return card, nil
}

// RedeemGiftCard deducts amountCents from the card balance. The balance
// check and deduction happen in one UPDATE so concurrent redemptions cannot
// overdraw the card.
func (s *Store) RedeemGiftCard(ctx context.Context, code string, amountCents int64) (*GiftCard, error) {
	card := &GiftCard{}
	err := s.db.QueryRowContext(ctx, `
		UPDATE gift_cards
		SET balance_cents = balance_cents - $1
		WHERE code = $2
		  AND active = TRUE
		  AND expires_at > NOW()
		  AND balance_cents >= $1
		RETURNING `+giftCardColumns+`
	`, amountCents, code).Scan(&card.ID, &card.Code, &card.SubjectID,
		&card.BalanceCents, &card.Active, &card.ExpiresAt, &card.CreatedAt)
	if err == nil {
		return card, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to redeem gift card: %w", err)
	}

	// The guarded update matched nothing; classify why
	existing, lookupErr := s.GetGiftCardByCode(ctx, code)
	if lookupErr != nil {
		return nil, lookupErr
	}
	if !existing.Active || time.Now().After(existing.ExpiresAt) {
		return nil, ErrGiftCardInactive
	}
	return nil, ErrInsufficientBalance
}

// DeactivateExpiredGiftCards flips the active flag on cards past their
// expiry. Run by the maintenance job; returns the number deactivated.
func (s *Store) DeactivateExpiredGiftCards(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE gift_cards
		SET active = FALSE
		WHERE active = TRUE AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired gift cards: %w", err)
	}
	return res.RowsAffected()
}

// GetLoyaltyAccount returns the subject's loyalty balance, creating the row
// on first access.
func (s *Store) GetLoyaltyAccount(ctx context.Context, subjectID string) (*LoyaltyAccount, error) {
	acct := &LoyaltyAccount{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO loyalty_accounts (subject_id, points)
		VALUES ($1, 0)
		ON CONFLICT (subject_id) DO UPDATE SET subject_id = EXCLUDED.subject_id
		RETURNING subject_id, points, updated_at
	`, subjectID).Scan(&acct.SubjectID, &acct.Points, &acct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("loyalty account lookup failed: %w", err)
	}
	acct.Tier = TierForPoints(acct.Points)
	return acct, nil
}

// AddLoyaltyPoints credits points to the subject's account
func (s *Store) AddLoyaltyPoints(ctx context.Context, subjectID string, points int64) (*LoyaltyAccount, error) {
	acct := &LoyaltyAccount{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO loyalty_accounts (subject_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subject_id) DO UPDATE
		SET points = loyalty_accounts.points + EXCLUDED.points, updated_at = NOW()
		RETURNING subject_id, points, updated_at
	`, subjectID, points).Scan(&acct.SubjectID, &acct.Points, &acct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add loyalty points: %w", err)
	}
	acct.Tier = TierForPoints(acct.Points)
	return acct, nil
}
