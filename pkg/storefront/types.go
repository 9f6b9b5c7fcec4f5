package storefront

import "time"

// MenuItem is one purchasable entry on the menu
type MenuItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderStatus tracks an order through fulfillment
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Fulfillment runs pending, preparing, ready, completed in order; any
// unfinished order may be cancelled. Completed and cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPreparing || next == OrderStatusCancelled
	case OrderStatusPreparing:
		return next == OrderStatusReady || next == OrderStatusCancelled
	case OrderStatusReady:
		return next == OrderStatusCompleted || next == OrderStatusCancelled
	}
	return false
}

// OrderItem is one line of an order. PriceCents is captured at order time
// so later menu edits do not rewrite history.
type OrderItem struct {
	ID         int64 `json:"id"`
	OrderID    int64 `json:"order_id"`
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
	PriceCents int64 `json:"price_cents"`
}

// Order is a customer order. SubjectID ties it to the identity that placed it.
type Order struct {
	ID         int64       `json:"id"`
	SubjectID  string      `json:"subject_id"`
	Status     OrderStatus `json:"status"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// GiftCard is stored-value credit. Cards past ExpiresAt are deactivated by
// the maintenance job; Active is the single flag redemption checks.
type GiftCard struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	SubjectID    string    `json:"subject_id"`
	BalanceCents int64     `json:"balance_cents"`
	Active       bool      `json:"active"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoyaltyTier buckets loyalty accounts by points balance
type LoyaltyTier string

const (
	LoyaltyTierBronze LoyaltyTier = "bronze"
	LoyaltyTierSilver LoyaltyTier = "silver"
	LoyaltyTierGold   LoyaltyTier = "gold"
)

const (
	silverThresholdPoints = 500
	goldThresholdPoints   = 2000
)

// TierForPoints maps a points balance to its loyalty tier. The tier is
// derived, never stored; point changes move the account between tiers
// immediately.
func TierForPoints(points int64) LoyaltyTier {
	switch {
	case points >= goldThresholdPoints:
		return LoyaltyTierGold
	case points >= silverThresholdPoints:
		return LoyaltyTierSilver
	}
	return LoyaltyTierBronze
}

// LoyaltyAccount accrues points per identity, one row per subject.
// Points are earned when an order completes, one point per whole currency
// unit spent; cancelled orders earn nothing.
type LoyaltyAccount struct {
	SubjectID string      `json:"subject_id"`
	Points    int64       `json:"points"`
	Tier      LoyaltyTier `json:"tier"`
	UpdatedAt time.Time   `json:"updated_at"`
}
