package storefront

import "errors"

var (
	// ErrNotFound means the requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrGiftCardInactive means the card is expired or deactivated
	ErrGiftCardInactive = errors.New("gift card inactive")
	// ErrInsufficientBalance means the redemption exceeds the card balance
	ErrInsufficientBalance = errors.New("insufficient gift card balance")
	// ErrEmptyOrder means an order was submitted with no items
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidStatus means an unknown order status was supplied
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidTransition means the status change is not a legal move in
	// the fulfillment sequence
	ErrInvalidTransition = errors.New("illegal order status transition")
	// ErrMenuItemInUse means the menu item appears on existing orders and
	// cannot be deleted
	ErrMenuItemInUse = errors.New("menu item is referenced by orders")
)
