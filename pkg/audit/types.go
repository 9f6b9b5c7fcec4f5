package audit

import "time"

// EventType categorizes an audit event
type EventType string

const (
	// Authentication events
	EventTypeSignIn       EventType = "auth.sign_in"
	EventTypeSignInFailed EventType = "auth.sign_in_failed"
	EventTypeSignOut      EventType = "auth.sign_out"
	EventTypeSignUp       EventType = "auth.sign_up"

	// Privilege administration events
	EventTypeUserApprove   EventType = "admin.user_approve"
	EventTypeRoleChange    EventType = "admin.role_change"
	EventTypeUserTombstone EventType = "admin.user_tombstone"

	// Storefront data events
	EventTypeOrderStatusChange EventType = "store.order_status_change"
	EventTypeMenuItemChange    EventType = "store.menu_item_change"
	EventTypeGiftCardIssued    EventType = "store.gift_card_issued"
	EventTypeGiftCardRedeemed  EventType = "store.gift_card_redeemed"
)

// EventStatus is the outcome of the audited action
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is one audit log entry. ActorID is the subject id of whoever
// performed the action; TargetID is the affected resource (a profile id for
// privilege events, an order or gift card id for storefront events).
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	ActorID    string `json:"actor_id,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`
	TargetID   string `json:"target_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchFilter narrows a Search call. Zero values mean "any".
type SearchFilter struct {
	StartTime  *time.Time
	EndTime    *time.Time
	ActorID    string
	TargetID   string
	EventTypes []EventType
	Status     *EventStatus

	Limit  int
	Offset int
}
