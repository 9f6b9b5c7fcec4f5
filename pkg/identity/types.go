package identity

import "time"

// Role is the fixed privilege enumeration carried by a profile
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	// RoleDeleted is the terminal tombstone state. It never satisfies any
	// role requirement, including plain authentication.
	RoleDeleted Role = "deleted"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin, RoleDeleted:
		return true
	}
	return false
}

// Profile is the durable identity record, distinct from the session
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Approved  bool       `json:"approved"`
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Revoked reports whether the identity has been tombstoned
func (p *Profile) Revoked() bool {
	return p.Role == RoleDeleted || p.IsDeleted
}

// Staff reports whether the profile holds the admin tier or above
func (p *Profile) Staff() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperadmin
}

// PendingApproval reports whether the profile is staff awaiting activation.
// Only admin rows carry a meaningful unapproved state; user and superadmin
// are implicitly always approved.
func (p *Profile) PendingApproval() bool {
	return p.Role == RoleAdmin && !p.Approved
}

// Session is ephemeral proof of authentication bound to a subject id
type Session struct {
	Token     string    `json:"token"`
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthEventType identifies an auth-state transition
type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "signed_in"
	AuthSignedOut AuthEventType = "signed_out"
)

// AuthEvent is delivered to OnAuthStateChange subscribers. Session is set
// for signed-in events and nil for signed-out events.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// AuthHandler receives auth-state change events
type AuthHandler func(AuthEvent)
