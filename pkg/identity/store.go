package identity

import "context"

// ProfileUpdate holds the mutable profile fields; nil means unchanged
type ProfileUpdate struct {
	Email    *string
	Role     *Role
	Approved *bool
}

// Store is the full identity surface consumed by the application. Service is
// the production implementation; tests substitute fakes.
type Store interface {
	// GetSession returns the session for an opaque token.
	// Returns ErrSessionNotFound for missing and expired tokens alike.
	GetSession(ctx context.Context, token string) (*Session, error)

	// SignIn verifies credentials and issues a session
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers an account, provisions its profile, and issues a
	// session. When staff is true the profile is created as an unapproved
	// admin; otherwise as an approved user.
	SignUp(ctx context.Context, email, password string, staff bool) (*Session, error)

	// SignOut destroys the session for the token
	SignOut(ctx context.Context, token string) error

	// OnAuthStateChange registers a handler for sign-in/sign-out events.
	// The returned function unsubscribes; failing to call it leaks the
	// registration for the process lifetime.
	OnAuthStateChange(h AuthHandler) (unsubscribe func())

	// SelectProfile returns the profile for a subject id, including
	// tombstoned rows. Returns ErrProfileNotFound when no row exists.
	SelectProfile(ctx context.Context, id string) (*Profile, error)

	// InsertProfile stores a new profile row.
	// Returns ErrProfileExists when the subject id is already taken.
	InsertProfile(ctx context.Context, p *Profile) error

	// UpdateProfile applies the non-nil fields and returns the updated row
	UpdateProfile(ctx context.Context, id string, fields ProfileUpdate) (*Profile, error)
}
