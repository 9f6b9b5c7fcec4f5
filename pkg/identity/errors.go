package identity

import "errors"

var (
	// ErrSessionNotFound means no session exists for the token. Expired and
	// never-issued tokens both map here; callers must treat them identically.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProfileNotFound is the specific no-row signal from SelectProfile.
	// It is the sole trigger for lazy profile creation; any other error from
	// the same call path must be escalated, not healed.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists means an insert lost the uniqueness race. The caller
	// should re-read and return the winner's row.
	ErrProfileExists = errors.New("profile already exists")

	// ErrEmailTaken means an account with the email already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so responses do not leak account existence
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrSignInThrottled means too many failed attempts for the email
	ErrSignInThrottled = errors.New("too many sign-in attempts")
)
