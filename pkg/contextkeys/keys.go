// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ProfileKey contains *identity.Profile
	// Set by: middleware.Gate (pkg/middleware/gate.go) after a successful resolve
	// Required by: all handlers behind the gate that need the caller's role
	ProfileKey Key = "profile"

	// SessionKey contains *identity.Session
	// Set by: middleware.Gate when the request carries a valid session cookie
	SessionKey Key = "session"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.RequestID
	LoggerKey Key = "logger"
)

// WithProfile adds the resolved profile to the context
func WithProfile(ctx context.Context, p interface{}) context.Context {
	return context.WithValue(ctx, ProfileKey, p)
}

// WithSession adds the session to the context
func WithSession(ctx context.Context, s interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
