// Package identity provides the identity store for the storefront: accounts,
// sessions, durable profiles, and auth-state change notifications.
//
// # Overview
//
// The identity store is split along lifetime boundaries. Accounts hold the
// credential (email + bcrypt hash) and never leave this package. Sessions are
// ephemeral proof of authentication, held in Redis under an opaque token with
// a TTL; an expired session and a missing session are indistinguishable to
// callers. Profiles are the durable per-subject record carrying role and
// approval state, stored in PostgreSQL and keyed 1:1 by account id.
//
// # Roles
//
//	RoleUser       - regular customer, always approved
//	RoleAdmin      - staff; meaningful approved flag, unapproved staff are held
//	RoleSuperadmin - operator; implicitly approved, may mutate any profile
//	RoleDeleted    - tombstone; the row stays, the identity is revoked
//
// Profiles are never hard-deleted. Deletion is a tombstone transition: role
// becomes RoleDeleted, the email is anonymized in place, and is_deleted /
// deleted_at are set, so foreign references and audit history stay valid.
//
// # Store interface
//
// Service implements Store, the full surface consumed by the rest of the
// application:
//
//	sess, err := store.SignIn(ctx, email, password)
//	sess, err := store.GetSession(ctx, token)
//	unsubscribe := store.OnAuthStateChange(func(ev identity.AuthEvent) { ... })
//	defer unsubscribe()
//
// Auth-state change events are delivered synchronously to subscribers, in
// publish order. A signed-out event is therefore fully applied before any
// later work observes the store.
//
// # Related packages
//
//   - pkg/profile: lazy-creating resolver over SelectProfile/InsertProfile
//   - pkg/middleware: the request gate consuming GetSession
//   - pkg/clientcache: the in-view mirror driven by OnAuthStateChange
package identity
