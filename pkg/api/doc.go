// Package api assembles the HTTP surface: router, middleware chain, auth
// endpoints, and the superadmin user directory.
//
// The middleware chain is fixed: request ID, panic recovery, metrics, then
// the authorization gate. Handlers behind the gate read the caller's profile
// from the request context and never re-check route-level authorization.
package api
