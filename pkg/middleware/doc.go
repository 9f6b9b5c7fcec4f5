// Package middleware provides the HTTP request gate and request-scoped
// observability middleware.
//
// # Request Gate
//
// Gate runs once per incoming navigation, before any content is produced.
// It reads the session cookie, resolves the profile, applies the role policy
// table, and either passes the request through with the profile on the
// context or short-circuits with a redirect. It never fails open: a backend
// fault during resolution denies protected routes to sign-in.
//
//	gate := middleware.NewGate(store, resolver, policy.DefaultTable(), logger, metrics)
//	router.Use(gate.Handler)
//
// The gate is stateless per request; nothing is cached across navigations.
//
// # Observability middleware
//
//	router.Use(middleware.RequestID(logger))
//	router.Use(middleware.Observe(metrics))
package middleware
