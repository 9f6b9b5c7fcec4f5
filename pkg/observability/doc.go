// Package observability provides structured logging, Prometheus metrics,
// health probes, and optional OpenTelemetry tracing for the storefront service.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("profile_id", id).Info("profile approved")
//
// Handlers should pull the request-scoped logger from context:
//
//	log := observability.FromContext(r.Context())
//
// # Metrics
//
// All metrics live on a single Metrics struct registered against a
// prometheus.Registry. The health listener serves them at /metrics.
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	mux.HandleFunc("/healthz", checker.Liveness)
//	mux.HandleFunc("/readyz", checker.Readiness)
package observability
