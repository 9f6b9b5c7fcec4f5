// Package profile resolves a session into the durable profile record,
// lazily creating the default profile when the provisioning path did not run.
//
// The resolver distinguishes exactly three outcomes: a profile (tombstoned
// rows included, callers must check), ErrUnauthenticated when there is no
// session, and *TransientError for every backend fault. Only the specific
// no-row signal from the store triggers lazy creation; any other error from
// the same call is escalated unmodified inside a TransientError so callers
// can fail closed without losing the cause.
package profile
