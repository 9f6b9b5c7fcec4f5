// Package policy maps (route path, profile) to an authorization verdict.
//
// The table is a static, ordered set of (path prefix, minimum tier) rules
// evaluated most-specific-prefix-first. Decide is a pure function: no I/O,
// no clock, deterministic for equal inputs. Both the server-side request
// gate and the approval holding page consume it, so the two enforcement
// layers cannot drift apart on the rules themselves.
package policy
