// Package audit records security-relevant events to PostgreSQL.
//
// Everything that changes who can do what is written here: sign-ins and
// sign-outs, staff approvals, role changes, and account tombstoning. Events
// are append-only; the only deletion path is PruneBefore, driven by the
// maintenance binary's retention job.
package audit
