// Package clientcache maintains a client-held view of the current identity.
//
// The cache mirrors the server-side resolver for consumers that render
// before a round trip completes: it exposes a Snapshot of (profile, loading,
// error) and keeps it current by subscribing to auth-state changes.
//
// Resolves run asynchronously. Every state reset bumps a generation counter
// and a completing resolve is applied only if its generation is still
// current, so a slow response from before a sign-out can never repopulate
// the cache afterwards. Sign-out clears the snapshot synchronously inside
// the event delivery, before the subscriber call returns.
package clientcache
