package clientcache

import (
	"context"
	"sync"

	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/observability"
)

// Resolver turns a session into a profile
type Resolver interface {
	Resolve(ctx context.Context, sess *identity.Session) (*identity.Profile, error)
}

// Notifier delivers auth-state change events. Satisfied by identity.Store.
type Notifier interface {
	OnAuthStateChange(h identity.AuthHandler) func()
}

// Snapshot is the point-in-time cache state handed to renderers
type Snapshot struct {
	Profile *identity.Profile
	Loading bool
	Err     error
}

// Cache holds the client's view of the current identity
type Cache struct {
	resolver Resolver
	logger   *observability.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	gen     uint64
	session *identity.Session
	profile *identity.Profile
	loading bool
	err     error

	unsubscribe func()
	inflight    sync.WaitGroup
}

// New creates a cache subscribed to notifier. metrics may be nil.
// Call Close to unsubscribe.
func New(resolver Resolver, notifier Notifier, logger *observability.Logger, metrics *observability.Metrics) *Cache {
	c := &Cache{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
	c.unsubscribe = notifier.OnAuthStateChange(c.onAuthEvent)
	return c
}

func (c *Cache) onAuthEvent(ev identity.AuthEvent) {
	switch ev.Type {
	case identity.AuthSignedIn:
		c.SetSession(context.Background(), ev.Session)
	case identity.AuthSignedOut:
		// Applied before the broadcaster returns: any snapshot taken after
		// the sign-out call completes sees the cleared state.
		c.SetSession(context.Background(), nil)
	}
}

// SetSession replaces the tracked session and starts a resolve for it.
// A nil session clears the cache immediately; in-flight resolves from the
// previous session are orphaned by the generation bump and discarded when
// they complete.
func (c *Cache) SetSession(ctx context.Context, sess *identity.Session) {
	c.mu.Lock()
	c.gen++
	c.session = sess
	if sess == nil {
		c.profile = nil
		c.loading = false
		c.err = nil
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.err = nil
	gen := c.gen
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.resolve(ctx, sess, gen)
	}()
}

// Invalidate re-resolves the current session, if any. Used after a
// server-side role or approval change to pick up the new profile.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess != nil {
		c.SetSession(ctx, sess)
	}
}

func (c *Cache) resolve(ctx context.Context, sess *identity.Session, gen uint64) {
	p, err := c.resolver.Resolve(ctx, sess)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// The world moved on while this resolve was in flight
		c.count("discarded")
		c.logger.WithField("subject_id", sess.SubjectID).Debug("stale resolve discarded")
		return
	}
	c.loading = false
	if err != nil {
		c.profile = nil
		c.err = err
		c.count("failed")
		return
	}
	c.profile = p
	c.err = nil
	c.count("applied")
}

// Snapshot returns the current cache state
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Profile: c.profile, Loading: c.loading, Err: c.err}
}

// Close unsubscribes from auth events and waits for in-flight resolves.
// Their results are discarded by a final generation bump.
func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	c.inflight.Wait()
}

func (c *Cache) count(result string) {
	if c.metrics != nil {
		c.metrics.CacheResolvesTotal.WithLabelValues(result).Inc()
	}
}
