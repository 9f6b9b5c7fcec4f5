package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/copperkettle/storefront/pkg/contextkeys"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/observability"
	"github.com/copperkettle/storefront/pkg/policy"
	"github.com/copperkettle/storefront/pkg/profile"
)

// SessionCookieName is the cookie carrying the opaque session token
const SessionCookieName = "storefront_session"

// SessionSource reads sessions by token
type SessionSource interface {
	GetSession(ctx context.Context, token string) (*identity.Session, error)
}

// Resolver turns a session into a profile
type Resolver interface {
	Resolve(ctx context.Context, sess *identity.Session) (*identity.Profile, error)
}

// Gate is the server-side authorization gate applied to every navigation
type Gate struct {
	sessions SessionSource
	resolver Resolver
	table    *policy.Table
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewGate creates the gate middleware. metrics may be nil.
func NewGate(sessions SessionSource, resolver Resolver, table *policy.Table,
	logger *observability.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		sessions: sessions,
		resolver: resolver,
		table:    table,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with the gate
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		sess, transient := g.session(r)

		var prof *identity.Profile
		if sess != nil && !transient {
			p, err := g.resolver.Resolve(r.Context(), sess)
			switch {
			case err == nil:
				prof = p
			case errors.Is(err, profile.ErrUnauthenticated):
				// No session after all; fall through as anonymous
			default:
				// Resolver fault. Fail closed below rather than guess a role.
				g.logger.WithError(err).WithField("path", path).Warn("profile resolve failed at gate")
				transient = true
			}
		}

		if transient {
			// Public routes stay reachable; everything else denies to
			// sign-in. False rejection beats privilege leakage.
			if d := g.table.Decide(path, nil); !d.Allow {
				g.count("fail_closed")
				http.Redirect(w, r, policy.SignInPath+"?redirectTo="+path, http.StatusFound)
				return
			}
			g.count("allow_public")
			next.ServeHTTP(w, r)
			return
		}

		decision := g.table.Decide(path, prof)
		if !decision.Allow {
			g.count("redirect")
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}

		g.count("allow")
		ctx := r.Context()
		if sess != nil {
			ctx = contextkeys.WithSession(ctx, sess)
		}
		if prof != nil {
			ctx = contextkeys.WithProfile(ctx, prof)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// session reads the cookie and looks the token up. The second return value
// reports a backend fault as opposed to a plain missing/expired session.
func (g *Gate) session(r *http.Request) (*identity.Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sess, err := g.sessions.GetSession(r.Context(), cookie.Value)
	if err == nil {
		return sess, false
	}
	if errors.Is(err, identity.ErrSessionNotFound) {
		// Expired and never-issued tokens are the same: anonymous
		return nil, false
	}
	g.logger.WithError(err).Warn("session lookup failed at gate")
	return nil, true
}

func (g *Gate) count(verdict string) {
	if g.metrics != nil {
		g.metrics.GateDecisionsTotal.WithLabelValues(verdict).Inc()
	}
}

// ProfileFrom returns the gate-resolved profile from the request context
func ProfileFrom(ctx context.Context) *identity.Profile {
	p, _ := ctx.Value(contextkeys.ProfileKey).(*identity.Profile)
	return p
}

// SessionFrom returns the session from the request context
func SessionFrom(ctx context.Context) *identity.Session {
	s, _ := ctx.Value(contextkeys.SessionKey).(*identity.Session)
	return s
}
