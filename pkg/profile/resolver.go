package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/observability"
)

// ErrUnauthenticated means no session was presented. The store is never
// contacted in this case.
var ErrUnauthenticated = errors.New("unauthenticated")

// TransientError wraps a backend fault. It is not a verdict: the caller
// decides whether to deny or to surface a retryable loading state.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Store is the slice of the identity surface the resolver needs
type Store interface {
	SelectProfile(ctx context.Context, id string) (*identity.Profile, error)
	InsertProfile(ctx context.Context, p *identity.Profile) error
}

// Resolver turns sessions into profiles
type Resolver struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(store Store, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve returns the profile for the session's subject id.
//
// A missing row is healed by inserting the default profile (role=user,
// approved=true, email copied from the session). Losing the insert race to a
// concurrent resolve is not an error: the winner's row is re-read and
// returned. The result is returned verbatim, tombstones included; callers
// must treat a deleted role as denied.
func (r *Resolver) Resolve(ctx context.Context, sess *identity.Session) (*identity.Profile, error) {
	if sess == nil {
		r.count("unauthenticated")
		return nil, ErrUnauthenticated
	}

	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
		}
	}()

	p, err := r.store.SelectProfile(ctx, sess.SubjectID)
	if err == nil {
		r.count("hit")
		return p, nil
	}
	if !errors.Is(err, identity.ErrProfileNotFound) {
		// Anything but the explicit no-row signal is escalated, never
		// healed: lazily creating during a network blip would shadow the
		// real row.
		r.count("transient")
		return nil, &TransientError{Op: "select profile", Err: err}
	}

	created := &identity.Profile{
		ID:       sess.SubjectID,
		Email:    sess.Email,
		Role:     identity.RoleUser,
		Approved: true,
	}
	err = r.store.InsertProfile(ctx, created)
	if err == nil {
		r.logger.WithField("subject_id", sess.SubjectID).Info("profile lazily created")
		r.count("created")
		return created, nil
	}
	if errors.Is(err, identity.ErrProfileExists) {
		// Race loss: a concurrent resolve inserted first. Return its row.
		winner, rerr := r.store.SelectProfile(ctx, sess.SubjectID)
		if rerr != nil {
			r.count("transient")
			return nil, &TransientError{Op: "re-read after insert race", Err: rerr}
		}
		r.count("race_loss")
		return winner, nil
	}

	r.count("transient")
	return nil, &TransientError{Op: "create profile", Err: err}
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil {
		r.metrics.ResolvesTotal.WithLabelValues(outcome).Inc()
	}
}
