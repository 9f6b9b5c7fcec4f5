package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/copperkettle/storefront/pkg/observability"
)

// ServiceConfig holds identity service tunables
type ServiceConfig struct {
	// BcryptCost for password hashing; 0 means bcrypt.DefaultCost
	BcryptCost int
	// MaxSignInAttempts per email before throttling kicks in
	MaxSignInAttempts int
	// LockoutWindow is how long failed-attempt counts are remembered
	LockoutWindow time.Duration
}

// Service is the production identity store. It composes the account,
// profile, and session stores and publishes auth-state change events.
type Service struct {
	accounts *AccountStore
	profiles *ProfileStore
	sessions *SessionStore
	bc       *Broadcaster
	throttle *lru.LRU[string, int]
	cfg      ServiceConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

var _ Store = (*Service)(nil)

// NewService wires the identity service together. metrics may be nil.
func NewService(accounts *AccountStore, profiles *ProfileStore, sessions *SessionStore,
	cfg ServiceConfig, logger *observability.Logger, metrics *observability.Metrics) *Service {

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MaxSignInAttempts == 0 {
		cfg.MaxSignInAttempts = 5
	}
	if cfg.LockoutWindow == 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}

	return &Service{
		accounts: accounts,
		profiles: profiles,
		sessions: sessions,
		bc:       NewBroadcaster(),
		throttle: lru.NewLRU[string, int](4096, nil, cfg.LockoutWindow),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// GetSession returns the session for a token
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	s.countSessionOp("get", err)
	return sess, err
}

// SignIn verifies credentials and issues a session
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(email)

	if attempts, ok := s.throttle.Get(email); ok && attempts >= s.cfg.MaxSignInAttempts {
		s.countSignIn("throttled")
		return nil, ErrSignInThrottled
	}

	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.recordFailure(email)
			s.countSignIn("invalid")
			return nil, ErrInvalidCredentials
		}
		s.countSignIn("error")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(email)
		s.countSignIn("invalid")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, acct.ID, acct.Email)
	s.countSessionOp("create", err)
	if err != nil {
		s.countSignIn("error")
		return nil, err
	}

	s.throttle.Remove(email)
	s.countSignIn("ok")
	s.logger.WithField("subject_id", acct.ID).Info("sign-in")
	s.bc.Publish(AuthEvent{Type: AuthSignedIn, Session: sess})
	return sess, nil
}

// SignUp registers an account, provisions its profile, and issues a session
func (s *Service) SignUp(ctx context.Context, email, password string, staff bool) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.accounts.Create(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}

	// Provisioning: customers are approved users; staff signups start as
	// unapproved admins and are held until a superadmin activates them.
	p := &Profile{
		ID:       id,
		Email:    strings.ToLower(email),
		Role:     RoleUser,
		Approved: true,
	}
	if staff {
		p.Role = RoleAdmin
		p.Approved = false
	}
	if err := s.profiles.Insert(ctx, p); err != nil && !errors.Is(err, ErrProfileExists) {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}

	sess, err := s.sessions.Create(ctx, id, strings.ToLower(email))
	s.countSessionOp("create", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("subject_id", id).WithField("staff", staff).Info("sign-up")
	s.bc.Publish(AuthEvent{Type: AuthSignedIn, Session: sess})
	return sess, nil
}

// SignOut destroys the session and publishes the signed-out event.
// The event is published even when the token was already gone, so clients
// clear their cached identity in every case.
func (s *Service) SignOut(ctx context.Context, token string) error {
	err := s.sessions.Delete(ctx, token)
	s.countSessionOp("delete", err)
	s.bc.Publish(AuthEvent{Type: AuthSignedOut})
	return err
}

// OnAuthStateChange registers a handler for sign-in/sign-out events
func (s *Service) OnAuthStateChange(h AuthHandler) func() {
	return s.bc.Subscribe(h)
}

// SelectProfile returns the profile for a subject id
func (s *Service) SelectProfile(ctx context.Context, id string) (*Profile, error) {
	return s.profiles.Select(ctx, id)
}

// InsertProfile stores a new profile row
func (s *Service) InsertProfile(ctx context.Context, p *Profile) error {
	return s.profiles.Insert(ctx, p)
}

// UpdateProfile applies the non-nil fields and returns the updated row
func (s *Service) UpdateProfile(ctx context.Context, id string, fields ProfileUpdate) (*Profile, error) {
	return s.profiles.Update(ctx, id, fields)
}

func (s *Service) recordFailure(email string) {
	attempts, _ := s.throttle.Get(email)
	s.throttle.Add(email, attempts+1)
}

func (s *Service) countSignIn(result string) {
	if s.metrics != nil {
		s.metrics.SignInsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countSessionOp(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case errors.Is(err, ErrSessionNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	s.metrics.SessionOpsTotal.WithLabelValues(op, result).Inc()
}
