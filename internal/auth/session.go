package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/campusiq-portal/internal/observability"
	"github.com/upb/campusiq-portal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const defaultResolveTimeout = 10 * time.Second

// Observer receives every AuthState transition of a session.
// Observers must not call Login or Logout on the session that notifies them.
type Observer func(models.AuthState)

type observerEntry struct {
	id uint64
	fn Observer
}

// resolution is the recorded outcome of Initialize
type resolution struct {
	principal *models.Principal
	err       error
}

// Session is the identity context of one browser.
//
// State is published as immutable snapshots. Transitions are serialized
// by transitionMu and observers run synchronously inside the transition,
// so every observer sees transitions in the order they happened.
type Session struct {
	id             string
	identity       IdentityProvider
	store          CredentialStore
	logger         *zap.Logger
	metrics        *observability.Metrics
	resolveTimeout time.Duration
	now            func() time.Time

	state        atomic.Pointer[models.AuthState]
	transitionMu sync.Mutex
	settled      chan struct{}
	settleOnce   sync.Once

	observerMu   sync.Mutex
	observers    []observerEntry
	nextObserver uint64

	group    singleflight.Group
	outcome  atomic.Pointer[resolution]
	lastSeen atomic.Int64
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithResolveTimeout bounds identity resolution
func WithResolveTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.resolveTimeout = d
		}
	}
}

// WithSessionMetrics records resolution results
func WithSessionMetrics(m *observability.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a session in the resolving state
func NewSession(id string, identity IdentityProvider, store CredentialStore, logger *zap.Logger, opts ...SessionOption) *Session {
	s := &Session{
		id:             id,
		identity:       identity,
		store:          store,
		logger:         logger.With(zap.String("session_id", id)),
		resolveTimeout: defaultResolveTimeout,
		now:            time.Now,
		settled:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	initial := models.ResolvingState()
	s.state.Store(&initial)
	s.Touch()
	return s
}

// ID returns the opaque session identifier
func (s *Session) ID() string {
	return s.id
}

// CurrentState returns the latest snapshot
func (s *Session) CurrentState() models.AuthState {
	return *s.state.Load()
}

// Settled returns a channel that is closed once the session leaves the
// resolving state
func (s *Session) Settled() <-chan struct{} {
	return s.settled
}

// Await blocks until the session has settled or ctx ends
func (s *Session) Await(ctx context.Context) (models.AuthState, error) {
	select {
	case <-s.settled:
		return s.CurrentState(), nil
	default:
	}

	select {
	case <-s.settled:
		return s.CurrentState(), nil
	case <-ctx.Done():
		return s.CurrentState(), ctx.Err()
	}
}

// Initialize resolves the persisted credential into a principal.
//
// Concurrent callers share one resolution. Once resolution has finished,
// later calls return its outcome without contacting the API. The
// resolution itself is detached from ctx so an abandoned request does not
// strand the session; ctx only bounds how long this caller waits.
func (s *Session) Initialize(ctx context.Context) (*models.Principal, error) {
	if out := s.outcome.Load(); out != nil {
		return out.principal, out.err
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan("initialize", func() (any, error) {
		if out := s.outcome.Load(); out != nil {
			return out.principal, out.err
		}
		principal, err := s.resolve(detached)
		s.outcome.Store(&resolution{principal: principal, err: err})
		return principal, err
	})

	select {
	case res := <-ch:
		principal, _ := res.Val.(*models.Principal)
		return principal, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) resolve(ctx context.Context) (principal *models.Principal, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	ctx, span := observability.StartResolveSpan(ctx)
	defer func() { observability.EndSpan(span, err) }()

	token, err := s.store.Load(ctx, s.id)
	if errors.Is(err, ErrNoCredential) || (err == nil && token == "") {
		s.settleResolution(nil, "anonymous")
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to load credential", zap.Error(err))
		s.settleResolution(nil, "store_error")
		return nil, fmt.Errorf("load credential: %w", err)
	}

	if expired(token, s.now()) {
		s.logger.Debug("persisted credential expired")
		s.discardStale(ctx)
		s.settleResolution(nil, "expired")
		return nil, nil
	}

	principal, err = s.identity.Resolve(ctx, token)
	if err != nil {
		if reason := ReasonOf(err); reason != "" && reason != ReasonBackend {
			s.discardStale(ctx)
		}
		s.logger.Warn("identity resolution failed", zap.Error(err))
		s.settleResolution(nil, "rejected")
		return nil, err
	}

	s.logger.Debug("identity resolved",
		zap.Int("user_id", principal.ID),
		zap.String("role", string(principal.Role)))
	s.settleResolution(principal, "authenticated")
	return principal, nil
}

// settleResolution publishes the result of Initialize unless a login or
// logout already settled the session
func (s *Session) settleResolution(principal *models.Principal, result string) {
	s.metrics.RecordSessionResolution(result)

	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	if !s.CurrentState().Resolving {
		return
	}
	s.transition(models.SettledState(principal))
}

// Login authenticates cred and replaces the state with the new principal.
// On failure the state is left unchanged.
func (s *Session) Login(ctx context.Context, cred LoginCredential) (*models.Principal, error) {
	token, err := s.identity.Authenticate(ctx, cred)
	if err != nil {
		return nil, err
	}

	principal, err := s.identity.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	s.transitionMu.Lock()
	if err := s.store.Save(ctx, s.id, token); err != nil {
		s.transitionMu.Unlock()
		return nil, fmt.Errorf("persist credential: %w", err)
	}
	s.transition(models.SettledState(principal))
	s.transitionMu.Unlock()

	s.logger.Info("login succeeded",
		zap.Int("user_id", principal.ID),
		zap.String("role", string(principal.Role)))
	return principal, nil
}

// Logout forgets the credential and settles the session as anonymous.
// The state is replaced even when the store fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.store.Delete(ctx, s.id)

	s.transitionMu.Lock()
	s.transition(models.SettledState(nil))
	s.transitionMu.Unlock()

	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Subscribe registers fn for every later transition
func (s *Session) Subscribe(fn Observer) (unsubscribe func()) {
	s.observerMu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.observerMu.Unlock()

	return func() {
		s.observerMu.Lock()
		defer s.observerMu.Unlock()
		for i, entry := range s.observers {
			if entry.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Token implements oauth2.TokenSource with the current principal's credential
func (s *Session) Token() (*oauth2.Token, error) {
	state := s.CurrentState()
	if state.Principal == nil || state.Principal.Credential == "" {
		return nil, ErrNoCredential
	}

	tok := &oauth2.Token{
		AccessToken: state.Principal.Credential,
		TokenType:   "Bearer",
	}
	if exp, ok := ExpiresAt(tok.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// adopt settles a fresh session with state taken over from another session
func (s *Session) adopt(state models.AuthState) {
	s.outcome.Store(&resolution{principal: state.Principal})

	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()
	s.transition(state)
}

// Touch records activity on the session
func (s *Session) Touch() {
	s.lastSeen.Store(s.now().UnixNano())
}

// IdleFor returns how long the session has been inactive at now
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// transition publishes next and notifies observers. Caller holds transitionMu.
func (s *Session) transition(next models.AuthState) {
	s.state.Store(&next)
	if !next.Resolving {
		s.settleOnce.Do(func() { close(s.settled) })
	}

	s.observerMu.Lock()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.observerMu.Unlock()

	for _, entry := range observers {
		entry.fn(next)
	}
}

// discardStale deletes the persisted credential a resolution rejected.
// Once a login or logout has settled the session the store holds a newer
// credential, so nothing is deleted.
func (s *Session) discardStale(ctx context.Context) {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	if !s.CurrentState().Resolving {
		s.logger.Debug("session settled during resolution, keeping credential")
		return
	}
	s.forget(ctx)
}

func (s *Session) forget(ctx context.Context) {
	if err := s.store.Delete(ctx, s.id); err != nil {
		s.logger.Warn("failed to delete credential", zap.Error(err))
	}
}
