package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSessionTTL = 8 * time.Hour

// Manager keeps the live sessions of the gateway, keyed by session ID
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	identity IdentityProvider
	store    CredentialStore
	ttl      time.Duration
	opts     []SessionOption
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a new Manager. Sessions idle for longer than ttl are
// dropped by Sweep; their persisted credentials are kept so a returning
// browser resumes where it left off.
func NewManager(identity IdentityProvider, store CredentialStore, ttl time.Duration, logger *zap.Logger, opts ...SessionOption) *Manager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Manager{
		sessions: make(map[string]*Session),
		identity: identity,
		store:    store,
		ttl:      ttl,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// TTL returns the idle lifetime of a session
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get returns the live session with id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Create starts a session under a fresh ID
func (m *Manager) Create() *Session {
	return m.Resume(uuid.NewString())
}

// Resume returns the session with id, starting one if it is not live.
// A resumed session resolves whatever credential the store still holds.
func (m *Manager) Resume(id string) *Session {
	if s, ok := m.Get(id); ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.Touch()
		return s
	}
	s := NewSession(id, m.identity, m.store, m.logger, m.opts...)
	m.sessions[id] = s
	return s
}

// FromBearer returns an unregistered session that resolves token.
// It serves API callers that present a credential instead of a cookie and
// lives only for one request.
func (m *Manager) FromBearer(token string) *Session {
	store := NewMemoryStore()
	id := "bearer-" + uuid.NewString()
	_ = store.Save(context.Background(), id, token)
	return NewSession(id, m.identity, store, m.logger, m.opts...)
}

// Rotate moves an authenticated session to a fresh ID and returns the new
// session. The old ID stops resolving to anything.
func (m *Manager) Rotate(ctx context.Context, old *Session) (*Session, error) {
	newID := uuid.NewString()

	if r, ok := m.store.(Rotator); ok {
		if err := r.Rotate(ctx, old.ID(), newID); err != nil {
			return nil, fmt.Errorf("rotate session: %w", err)
		}
	} else {
		token, err := m.store.Load(ctx, old.ID())
		if err != nil {
			return nil, fmt.Errorf("rotate session: %w", err)
		}
		if err := m.store.Save(ctx, newID, token); err != nil {
			return nil, fmt.Errorf("rotate session: %w", err)
		}
		if err := m.store.Delete(ctx, old.ID()); err != nil {
			m.logger.Warn("failed to delete rotated credential", zap.Error(err))
		}
	}

	next := NewSession(newID, m.identity, m.store, m.logger, m.opts...)
	next.adopt(old.CurrentState())

	m.mu.Lock()
	delete(m.sessions, old.ID())
	m.sessions[newID] = next
	m.mu.Unlock()

	return next, nil
}

// Remove drops the session with id
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were dropped
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.IdleFor(now) > m.ttl {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("evicted idle sessions",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(m.sessions)))
	}
	return evicted
}

// Run sweeps every interval until ctx ends
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
