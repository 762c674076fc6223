package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredential is returned by a CredentialStore that holds nothing for a session
var ErrNoCredential = errors.New("no credential stored")

// CredentialStore persists the bearer credential of each session
type CredentialStore interface {
	Load(ctx context.Context, sessionID string) (string, error)
	Save(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error
}

// Rotator is implemented by stores that can move a credential to a new
// session ID atomically
type Rotator interface {
	Rotate(ctx context.Context, oldSessionID, newSessionID string) error
}

// MemoryStore is an in-process CredentialStore
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

// Load returns the credential for sessionID or ErrNoCredential
func (s *MemoryStore) Load(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[sessionID]
	if !ok {
		return "", ErrNoCredential
	}
	return token, nil
}

// Save stores token for sessionID, replacing any previous value
func (s *MemoryStore) Save(_ context.Context, sessionID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[sessionID] = token
	return nil
}

// Delete removes the credential for sessionID. Deleting nothing is not an error.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, sessionID)
	return nil
}

// Rotate moves the credential of oldSessionID to newSessionID
func (s *MemoryStore) Rotate(_ context.Context, oldSessionID, newSessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[oldSessionID]
	if !ok {
		return ErrNoCredential
	}
	s.tokens[newSessionID] = token
	delete(s.tokens, oldSessionID)
	return nil
}
