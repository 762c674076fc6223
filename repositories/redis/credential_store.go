// Package redis keeps session credentials in Redis so several gateway
// instances can share browser sessions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/campusiq-portal/internal/auth"
	"go.uber.org/zap"
)

// CredentialStore is a Redis-backed auth.CredentialStore. Every key expires
// after the session TTL; reading a credential restarts the clock.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

var _ auth.CredentialStore = (*CredentialStore)(nil)
var _ auth.Rotator = (*CredentialStore)(nil)

// Connect parses url, opens a client and verifies it answers a ping
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewCredentialStore creates a store writing keys under prefix
func NewCredentialStore(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *CredentialStore {
	return &CredentialStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CredentialStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Load returns the credential for sessionID or auth.ErrNoCredential
func (s *CredentialStore) Load(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", auth.ErrNoCredential
	}

	token, err := s.client.GetEx(ctx, s.key(sessionID), s.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("session %s: %w", sessionID, auth.ErrNoCredential)
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

// Save stores token for sessionID, replacing any previous value
func (s *CredentialStore) Save(ctx context.Context, sessionID, token string) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	if err := s.client.Set(ctx, s.key(sessionID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	s.logger.Debug("credential saved", zap.String("session_id", sessionID))
	return nil
}

// Delete removes the credential for sessionID. Deleting nothing is not an error.
func (s *CredentialStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	s.logger.Debug("credential deleted", zap.String("session_id", sessionID))
	return nil
}

// Rotate renames the credential key of oldSessionID to newSessionID.
// RENAME keeps the remaining TTL.
func (s *CredentialStore) Rotate(ctx context.Context, oldSessionID, newSessionID string) error {
	if oldSessionID == "" || newSessionID == "" {
		return auth.ErrNoCredential
	}

	err := s.client.Rename(ctx, s.key(oldSessionID), s.key(newSessionID)).Err()
	if err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return fmt.Errorf("session %s: %w", oldSessionID, auth.ErrNoCredential)
		}
		return fmt.Errorf("redis rename: %w", err)
	}
	return nil
}
