package repositories

import (
	"context"
	"time"

	"github.com/upb/campusiq-portal/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// CredentialRepository handles persisted session credentials.
// Load, Save and Delete make it usable as the session credential store.
type CredentialRepository interface {
	// Get retrieves the credential row for a session
	Get(ctx context.Context, sessionID string) (*models.SessionCredential, error)

	// Load returns the bearer token for a session
	Load(ctx context.Context, sessionID string) (string, error)

	// Save creates or replaces the credential for a session
	Save(ctx context.Context, sessionID, token string) error

	// Delete removes the credential for a session
	Delete(ctx context.Context, sessionID string) error

	// Rotate moves a credential to a new session ID atomically
	Rotate(ctx context.Context, oldSessionID, newSessionID string) error

	// PurgeStale removes credentials not updated since before
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Credentials CredentialRepository
}
