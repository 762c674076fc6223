package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/campusiq-portal/internal/auth"
	"github.com/upb/campusiq-portal/models"
	"github.com/upb/campusiq-portal/repositories"
	"go.uber.org/zap"
)

// CredentialRepository implements repositories.CredentialRepository.
// It also satisfies auth.CredentialStore.
type CredentialRepository struct {
	db     *DB
	txm    *TransactionManager
	now    func() time.Time
	logger *zap.Logger
}

var _ repositories.CredentialRepository = (*CredentialRepository)(nil)
var _ auth.CredentialStore = (*CredentialRepository)(nil)

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		txm:    NewTransactionManager(db, logger),
		now:    time.Now,
		logger: logger,
	}
}

// Get retrieves the credential row for a session
func (r *CredentialRepository) Get(ctx context.Context, sessionID string) (*models.SessionCredential, error) {
	query := `
		SELECT session_id, token, created_at, updated_at
		FROM session_credentials
		WHERE session_id = $1
	`

	cred := &models.SessionCredential{}
	err := executorFor(ctx, r.db).QueryRowContext(ctx, query, sessionID).Scan(
		&cred.SessionID,
		&cred.Token,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, auth.ErrNoCredential)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return cred, nil
}

// Load returns the bearer token for a session
func (r *CredentialRepository) Load(ctx context.Context, sessionID string) (string, error) {
	cred, err := r.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Save creates or replaces the credential for a session
func (r *CredentialRepository) Save(ctx context.Context, sessionID, token string) error {
	query := `
		INSERT INTO session_credentials (session_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (session_id)
		DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
	`

	if _, err := executorFor(ctx, r.db).ExecContext(ctx, query, sessionID, token, r.now()); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	r.logger.Debug("credential saved", zap.String("session_id", sessionID))
	return nil
}

// Delete removes the credential for a session. Deleting nothing is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM session_credentials WHERE session_id = $1`

	if _, err := executorFor(ctx, r.db).ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	r.logger.Debug("credential deleted", zap.String("session_id", sessionID))
	return nil
}

// Rotate moves the credential of oldSessionID to newSessionID in one transaction
func (r *CredentialRepository) Rotate(ctx context.Context, oldSessionID, newSessionID string) error {
	return r.txm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		cred, err := r.Get(ctx, oldSessionID)
		if err != nil {
			return err
		}
		if err := r.Save(ctx, newSessionID, cred.Token); err != nil {
			return err
		}
		return r.Delete(ctx, oldSessionID)
	})
}

// PurgeStale removes credentials not updated since before
func (r *CredentialRepository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM session_credentials WHERE updated_at < $1`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge credentials: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged credentials: %w", err)
	}

	if purged > 0 {
		r.logger.Info("purged stale credentials", zap.Int64("count", purged))
	}
	return purged, nil
}
