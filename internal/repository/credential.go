package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/auth"
)

const getCredentialByHashSQL = `SELECT id, key_hash, user_id, email, scopes
	FROM credentials WHERE key_hash = $1 AND active = TRUE`

var _ auth.Repository = (*CredentialRepository)(nil)

// CredentialRepository provides access-credential lookups backed by
// PostgreSQL.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the given
// pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// FindByHash looks up an active credential by its HMAC-SHA256 token hash.
func (r *CredentialRepository) FindByHash(ctx context.Context, hash string) (*auth.Credential, error) {
	var c auth.Credential
	err := r.pool.QueryRow(ctx, getCredentialByHashSQL, hash).Scan(
		&c.ID, &c.KeyHash, &c.UserID, &c.Email, &c.Scopes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", err)
		}
		return nil, fmt.Errorf("finding credential by hash: %w", err)
	}
	return &c, nil
}
