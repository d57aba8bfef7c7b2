package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"labsite/internal/types"
)

// MagicLinkRepository provides data access for the magic_link_tokens table.
// Tokens are stored as SHA-256 hashes; the raw token never touches the
// database.
type MagicLinkRepository struct {
	db DBTX
}

// NewMagicLinkRepository creates a new MagicLinkRepository backed by the
// given database connection (pool or transaction).
func NewMagicLinkRepository(db DBTX) *MagicLinkRepository {
	return &MagicLinkRepository{db: db}
}

// Create stores a new token hash for the given email.
func (r *MagicLinkRepository) Create(ctx context.Context, token *types.MagicLinkToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO magic_link_tokens (token_hash, email, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token.TokenHash,
		token.Email,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store login token", err)
	}
	return nil
}

// Consume atomically marks an unexpired, unconsumed token as used and
// returns the email it was issued for. A second Consume of the same hash,
// or a Consume after expiry, returns ErrAuthLinkInvalid. The single UPDATE
// with the consumed_at IS NULL guard is what makes the token single-use
// under concurrent verification attempts.
func (r *MagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE magic_link_tokens
		 SET consumed_at = $2
		 WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
		 RETURNING email`,
		tokenHash,
		now,
	)
	var email string
	if err := row.Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.NewAppError(types.ErrCodeAuthLinkInvalid, "login link is invalid or has expired", nil)
		}
		return "", types.NewAppError(types.ErrCodeInternalDB, "failed to verify login token", err)
	}
	return email, nil
}

// DeleteExpired removes tokens past their expiry. Called opportunistically
// so the table does not accumulate dead rows.
func (r *MagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM magic_link_tokens WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune login tokens", err)
	}
	return tag.RowsAffected(), nil
}
