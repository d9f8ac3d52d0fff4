package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// HashResetToken returns a stable SHA-256 hex digest for the provided token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// ResetToken is a pending password reset. TokenHash must already contain the
// hashed value.
type ResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (r Repo) InsertResetToken(ctx context.Context, tx *sql.Tx, t ResetToken) error {
	if t.TokenHash == "" {
		return errors.New("token_hash required")
	}
	if t.UserID == "" {
		return errors.New("user_id required")
	}
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO reset_tokens(token_hash, user_id, expires_at, created_at) VALUES (?,?,?,?)`,
		t.TokenHash, t.UserID, formatTime(t.ExpiresAt), formatTime(t.CreatedAt))
	return err
}

// GetResetToken returns a reset token by its hashed value.
func (r Repo) GetResetToken(ctx context.Context, tx *sql.Tx, hash string) (ResetToken, error) {
	row := r.conn(tx).QueryRowContext(ctx, `SELECT token_hash, user_id, expires_at, created_at FROM reset_tokens WHERE token_hash=? LIMIT 1`, hash)
	var t ResetToken
	var expires, created string
	err := row.Scan(&t.TokenHash, &t.UserID, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ResetToken{}, ErrNotFound
	}
	if err != nil {
		return ResetToken{}, err
	}
	t.ExpiresAt = parseTime(expires)
	t.CreatedAt = parseTime(created)
	return t, nil
}

// DeleteResetTokens drops every pending reset of the user.
func (r Repo) DeleteResetTokens(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM reset_tokens WHERE user_id=?`, userID)
	return err
}
