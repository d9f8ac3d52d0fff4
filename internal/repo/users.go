package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bobemploi/internal/domain"
)

// UserRecord is a stored account. User holds the document sent to clients.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	User         *domain.User
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// InsertUser stores a new account.
func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, rec UserRecord) error {
	if rec.ID == "" {
		return errors.New("id required")
	}
	if rec.User == nil {
		rec.User = &domain.User{UserID: rec.ID}
	}
	data, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	email := normalizeEmail(rec.Email)
	if email != "" {
		if _, err := r.getUser(ctx, tx, `email=?`, email); err == nil {
			return ErrEmailTaken
		}
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO users(id,email,password_hash,user_json,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		rec.ID, nullable(email), nullable(rec.PasswordHash), string(data), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	return err
}

// UpdateUser replaces the user document. The email column follows the profile.
func (r Repo) UpdateUser(ctx context.Context, tx *sql.Tx, u *domain.User, now time.Time) error {
	if u == nil || u.UserID == "" {
		return errors.New("user id required")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	res, err := r.conn(tx).ExecContext(ctx, `UPDATE users SET user_json=?, email=COALESCE(?, email), updated_at=? WHERE id=?`,
		string(data), nullable(normalizeEmail(u.Profile.Email)), formatTime(now), u.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored password hash of a user.
func (r Repo) SetPasswordHash(ctx context.Context, tx *sql.Tx, userID, hash string, now time.Time) error {
	res, err := r.conn(tx).ExecContext(ctx, `UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, hash, formatTime(now), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetUser(ctx context.Context, id string) (UserRecord, error) {
	return r.getUser(ctx, nil, `id=?`, id)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id string) (UserRecord, error) {
	return r.getUser(ctx, tx, `id=?`, id)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return r.getUser(ctx, nil, `email=?`, normalizeEmail(email))
}

func (r Repo) getUser(ctx context.Context, tx *sql.Tx, where string, arg string) (UserRecord, error) {
	row := r.conn(tx).QueryRowContext(ctx, `SELECT id, COALESCE(email,''), COALESCE(password_hash,''), user_json, created_at, updated_at FROM users WHERE `+where+` LIMIT 1`, arg)
	var rec UserRecord
	var data, created, updated string
	err := row.Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, err
	}
	rec.User = &domain.User{}
	if err := json.Unmarshal([]byte(data), rec.User); err != nil {
		return UserRecord{}, fmt.Errorf("decode user %s: %w", rec.ID, err)
	}
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return rec, nil
}

// DeleteUser removes the account and its app uses.
func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	res, err := r.conn(tx).ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the number of stored accounts.
func (r Repo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
