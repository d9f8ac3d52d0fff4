package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Session is the CLI login kept per backend host.
type Session struct {
	Host      string
	UserID    string
	Email     string
	AuthToken string
	UpdatedAt time.Time
}

func (r Repo) UpsertSession(ctx context.Context, s Session) error {
	if s.Host == "" || s.UserID == "" || s.AuthToken == "" {
		return errors.New("host, user_id and auth_token required")
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(host,user_id,email,auth_token,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(host) DO UPDATE SET user_id=excluded.user_id, email=excluded.email, auth_token=excluded.auth_token, updated_at=excluded.updated_at`,
		s.Host, s.UserID, nullable(s.Email), s.AuthToken, formatTime(s.UpdatedAt))
	return err
}

func (r Repo) GetSession(ctx context.Context, host string) (Session, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT host,user_id,COALESCE(email,''),auth_token,updated_at FROM sessions WHERE host=?`, host)
	var s Session
	var updated string
	err := row.Scan(&s.Host, &s.UserID, &s.Email, &s.AuthToken, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.UpdatedAt = parseTime(updated)
	return s, nil
}

// DeleteSession forgets the login and the state snapshot of the host.
func (r Repo) DeleteSession(ctx context.Context, host string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE host=?`, host); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM state_snapshots WHERE host=?`, host); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSnapshot stores the serialized client state of the host.
func (r Repo) SaveSnapshot(ctx context.Context, host string, state []byte, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO state_snapshots(host,state_json,updated_at) VALUES (?,?,?)
ON CONFLICT(host) DO UPDATE SET state_json=excluded.state_json, updated_at=excluded.updated_at`,
		host, string(state), formatTime(now))
	return err
}

func (r Repo) LoadSnapshot(ctx context.Context, host string) ([]byte, error) {
	var data string
	err := r.DB.QueryRowContext(ctx, `SELECT state_json FROM state_snapshots WHERE host=?`, host).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}
