package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"bobemploi/internal/domain"
)

func (r Repo) InsertFeedback(ctx context.Context, tx *sql.Tx, fb domain.Feedback) error {
	if strings.TrimSpace(fb.Feedback) == "" {
		return errors.New("feedback required")
	}
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO feedback(user_id,project_id,action_id,advice_id,source,feedback,created_at) VALUES (?,?,?,?,?,?,?)`,
		nullable(fb.UserID), nullable(fb.ProjectID), nullable(fb.ActionID), nullable(fb.AdviceID), nullable(fb.Source), fb.Feedback, formatTime(fb.CreatedAt))
	return err
}

// ListFeedback returns the feedback of a user, oldest first. An empty user id
// lists anonymous feedback.
func (r Repo) ListFeedback(ctx context.Context, userID string) ([]domain.Feedback, error) {
	query := `SELECT COALESCE(user_id,''),COALESCE(project_id,''),COALESCE(action_id,''),COALESCE(advice_id,''),COALESCE(source,''),feedback,created_at FROM feedback`
	var args []any
	if userID == "" {
		query += ` WHERE user_id IS NULL`
	} else {
		query += ` WHERE user_id=?`
		args = append(args, userID)
	}
	query += ` ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		var created string
		if err := rows.Scan(&fb.UserID, &fb.ProjectID, &fb.ActionID, &fb.AdviceID, &fb.Source, &fb.Feedback, &created); err != nil {
			return nil, err
		}
		fb.CreatedAt = parseTime(created)
		out = append(out, fb)
	}
	return out, rows.Err()
}

func (r Repo) InsertAppUse(ctx context.Context, tx *sql.Tx, userID string, ts time.Time) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO app_uses(user_id, ts) VALUES (?,?)`, userID, formatTime(ts))
	return err
}

func (r Repo) CountAppUses(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_uses WHERE user_id=?`, userID).Scan(&n)
	return n, err
}
