package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bobemploi/internal/domain"
)

func (r Repo) InsertDashboardExport(ctx context.Context, tx *sql.Tx, exp domain.DashboardExport) error {
	if exp.DashboardExportID == "" {
		return errors.New("id required")
	}
	data, err := json.Marshal(exp.Projects)
	if err != nil {
		return fmt.Errorf("marshal projects: %w", err)
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO dashboard_exports(id,user_id,projects_json,created_at) VALUES (?,?,?,?)`,
		exp.DashboardExportID, exp.UserID, string(data), formatTime(exp.CreatedAt))
	return err
}

func (r Repo) GetDashboardExport(ctx context.Context, id string) (domain.DashboardExport, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,user_id,projects_json,created_at FROM dashboard_exports WHERE id=?`, id)
	var exp domain.DashboardExport
	var data, created string
	err := row.Scan(&exp.DashboardExportID, &exp.UserID, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DashboardExport{}, ErrNotFound
	}
	if err != nil {
		return domain.DashboardExport{}, err
	}
	if err := json.Unmarshal([]byte(data), &exp.Projects); err != nil {
		return domain.DashboardExport{}, fmt.Errorf("decode export %s: %w", id, err)
	}
	exp.CreatedAt = parseTime(created)
	return exp, nil
}
