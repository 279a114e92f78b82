package repo

import (
	"context"
	"database/sql"

	"vontta/internal/domain"
)

// LatestActivity returns the newest audit entries first.
func (r Repo) LatestActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,COALESCE(user_id,''),action,description,ts FROM activity_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

// ActivityAfter returns entries with id greater than afterID, oldest first.
func (r Repo) ActivityAfter(ctx context.Context, afterID int64, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,COALESCE(user_id,''),action,description,ts FROM activity_logs WHERE id > ? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return scanActivity(rows)
}

func (r Repo) LatestActivityID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM activity_logs`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func scanActivity(rows *sql.Rows) ([]domain.ActivityLog, error) {
	defer rows.Close()
	res := []domain.ActivityLog{}
	for rows.Next() {
		var l domain.ActivityLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Description, &l.TS); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
