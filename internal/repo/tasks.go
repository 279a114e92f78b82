package repo

import (
	"context"
	"database/sql"
	"strings"

	"vontta/internal/domain"
)

const taskColumns = `id,project_id,collaborator_id,COALESCE(sector,''),planned_activity,COALESCE(delivered_activity,''),priority,status,due_date,hours_dedicated,COALESCE(notes,''),created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.CollaboratorID, &t.Sector, &t.PlannedActivity, &t.DeliveredActivity,
		&t.Priority, &t.Status, &t.DueDate, &t.HoursDedicated, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.on(tx).ExecContext(ctx, `INSERT INTO tasks(id,project_id,collaborator_id,sector,planned_activity,delivered_activity,priority,status,due_date,hours_dedicated,notes,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.CollaboratorID, nullable(t.Sector), t.PlannedActivity, nullable(t.DeliveredActivity),
		t.Priority, t.Status, t.DueDate, t.HoursDedicated, nullable(t.Notes), t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTask overwrites every mutable column of the stored task.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := r.on(tx).ExecContext(ctx, `UPDATE tasks SET project_id=?, collaborator_id=?, sector=?, planned_activity=?, delivered_activity=?, priority=?, status=?, due_date=?, hours_dedicated=?, notes=?, updated_at=? WHERE id=?`,
		t.ProjectID, t.CollaboratorID, nullable(t.Sector), t.PlannedActivity, nullable(t.DeliveredActivity), t.Priority,
		t.Status, t.DueDate, t.HoursDedicated, nullable(t.Notes), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

type TaskFilters struct {
	CollaboratorID string
	ProjectID      string
	Status         string
	DueFrom        string
	DueTo          string
	Limit          int
}

// ListTasks returns tasks ordered by due date then creation time. A zero
// filter returns the whole table.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.CollaboratorID != "" {
		clauses = append(clauses, "collaborator_id=?")
		args = append(args, f.CollaboratorID)
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.DueFrom != "" {
		clauses = append(clauses, "due_date >= ?")
		args = append(args, f.DueFrom)
	}
	if f.DueTo != "" {
		clauses = append(clauses, "due_date <= ?")
		args = append(args, f.DueTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY due_date ASC, created_at ASC, id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
