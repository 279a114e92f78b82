package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vontta/internal/domain"
)

const boardColumns = `id,title,COALESCE(description,''),COALESCE(start_date,''),COALESCE(end_date,''),member_ids_json,status,subtasks_json,created_at,updated_at`

func scanBoardTask(row rowScanner) (domain.BoardTask, error) {
	var b domain.BoardTask
	var members, subtasks string
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.StartDate, &b.EndDate, &members, &b.Status, &subtasks, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal([]byte(members), &b.MemberIDs); err != nil {
		return b, fmt.Errorf("board task %s member_ids: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(subtasks), &b.Subtasks); err != nil {
		return b, fmt.Errorf("board task %s subtasks: %w", b.ID, err)
	}
	if b.MemberIDs == nil {
		b.MemberIDs = []string{}
	}
	if b.Subtasks == nil {
		b.Subtasks = []domain.Subtask{}
	}
	return b, nil
}

func encodeBoardLists(b domain.BoardTask) (string, string, error) {
	members := b.MemberIDs
	if members == nil {
		members = []string{}
	}
	subtasks := b.Subtasks
	if subtasks == nil {
		subtasks = []domain.Subtask{}
	}
	m, err := json.Marshal(members)
	if err != nil {
		return "", "", err
	}
	s, err := json.Marshal(subtasks)
	if err != nil {
		return "", "", err
	}
	return string(m), string(s), nil
}

func (r Repo) InsertBoardTask(ctx context.Context, tx *sql.Tx, b domain.BoardTask) error {
	members, subtasks, err := encodeBoardLists(b)
	if err != nil {
		return err
	}
	_, err = r.on(tx).ExecContext(ctx, `INSERT INTO board_tasks(id,title,description,start_date,end_date,member_ids_json,status,subtasks_json,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.Title, nullable(b.Description), nullable(b.StartDate), nullable(b.EndDate), members, b.Status, subtasks, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r Repo) UpdateBoardTask(ctx context.Context, tx *sql.Tx, b domain.BoardTask) error {
	members, subtasks, err := encodeBoardLists(b)
	if err != nil {
		return err
	}
	res, err := r.on(tx).ExecContext(ctx, `UPDATE board_tasks SET title=?, description=?, start_date=?, end_date=?, member_ids_json=?, status=?, subtasks_json=?, updated_at=? WHERE id=?`,
		b.Title, nullable(b.Description), nullable(b.StartDate), nullable(b.EndDate), members, b.Status, subtasks, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) GetBoardTask(ctx context.Context, id string) (domain.BoardTask, error) {
	return scanBoardTask(r.DB.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM board_tasks WHERE id=?`, id))
}

func (r Repo) GetBoardTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.BoardTask, error) {
	return scanBoardTask(tx.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM board_tasks WHERE id=?`, id))
}

func (r Repo) DeleteBoardTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.on(tx).ExecContext(ctx, `DELETE FROM board_tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// ListBoardTasks returns every card, optionally restricted to one column.
func (r Repo) ListBoardTasks(ctx context.Context, status string) ([]domain.BoardTask, error) {
	query := `SELECT ` + boardColumns + ` FROM board_tasks`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.BoardTask{}
	for rows.Next() {
		b, err := scanBoardTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}
