package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vontta/internal/domain"
)

const historyColumns = `id,title,start_date,end_date,total_hours,tasks_completed,tasks_pending,tasks_json,board_tasks_json,created_at`

func scanHistory(row rowScanner) (domain.WeeklyHistory, error) {
	var h domain.WeeklyHistory
	var title sql.NullString
	var tasks, board string
	err := row.Scan(&h.ID, &title, &h.StartDate, &h.EndDate, &h.TotalHours, &h.TasksCompleted, &h.TasksPending, &tasks, &board, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	if err != nil {
		return h, err
	}
	if title.Valid {
		h.Title = &title.String
	}
	if err := json.Unmarshal([]byte(tasks), &h.Tasks); err != nil {
		return h, fmt.Errorf("history %s tasks: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(board), &h.BoardTasks); err != nil {
		return h, fmt.Errorf("history %s board tasks: %w", h.ID, err)
	}
	if h.Tasks == nil {
		h.Tasks = []domain.Task{}
	}
	if h.BoardTasks == nil {
		h.BoardTasks = []domain.BoardTask{}
	}
	return h, nil
}

// InsertHistory stores a closed week. The snapshots are serialized once and
// never rewritten.
func (r Repo) InsertHistory(ctx context.Context, h domain.WeeklyHistory) error {
	if h.ID == "" {
		return errors.New("id required")
	}
	tasks := h.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	board := h.BoardTasks
	if board == nil {
		board = []domain.BoardTask{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks snapshot: %w", err)
	}
	boardJSON, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("marshal board snapshot: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO weekly_history(id,title,start_date,end_date,total_hours,tasks_completed,tasks_pending,tasks_json,board_tasks_json,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		h.ID, nullableStringPtr(h.Title), h.StartDate, h.EndDate, h.TotalHours, h.TasksCompleted, h.TasksPending,
		string(tasksJSON), string(boardJSON), h.CreatedAt)
	return err
}

func (r Repo) GetHistory(ctx context.Context, id string) (domain.WeeklyHistory, error) {
	return scanHistory(r.DB.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM weekly_history WHERE id=?`, id))
}

// ListHistory returns closed weeks, newest first.
func (r Repo) ListHistory(ctx context.Context) ([]domain.WeeklyHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+historyColumns+` FROM weekly_history ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.WeeklyHistory{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

// UpdateHistoryTitle touches only the title column.
func (r Repo) UpdateHistoryTitle(ctx context.Context, id, title string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE weekly_history SET title=? WHERE id=?`, title, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
