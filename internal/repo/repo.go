package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Tables accepted by DeleteByIDs.
const (
	TableTasks      = "tasks"
	TableBoardTasks = "board_tasks"
)

const deleteChunk = 500

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) on(tx *sql.Tx) queryer {
	if tx != nil {
		return tx
	}
	return r.DB
}

// DeleteByIDs removes rows of table whose id is listed. Only the ids given are
// touched; rows inserted concurrently survive. It returns the number of rows
// removed.
func (r Repo) DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error) {
	switch table {
	case TableTasks, TableBoardTasks:
	default:
		return 0, fmt.Errorf("delete by ids: unsupported table %q", table)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var total int64
	for start := 0; start < len(ids); start += deleteChunk {
		end := start + deleteChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, table, placeholders(len(chunk))), args...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func affectedOrNotFound(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
