// Package archive closes weeks into WeeklyHistory records and serves the
// archived records back: renaming and report rows for export.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vontta/internal/aggregate"
	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/repo"
)

// ClosureDescription is the audit text written for every closed week.
const ClosureDescription = "Semana fechada e dados resetados."

// PeriodStart values.
const (
	PeriodClosure = "closure"
	PeriodMonday  = "monday"
)

// Store is the write side used by the workflow.
type Store interface {
	InsertHistory(ctx context.Context, h domain.WeeklyHistory) error
	DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error)
	UpdateHistoryTitle(ctx context.Context, id, title string) error
	GetHistory(ctx context.Context, id string) (domain.WeeklyHistory, error)
}

// Auditor records activity entries. events.Writer satisfies it.
type Auditor interface {
	Append(ctx context.Context, tx *sql.Tx, action, userID, description string) error
}

// Archiver runs the week-closing transition against a cache snapshot.
type Archiver struct {
	Store  Store
	Cache  *cache.Cache
	Audit  Auditor
	Logger *slog.Logger

	Now   func() time.Time
	NewID func() string
	// Location is used to find Monday when PeriodStart is PeriodMonday.
	Location    *time.Location
	PeriodStart string
}

// Cleanup reports which live collections were cleared after archiving.
type Cleanup struct {
	TasksDeleted      bool `json:"tasks_deleted"`
	BoardTasksDeleted bool `json:"board_tasks_deleted"`
}

// CloseResult is returned once the history record exists. Archived is true
// even when Cleanup shows live rows were left behind.
type CloseResult struct {
	Archived       bool    `json:"archived"`
	HistoryID      string  `json:"history_id"`
	TotalHours     string  `json:"total_hours"`
	TasksCompleted int     `json:"tasks_completed"`
	TasksPending   int     `json:"tasks_pending"`
	Cleanup        Cleanup `json:"cleanup"`
}

// FullyClosed reports whether both live collections were cleared.
func (r CloseResult) FullyClosed() bool {
	return r.Archived && r.Cleanup.TasksDeleted && r.Cleanup.BoardTasksDeleted
}

func (a Archiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Archiver) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

func (a Archiver) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// CloseWeek re-reads the live tasks and board tasks into the cache, archives
// that snapshot into one WeeklyHistory and then deletes exactly those rows.
// If the re-read or the history insert fails nothing is deleted and the
// error is returned. Once the record exists the remaining steps ignore ctx
// cancellation. Delete failures are logged and reported through
// CloseResult.Cleanup.
func (a Archiver) CloseWeek(ctx context.Context, actorID string) (CloseResult, error) {
	if err := a.Cache.Refresh(ctx, cache.TableTasks, cache.TableBoardTasks); err != nil {
		return CloseResult{}, fmt.Errorf("read live week: %w", err)
	}
	tasks, board := a.Cache.Snapshot()
	completion := aggregate.CompletionRate(tasks)
	closedAt := a.now().UTC()

	h := domain.WeeklyHistory{
		ID:             a.newID(),
		StartDate:      a.periodStart(closedAt).Format(time.RFC3339),
		EndDate:        closedAt.Format(time.RFC3339),
		TotalHours:     aggregate.TotalHours(tasks, ""),
		TasksCompleted: completion.Completed,
		TasksPending:   completion.Pending,
		Tasks:          tasks,
		BoardTasks:     board,
		CreatedAt:      closedAt.Format(time.RFC3339),
	}
	if err := a.Store.InsertHistory(ctx, h); err != nil {
		return CloseResult{}, fmt.Errorf("archive week: %w", err)
	}
	ctx = context.WithoutCancel(ctx)
	log := a.logger().With("history_id", h.ID)

	res := CloseResult{
		Archived:       true,
		HistoryID:      h.ID,
		TotalHours:     h.TotalHours,
		TasksCompleted: h.TasksCompleted,
		TasksPending:   h.TasksPending,
	}
	res.Cleanup.TasksDeleted = a.deleteCaptured(ctx, log, repo.TableTasks, taskIDs(tasks))
	res.Cleanup.BoardTasksDeleted = a.deleteCaptured(ctx, log, repo.TableBoardTasks, boardIDs(board))

	if a.Audit != nil {
		if err := a.Audit.Append(ctx, nil, domain.ActionDelete, actorID, ClosureDescription); err != nil {
			log.Warn("week closed without audit entry", "error", err)
		}
	}
	if err := a.Cache.Refresh(ctx, cache.TableTasks, cache.TableBoardTasks, cache.TableHistory, cache.TableActivity); err != nil {
		log.Warn("cache refresh after week close failed", "error", err)
	}
	log.Info("week closed",
		"tasks", len(tasks),
		"board_tasks", len(board),
		"total_hours", h.TotalHours,
		"fully_closed", res.FullyClosed())
	return res, nil
}

func (a Archiver) deleteCaptured(ctx context.Context, log *slog.Logger, table string, ids []string) bool {
	n, err := a.Store.DeleteByIDs(ctx, table, ids)
	if err != nil {
		log.Error("week close cleanup failed", "table", table, "captured", len(ids), "deleted", n, "error", err)
		return false
	}
	return true
}

// periodStart is the closure instant itself unless configured to start on
// the Monday of the closing week.
func (a Archiver) periodStart(closedAt time.Time) time.Time {
	if a.PeriodStart != PeriodMonday {
		return closedAt
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	return MondayOf(closedAt, loc).UTC()
}

// MondayOf returns 00:00 on the Monday of t's week in loc.
func MondayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// RenameHistory sets the title of one history record. The archived
// collections are untouched.
func (a Archiver) RenameHistory(ctx context.Context, actorID, id, title string) (domain.WeeklyHistory, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.WeeklyHistory{}, domain.ValidationError{Field: "title", Message: "is required"}
	}
	if err := a.Store.UpdateHistoryTitle(ctx, id, title); err != nil {
		return domain.WeeklyHistory{}, err
	}
	h, err := a.Store.GetHistory(ctx, id)
	if err != nil {
		return domain.WeeklyHistory{}, err
	}
	if a.Audit != nil {
		if err := a.Audit.Append(ctx, nil, domain.ActionUpdate, actorID, fmt.Sprintf("Histórico renomeado: %s", title)); err != nil {
			a.logger().Warn("history renamed without audit entry", "history_id", id, "error", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Refresh(ctx, cache.TableHistory, cache.TableActivity); err != nil {
			a.logger().Warn("cache refresh after rename failed", "history_id", id, "error", err)
		}
	}
	return h, nil
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func boardIDs(board []domain.BoardTask) []string {
	ids := make([]string, len(board))
	for i, b := range board {
		ids[i] = b.ID
	}
	return ids
}
