package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vontta/internal/aggregate"
	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/engine/auth"
	"vontta/internal/repo"
)

const copySuffix = " (Cópia)"

// TaskInput holds the fields of a new task. Empty optional fields take
// defaults: the actor as collaborator, medium priority, pending status,
// today's date and 00:00 hours.
type TaskInput struct {
	ProjectID         string `json:"project_id"`
	CollaboratorID    string `json:"collaborator_id,omitempty"`
	PlannedActivity   string `json:"planned_activity"`
	DeliveredActivity string `json:"delivered_activity,omitempty"`
	Priority          string `json:"priority,omitempty" enum:"Baixa,Média,Alta,Crítica"`
	Status            string `json:"status,omitempty" enum:"Pendente,Em Andamento,Concluído,Bloqueado"`
	DueDate           string `json:"due_date,omitempty"`
	HoursDedicated    string `json:"hours_dedicated,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

func validateHours(h string) error {
	if _, ok := aggregate.ParseDuration(h); !ok {
		return domain.ValidationError{Field: "hours_dedicated", Message: fmt.Sprintf("%q is not an HH:mm duration", h)}
	}
	return nil
}

// resolveSector snapshots the project's sector name. Unknown projects are a
// validation error rather than a missing resource.
func (e Engine) resolveSector(ctx context.Context, tx *sql.Tx, projectID string) (string, error) {
	sector, err := e.Repo.ProjectSectorName(ctx, tx, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", domain.ValidationError{Field: "project_id", Message: fmt.Sprintf("project %s does not exist", projectID)}
	}
	return sector, err
}

func (e Engine) CreateTask(ctx context.Context, actorID string, in TaskInput) (domain.Task, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	t := domain.Task{
		ID:                uuid.NewString(),
		ProjectID:         strings.TrimSpace(in.ProjectID),
		CollaboratorID:    in.CollaboratorID,
		PlannedActivity:   strings.TrimSpace(in.PlannedActivity),
		DeliveredActivity: in.DeliveredActivity,
		Priority:          in.Priority,
		Status:            in.Status,
		DueDate:           in.DueDate,
		HoursDedicated:    in.HoursDedicated,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if t.CollaboratorID == "" {
		t.CollaboratorID = actor.ID
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Status == "" {
		t.Status = domain.StatusPending
	}
	if t.DueDate == "" {
		t.DueDate = e.today()
	}
	if t.HoursDedicated == "" {
		t.HoursDedicated = domain.ZeroHours
	}
	if err := auth.CanEditTask(actor, t); err != nil {
		return domain.Task{}, err
	}
	return e.insertTask(ctx, actor.ID, t, "Nova atividade: "+t.PlannedActivity)
}

func (e Engine) insertTask(ctx context.Context, actorID string, t domain.Task, description string) (domain.Task, error) {
	if err := domain.ValidateTask(t); err != nil {
		return domain.Task{}, err
	}
	if err := validateHours(t.HoursDedicated); err != nil {
		return domain.Task{}, err
	}
	err := e.write(ctx, []cache.Table{cache.TableTasks}, domain.ActionCreate, actorID, description, func(tx *sql.Tx) error {
		sector, err := e.resolveSector(ctx, tx, t.ProjectID)
		if err != nil {
			return err
		}
		t.Sector = sector
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

// UpdateTask applies patch to the task. The sector snapshot is re-derived
// only when the patch moves the task to another project.
func (e Engine) UpdateTask(ctx context.Context, actorID, id string, patch domain.TaskPatch) (domain.Task, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	var out domain.Task
	err = e.mutateTask(ctx, actor, id, domain.ActionUpdate, func(tx *sql.Tx, t domain.Task) (domain.Task, string, error) {
		out = t
		if patch.Empty() {
			return t, "", errNoChange
		}
		next := patch.Apply(t)
		if patch.CollaboratorID != nil && !actor.IsAdmin() && next.CollaboratorID != actor.ID {
			return t, "", auth.ForbiddenError{Permission: auth.PermEditTask}
		}
		if patch.ReassignsProject(t) {
			sector, err := e.resolveSector(ctx, tx, next.ProjectID)
			if err != nil {
				return t, "", err
			}
			next.Sector = sector
		}
		if err := domain.ValidateTask(next); err != nil {
			return t, "", err
		}
		if err := validateHours(next.HoursDedicated); err != nil {
			return t, "", err
		}
		out = next
		return next, "Atividade atualizada: " + next.PlannedActivity, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return domain.Task{}, err
	}
	return out, nil
}

var errNoChange = errors.New("no change")

// mutateTask loads the task inside a transaction, checks the actor may edit
// it, and stores what fn returns. fn returning errNoChange skips the write.
func (e Engine) mutateTask(ctx context.Context, actor domain.Profile, id, action string, fn func(tx *sql.Tx, t domain.Task) (domain.Task, string, error)) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	t, err := e.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := auth.CanEditTask(actor, t); err != nil {
		return err
	}
	next, description, err := fn(tx, t)
	if err != nil {
		return err
	}
	next.UpdatedAt = e.timestamp()
	if err := e.Repo.UpdateTask(ctx, tx, next); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := e.audit().Append(ctx, tx, action, actor.ID, description); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.refresh(ctx, cache.TableTasks)
	return nil
}

func (e Engine) DeleteTask(ctx context.Context, actorID, id string) error {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return err
	}
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanEditTask(actor, t); err != nil {
		return err
	}
	return e.write(ctx, []cache.Table{cache.TableTasks}, domain.ActionDelete, actor.ID, "Atividade removida: "+t.PlannedActivity, func(tx *sql.Tx) error {
		return e.Repo.DeleteTask(ctx, tx, id)
	})
}

// DuplicateTask copies a task for the acting user as a fresh pending entry.
func (e Engine) DuplicateTask(ctx context.Context, actorID, id string) (domain.Task, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	src, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	t := domain.Task{
		ID:              uuid.NewString(),
		ProjectID:       src.ProjectID,
		CollaboratorID:  actor.ID,
		PlannedActivity: src.PlannedActivity + copySuffix,
		Priority:        src.Priority,
		Status:          domain.StatusPending,
		DueDate:         src.DueDate,
		HoursDedicated:  domain.ZeroHours,
		Notes:           src.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := domain.ValidateTask(t); err != nil {
		return domain.Task{}, err
	}
	// The copy keeps the source's sector snapshot.
	err = e.write(ctx, []cache.Table{cache.TableTasks}, domain.ActionCreate, actor.ID, "Atividade duplicada: "+t.PlannedActivity, func(tx *sql.Tx) error {
		t.Sector = src.Sector
		return e.Repo.InsertTask(ctx, tx, t)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ToggleCompletion flips between completed and pending. Completing a task
// with no delivered activity records the planned one as delivered.
func (e Engine) ToggleCompletion(ctx context.Context, actorID, id string) (domain.Task, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	var out domain.Task
	err = e.mutateTask(ctx, actor, id, domain.ActionUpdate, func(tx *sql.Tx, t domain.Task) (domain.Task, string, error) {
		if t.Completed() {
			t.Status = domain.StatusPending
			out = t
			return t, "Atividade reaberta: " + t.PlannedActivity, nil
		}
		t.Status = domain.StatusCompleted
		if strings.TrimSpace(t.DeliveredActivity) == "" {
			t.DeliveredActivity = t.PlannedActivity
		}
		out = t
		return t, "Atividade concluída: " + t.PlannedActivity, nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return out, nil
}

// MoveTaskDate reschedules a task to date. Completed tasks stay put; moving
// to the current date writes nothing.
func (e Engine) MoveTaskDate(ctx context.Context, actorID, id, date string) (domain.Task, error) {
	if !domain.ValidDate(date) {
		return domain.Task{}, domain.ValidationError{Field: "due_date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", date)}
	}
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	var out domain.Task
	err = e.mutateTask(ctx, actor, id, domain.ActionUpdate, func(tx *sql.Tx, t domain.Task) (domain.Task, string, error) {
		out = t
		if t.DueDate == date {
			return t, "", errNoChange
		}
		if t.Completed() {
			return t, "", domain.ValidationError{Field: "status", Message: "completed tasks cannot be moved"}
		}
		t.DueDate = date
		out = t
		return t, fmt.Sprintf("Atividade movida para %s: %s", date, t.PlannedActivity), nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return domain.Task{}, err
	}
	return out, nil
}

// QuickAddInput is the planner's one-line task entry.
type QuickAddInput struct {
	ProjectID string `json:"project_id"`
	Activity  string `json:"activity"`
	Date      string `json:"date,omitempty" format:"date"`
}

// QuickAdd creates a pending, medium priority task for the actor on date.
func (e Engine) QuickAdd(ctx context.Context, actorID string, in QuickAddInput) (domain.Task, error) {
	if strings.TrimSpace(in.Activity) == "" {
		return domain.Task{}, domain.ValidationError{Field: "activity", Message: "is required"}
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return domain.Task{}, domain.ValidationError{Field: "project_id", Message: "is required"}
	}
	return e.CreateTask(ctx, actorID, TaskInput{
		ProjectID:       in.ProjectID,
		PlannedActivity: in.Activity,
		Priority:        domain.PriorityMedium,
		Status:          domain.StatusPending,
		DueDate:         in.Date,
		HoursDedicated:  domain.ZeroHours,
	})
}
