package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vontta/internal/cache"
	"vontta/internal/domain"
	"vontta/internal/repo"
)

type BoardTaskInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	StartDate   string           `json:"start_date,omitempty"`
	EndDate     string           `json:"end_date,omitempty"`
	MemberIDs   []string         `json:"member_ids,omitempty"`
	Status      string           `json:"status,omitempty" enum:"TODO,DOING,DONE,CANCELED"`
	Subtasks    []domain.Subtask `json:"subtasks,omitempty"`
}

func withSubtaskIDs(in []domain.Subtask) []domain.Subtask {
	out := make([]domain.Subtask, len(in))
	for i, st := range in {
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.Title = strings.TrimSpace(st.Title)
		out[i] = st
	}
	return out
}

func (e Engine) ListBoard(ctx context.Context, status string) ([]domain.BoardTask, error) {
	if status != "" && !domain.ValidBoardStatus(status) {
		return nil, domain.ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a board column", status)}
	}
	return e.Repo.ListBoardTasks(ctx, status)
}

func (e Engine) CreateBoardTask(ctx context.Context, actorID string, in BoardTaskInput) (domain.BoardTask, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.BoardTask{}, err
	}
	now := e.timestamp()
	b := domain.BoardTask{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		MemberIDs:   append([]string{}, in.MemberIDs...),
		Status:      in.Status,
		Subtasks:    withSubtaskIDs(in.Subtasks),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if b.Status == "" {
		b.Status = domain.BoardTodo
	}
	if err := domain.ValidateBoardTask(b); err != nil {
		return domain.BoardTask{}, err
	}
	err = e.write(ctx, []cache.Table{cache.TableBoardTasks}, domain.ActionCreate, actor.ID, "Novo card: "+b.Title, func(tx *sql.Tx) error {
		return e.Repo.InsertBoardTask(ctx, tx, b)
	})
	if err != nil {
		return domain.BoardTask{}, err
	}
	return b, nil
}

// mutateBoardTask mirrors mutateTask for cards. Any user may edit the board.
func (e Engine) mutateBoardTask(ctx context.Context, actorID, id string, fn func(b domain.BoardTask) (domain.BoardTask, string, error)) (domain.BoardTask, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.BoardTask{}, err
	}
	var out domain.BoardTask
	err = func() error {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		b, err := e.Repo.GetBoardTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		out = b
		next, description, err := fn(b.Clone())
		if err != nil {
			return err
		}
		if err := domain.ValidateBoardTask(next); err != nil {
			return err
		}
		next.UpdatedAt = e.timestamp()
		if err := e.Repo.UpdateBoardTask(ctx, tx, next); err != nil {
			return fmt.Errorf("update board task: %w", err)
		}
		if err := e.audit().Append(ctx, tx, domain.ActionUpdate, actor.ID, description); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		out = next
		return nil
	}()
	if errors.Is(err, errNoChange) {
		return out, nil
	}
	if err != nil {
		return domain.BoardTask{}, err
	}
	e.refresh(ctx, cache.TableBoardTasks)
	return out, nil
}

// UpdateBoardTask applies patch. A status change goes through the board
// machine like MoveBoardTask.
func (e Engine) UpdateBoardTask(ctx context.Context, actorID, id string, patch domain.BoardTaskPatch) (domain.BoardTask, error) {
	return e.mutateBoardTask(ctx, actorID, id, func(b domain.BoardTask) (domain.BoardTask, string, error) {
		if patch.Empty() {
			return b, "", errNoChange
		}
		if patch.Status != nil {
			m, err := domain.NewBoardMachine(b.ID, b.Status)
			if err != nil {
				return b, "", err
			}
			if err := m.MoveTo(*patch.Status); err != nil {
				return b, "", err
			}
		}
		next := patch.Apply(b)
		next.Subtasks = withSubtaskIDs(next.Subtasks)
		return next, "Card atualizado: " + next.Title, nil
	})
}

// MoveBoardTask drags a card to another column. Dropping it on its own
// column writes nothing.
func (e Engine) MoveBoardTask(ctx context.Context, actorID, id, status string) (domain.BoardTask, error) {
	return e.mutateBoardTask(ctx, actorID, id, func(b domain.BoardTask) (domain.BoardTask, string, error) {
		if b.Status == status {
			return b, "", errNoChange
		}
		m, err := domain.NewBoardMachine(b.ID, b.Status)
		if err != nil {
			return b, "", err
		}
		if err := m.MoveTo(status); err != nil {
			return b, "", err
		}
		b.Status = m.Current()
		return b, fmt.Sprintf("Card movido para %s: %s", b.Status, b.Title), nil
	})
}

// ToggleSubtask flips one checklist item of a card.
func (e Engine) ToggleSubtask(ctx context.Context, actorID, id, subtaskID string) (domain.BoardTask, error) {
	return e.mutateBoardTask(ctx, actorID, id, func(b domain.BoardTask) (domain.BoardTask, string, error) {
		for i := range b.Subtasks {
			if b.Subtasks[i].ID == subtaskID {
				b.Subtasks[i].Completed = !b.Subtasks[i].Completed
				return b, "Subtarefa atualizada: " + b.Subtasks[i].Title, nil
			}
		}
		return b, "", repo.ErrNotFound
	})
}

func (e Engine) DeleteBoardTask(ctx context.Context, actorID, id string) error {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return err
	}
	b, err := e.Repo.GetBoardTask(ctx, id)
	if err != nil {
		return err
	}
	return e.write(ctx, []cache.Table{cache.TableBoardTasks}, domain.ActionDelete, actor.ID, "Card removido: "+b.Title, func(tx *sql.Tx) error {
		return e.Repo.DeleteBoardTask(ctx, tx, id)
	})
}
