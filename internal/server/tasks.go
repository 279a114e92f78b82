package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/domain"
	"vontta/internal/engine"
	"vontta/internal/planner"
	"vontta/internal/repo"
)

type taskOutput struct {
	Body domain.Task `json:"body"`
}

type idPath struct {
	ID string `path:"id"`
}

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List live tasks",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		CollaboratorID string `query:"collaborator_id"`
		ProjectID      string `query:"project_id"`
		Status         string `query:"status"`
		DueFrom        string `query:"due_from"`
		DueTo          string `query:"due_to"`
		Limit          int    `query:"limit"`
	}) (*struct {
		Body listBody[domain.Task] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		tasks, err := e.ListTasks(ctx, repo.TaskFilters{
			CollaboratorID: input.CollaboratorID,
			ProjectID:      input.ProjectID,
			Status:         input.Status,
			DueFrom:        input.DueFrom,
			DueTo:          input.DueTo,
			Limit:          normalizeLimit(input.Limit, 0, 1000),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.Task] `json:"body"`
		}{Body: itemsOf(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body engine.TaskInput `json:"body"`
	}) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task fields present in the body",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body domain.TaskPatch `json:"body"`
	}) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, userID, input.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-task",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/duplicate",
		Summary:       "Copy a task as a new pending task of the caller",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.DuplicateTask(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/toggle",
		Summary:     "Toggle between completed and pending",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.ToggleCompletion(ctx, userID, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/move",
		Summary:     "Reschedule a task to another date",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string          `path:"id"`
		Body MoveTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.MoveTaskDate(ctx, userID, input.ID, input.Body.DueDate)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})
}

func registerPlanner(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "quick-add",
		Method:        http.MethodPost,
		Path:          "/planner/quick-add",
		Summary:       "Add a pending task for the caller",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body engine.QuickAddInput `json:"body"`
	}) (*taskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.QuickAdd(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "planner-week",
		Method:      http.MethodGet,
		Path:        "/planner/week",
		Summary:     "Monday to Friday of the current week with the collaborator's tasks",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		CollaboratorID string `query:"collaborator_id"`
	}) (*struct {
		Body listBody[planner.Day] `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		who := input.CollaboratorID
		if who == "" {
			who = userID
		}
		return &struct {
			Body listBody[planner.Day] `json:"body"`
		}{Body: itemsOf(e.PlannerWeek(who))}, nil
	})
}
