package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/domain"
	"vontta/internal/engine"
)

type boardTaskOutput struct {
	Body domain.BoardTask `json:"body"`
}

func registerBoard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "List board cards",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body listBody[domain.BoardTask] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		cards, err := e.ListBoard(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.BoardTask] `json:"body"`
		}{Body: itemsOf(cards)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-board-task",
		Method:        http.MethodPost,
		Path:          "/board",
		Summary:       "Create board card",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateBoardTaskRequest `json:"body"`
	}) (*boardTaskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.CreateBoardTask(ctx, userID, input.Body.input())
		if err != nil {
			return nil, handleError(err)
		}
		return &boardTaskOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board-task",
		Method:      http.MethodPatch,
		Path:        "/board/{id}",
		Summary:     "Update board card",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateBoardTaskRequest `json:"body"`
	}) (*boardTaskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.UpdateBoardTask(ctx, userID, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &boardTaskOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-board-task",
		Method:        http.MethodDelete,
		Path:          "/board/{id}",
		Summary:       "Delete board card",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteBoardTask(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-board-task",
		Method:      http.MethodPost,
		Path:        "/board/{id}/move",
		Summary:     "Move card to another column",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body MoveBoardTaskRequest `json:"body"`
	}) (*boardTaskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.MoveBoardTask(ctx, userID, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &boardTaskOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-subtask",
		Method:      http.MethodPost,
		Path:        "/board/{id}/subtasks/{subtask_id}/toggle",
		Summary:     "Flip a subtask's completed flag",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID        string `path:"id"`
		SubtaskID string `path:"subtask_id"`
	}) (*boardTaskOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.ToggleSubtask(ctx, userID, input.ID, input.SubtaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &boardTaskOutput{Body: b}, nil
	})
}
