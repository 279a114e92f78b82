package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/archive"
	"vontta/internal/domain"
	"vontta/internal/engine"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type historyOutput struct {
	Body domain.WeeklyHistory `json:"body"`
}

func historySummary(h domain.WeeklyHistory, e engine.Engine) HistorySummary {
	return HistorySummary{
		ID:             h.ID,
		Title:          h.DisplayTitle(e.Location()),
		StartDate:      h.StartDate,
		EndDate:        h.EndDate,
		TotalHours:     h.TotalHours,
		TasksCompleted: h.TasksCompleted,
		TasksPending:   h.TasksPending,
		CreatedAt:      h.CreatedAt,
	}
}

func registerDashboard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Totals, completion, hours by project and collaborator load for the live week",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body engine.Dashboard `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body engine.Dashboard `json:"body"`
		}{Body: e.Dashboard()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-hours",
		Method:      http.MethodGet,
		Path:        "/dashboard/hours",
		Summary:     "Total live hours, optionally for one collaborator",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		CollaboratorID string `query:"collaborator_id"`
	}) (*struct {
		Body HoursResponse `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body HoursResponse `json:"body"`
		}{Body: HoursResponse{
			CollaboratorID: input.CollaboratorID,
			TotalHours:     e.TotalHours(input.CollaboratorID),
		}}, nil
	})
}

func registerWeek(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "close-week",
		Method:      http.MethodPost,
		Path:        "/week/close",
		Summary:     "Archive the live week and clear it",
		Description: "The history record is written first. When clearing the live tables fails the " +
			"response is still 200 and the cleanup flags show what was left behind.",
		Errors: []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body archive.CloseResult `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.CloseWeek(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body archive.CloseResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerHistory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "List closed weeks, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[HistorySummary] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		records, err := e.ListHistory(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]HistorySummary, 0, len(records))
		for _, h := range records {
			items = append(items, historySummary(h, e))
		}
		return &struct {
			Body listBody[HistorySummary] `json:"body"`
		}{Body: itemsOf(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/history/{id}",
		Summary:     "Get a closed week with its snapshots",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*historyOutput, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		h, err := e.GetHistory(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &historyOutput{Body: h}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-history",
		Method:      http.MethodPatch,
		Path:        "/history/{id}",
		Summary:     "Set or clear the custom title",
		Errors:      adminErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body RenameHistoryRequest `json:"body"`
	}) (*historyOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		h, err := e.RenameHistory(ctx, userID, input.ID, input.Body.Title)
		if err != nil {
			return nil, handleError(err)
		}
		return &historyOutput{Body: h}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-history-report",
		Method:      http.MethodGet,
		Path:        "/history/{id}/report",
		Summary:     "Report rows of a closed week",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		Body archive.Report `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		rep, err := e.Report(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body archive.Report `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-history",
		Method:      http.MethodGet,
		Path:        "/history/{id}/export",
		Summary:     "Download the report of a closed week as xlsx",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		var buf bytes.Buffer
		if err := e.ExportHistory(ctx, input.ID, &buf); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        xlsxContentType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", "vontta-"+input.ID+".xlsx"),
			Body:               buf.Bytes(),
		}, nil
	})
}

func registerActivity(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Latest audit entries, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit"`
	}) (*struct {
		Body listBody[domain.ActivityLog] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		logs, err := e.Activity(ctx, normalizeLimit(input.Limit, 20, 500))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.ActivityLog] `json:"body"`
		}{Body: itemsOf(logs)}, nil
	})
}
