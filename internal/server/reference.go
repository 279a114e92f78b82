package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/domain"
	"vontta/internal/engine"
)

var adminErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

type sectorOutput struct {
	Body domain.Sector `json:"body"`
}

type projectOutput struct {
	Body domain.Project `json:"body"`
}

type profileOutput struct {
	Body domain.Profile `json:"body"`
}

func registerSectors(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sectors",
		Method:      http.MethodGet,
		Path:        "/sectors",
		Summary:     "List sectors",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[domain.Sector] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		sectors, err := e.ListSectors(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.Sector] `json:"body"`
		}{Body: itemsOf(sectors)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-sector",
		Method:        http.MethodPost,
		Path:          "/sectors",
		Summary:       "Create sector",
		DefaultStatus: http.StatusCreated,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *struct {
		Body NameRequest `json:"body"`
	}) (*sectorOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSector(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &sectorOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-sector",
		Method:      http.MethodPatch,
		Path:        "/sectors/{id}",
		Summary:     "Rename sector",
		Description: "Existing tasks keep the sector name they were created with.",
		Errors:      adminErrors,
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body NameRequest `json:"body"`
	}) (*sectorOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.RenameSector(ctx, userID, input.ID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &sectorOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-sector",
		Method:        http.MethodDelete,
		Path:          "/sectors/{id}",
		Summary:       "Delete sector",
		DefaultStatus: http.StatusNoContent,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteSector(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[domain.Project] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		projects, err := e.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.Project] `json:"body"`
		}{Body: itemsOf(projects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *struct {
		Body engine.ProjectInput `json:"body"`
	}) (*projectOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Rename project or change its sector",
		Errors:      adminErrors,
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body engine.ProjectInput `json:"body"`
	}) (*projectOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, userID, input.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project",
		DefaultStatus: http.StatusNoContent,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List profiles",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[domain.Profile] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		users, err := e.ListProfiles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.Profile] `json:"body"`
		}{Body: itemsOf(users)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create profile",
		DefaultStatus: http.StatusCreated,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *struct {
		Body engine.ProfileInput `json:"body"`
	}) (*profileOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProfile(ctx, userID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &profileOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{id}",
		Summary:     "Update profile",
		Description: "Users may edit their own name, email, avatar and sector. Role changes need an admin.",
		Errors:      adminErrors,
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body domain.ProfilePatch `json:"body"`
	}) (*profileOutput, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProfile(ctx, userID, input.ID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &profileOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete profile",
		DefaultStatus: http.StatusNoContent,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProfile(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
