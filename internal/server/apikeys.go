package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/engine"
)

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Create an API key for the caller",
		Description:   "The raw key is returned once. Only its hash is stored.",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body NameRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		k, raw, err := e.CreateAPIKey(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: apiKeyResponse(k, raw)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[APIKeyResponse] `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		keys, err := e.ListAPIKeys(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		items := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			items = append(items, apiKeyResponse(k, ""))
		}
		return &struct {
			Body listBody[APIKeyResponse] `json:"body"`
		}{Body: itemsOf(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-api-key",
		Method:        http.MethodDelete,
		Path:          "/api-keys/{id}",
		Summary:       "Revoke an API key",
		DefaultStatus: http.StatusNoContent,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAPIKey(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
