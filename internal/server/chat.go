package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"vontta/internal/domain"
	"vontta/internal/engine"
)

func registerChat(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-chat-channels",
		Method:      http.MethodGet,
		Path:        "/chat/channels",
		Summary:     "List assistant channels",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body listBody[domain.ChatChannel] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		channels, err := e.ChatChannels(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.ChatChannel] `json:"body"`
		}{Body: itemsOf(channels)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-chat-channel",
		Method:        http.MethodPost,
		Path:          "/chat/channels",
		Summary:       "Create assistant channel",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body NameRequest `json:"body"`
	}) (*struct {
		Body domain.ChatChannel `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateChatChannel(ctx, userID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChatChannel `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-chat-channel",
		Method:        http.MethodDelete,
		Path:          "/chat/channels/{id}",
		Summary:       "Delete assistant channel and its messages",
		DefaultStatus: http.StatusNoContent,
		Errors:        adminErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteChatChannel(ctx, userID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-chat-messages",
		Method:      http.MethodGet,
		Path:        "/chat/channels/{id}/messages",
		Summary:     "Messages of a channel, oldest first",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    string `path:"id"`
		Limit int    `query:"limit"`
	}) (*struct {
		Body listBody[domain.ChatMessage] `json:"body"`
	}, error) {
		if _, authErr := userIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		msgs, err := e.ChatMessages(ctx, input.ID, normalizeLimit(input.Limit, 0, 500))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body listBody[domain.ChatMessage] `json:"body"`
		}{Body: itemsOf(msgs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-chat-message",
		Method:      http.MethodPost,
		Path:        "/chat/channels/{id}/messages",
		Summary:     "Ask the assistant",
		Description: "The channel stays locked while a reply is generated. A second message " +
			"sent meanwhile is rejected with 409.",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body SendMessageRequest `json:"body"`
	}) (*struct {
		Body domain.ChatMessage `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		reply, err := e.SendChat(ctx, userID, input.ID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChatMessage `json:"body"`
		}{Body: reply}, nil
	})
}
