package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiCompleteSendsPromptAndSystem(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "Olá, "}, {"text": "equipe!"}}}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 12, "candidatesTokenCount": 4},
		})
	}))
	defer srv.Close()

	p := NewGeminiProviderWithClient("", "key", srv.URL, srv.Client())
	assert.Equal(t, "gemini:"+defaultGeminiModel, p.ID())
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "oi", System: "seja breve"})
	require.NoError(t, err)
	assert.Equal(t, "Olá, equipe!", resp.Text)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "oi", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "seja breve", got.SystemInstruction.Parts[0].Text)
	assert.Nil(t, got.GenerationConfig)
}

func TestGeminiCompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewGeminiProviderWithClient("x", "key", srv.URL, srv.Client()).Complete(context.Background(), CompletionRequest{Prompt: "a"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Erro na IA. (Modelo não encontrado)", FailureReply(err))

	_, err = NewGeminiProvider("x", "").Complete(context.Background(), CompletionRequest{Prompt: "a"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()
	_, err := NewGeminiProviderWithClient("x", "key", srv.URL, srv.Client()).Complete(context.Background(), CompletionRequest{Prompt: "a"})
	assert.Error(t, err)
}

type flakyProvider struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyProvider) ID() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("temporary")
	}
	return &CompletionResponse{Text: "ok"}, nil
}

func TestResilientProviderRetries(t *testing.T) {
	inner := &flakyProvider{failures: 1}
	p := NewResilientProvider(inner, 3, time.Millisecond, time.Second)
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.EqualValues(t, 2, inner.calls.Load())
	assert.Equal(t, "flaky", p.ID())
}

func TestResilientProviderGivesUp(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := NewResilientProvider(inner, 2, time.Millisecond, time.Second)
	_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "a"})
	require.Error(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
	assert.Equal(t, "Erro na IA.", FailureReply(err))
}
