package vonttasdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsAPIKeyAndDecodesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vt_abc", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/v0/tasks", r.URL.Path)
		assert.Equal(t, "ana", r.URL.Query().Get("collaborator_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []Task{{ID: "t1", HoursDedicated: "01:00"}}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "vt_abc"
	tasks, err := c.ListTasks(context.Background(), map[string]string{"collaborator_id": "ana", "status": ""})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(CloseResult{Archived: true, HistoryID: "h1"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(3, time.Millisecond))
	res, err := c.CloseWeek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h1", res.HistoryID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"forbidden","message":"admin role required"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(3, time.Millisecond))
	_, err := c.CloseWeek(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "forbidden", apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExportHistoryReturnsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/history/h1/export", r.URL.Path)
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))
	defer srv.Close()

	c := New(srv.URL, WithBasePath("api"))
	c.BearerToken = "tok"
	data, err := c.ExportHistory(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04"), data)
}
