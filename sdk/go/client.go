package vonttasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/fortify/retry"
)

// Client is a minimal Vontta HTTP API client. Set APIKey or BearerToken
// before calling it.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client

	basePath string
	retryCfg retry.Config
}

func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: o.timeout},
		basePath:   "/" + strings.Trim(o.basePath, "/"),
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// APIError wraps non-2xx responses. Code and Message come from the error
// envelope when the body has one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type list[T any] struct {
	Items []T `json:"items"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var resp Me
	err := c.do(ctx, http.MethodGet, "me", nil, &resp)
	return resp, err
}

// ListTasks returns live tasks. filters keys are the query parameters of
// GET /tasks (collaborator_id, project_id, status, due_from, due_to, limit).
func (c *Client) ListTasks(ctx context.Context, filters map[string]string) ([]Task, error) {
	q := url.Values{}
	for k, v := range filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	endpoint := "tasks"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp list[Task]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, "tasks/"+url.PathEscape(id), patch, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// ToggleTask flips a task between completed and pending.
func (c *Client) ToggleTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/toggle", nil, &resp)
	return resp, err
}

// QuickAdd adds a pending task for the caller. An empty date means today.
func (c *Client) QuickAdd(ctx context.Context, projectID, activity, date string) (Task, error) {
	body := map[string]string{"project_id": projectID, "activity": activity}
	if date != "" {
		body["date"] = date
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "planner/quick-add", body, &resp)
	return resp, err
}

func (c *Client) CreateBoardTask(ctx context.Context, in BoardTaskInput) (BoardTask, error) {
	var resp BoardTask
	err := c.do(ctx, http.MethodPost, "board", in, &resp)
	return resp, err
}

func (c *Client) MoveBoardTask(ctx context.Context, id, status string) (BoardTask, error) {
	var resp BoardTask
	err := c.do(ctx, http.MethodPost, "board/"+url.PathEscape(id)+"/move", map[string]string{"status": status}, &resp)
	return resp, err
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, "dashboard", nil, &resp)
	return resp, err
}

// CloseWeek archives and clears the live week. Admin only.
func (c *Client) CloseWeek(ctx context.Context) (CloseResult, error) {
	var resp CloseResult
	err := c.do(ctx, http.MethodPost, "week/close", nil, &resp)
	return resp, err
}

func (c *Client) ListHistory(ctx context.Context) ([]HistorySummary, error) {
	var resp list[HistorySummary]
	err := c.do(ctx, http.MethodGet, "history", nil, &resp)
	return resp.Items, err
}

// ExportHistory downloads the xlsx report of a closed week.
func (c *Client) ExportHistory(ctx context.Context, id string) ([]byte, error) {
	var raw bytes.Buffer
	err := c.do(ctx, http.MethodGet, "history/"+url.PathEscape(id)+"/export", nil, &raw)
	return raw.Bytes(), err
}

func (c *Client) Activity(ctx context.Context, limit int) ([]ActivityLog, error) {
	endpoint := "activity"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var resp list[ActivityLog]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// do sends one request. Network errors and 5xx responses are retried; other
// statuses return at once. out may be a *bytes.Buffer for raw bodies.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	target := c.base() + c.basePath + "/" + strings.TrimLeft(endpoint, "/")

	var final error
	r := retry.New[struct{}](c.retryCfg)
	_, err := r.Do(ctx, func(ctx context.Context) (struct{}, error) {
		final = nil
		err := c.send(ctx, method, target, payload, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			final = err
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		return err
	}
	return final
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		dst.Reset()
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
