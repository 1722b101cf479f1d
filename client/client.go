// Package client is the consumer-side cache and mutation layer for the
// taskboard API: freshness-windowed collection reads, coalesced fetches and
// optimistic board mutations with rollback.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const maxResponseBytes = 4 << 20

// Client performs raw HTTP calls against the taskboard API. Cache sits on
// top of it; most consumers want that instead.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger for retry and transport diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the API at baseURL authenticating with the given
// bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    http.DefaultClient,
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-success envelope returned by the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// AuthDenied reports whether the outcome was an authorization denial, which
// the retry policy never retries.
func (e *APIError) AuthDenied() bool {
	return e.StatusCode == http.StatusUnauthorized
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    sonic.NoCopyRawMessage `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Message string                 `json:"message,omitempty"`
	Code    string                 `json:"code,omitempty"`
}

// do performs one request/response cycle. dest may be nil when the caller
// only cares about success.
func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "BAD_RESPONSE", Message: "malformed response body"}
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Error}
	}
	if dest != nil && len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type taskPage struct {
	Tasks      []domain.Task `json:"tasks"`
	Pagination struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalPages int   `json:"totalPages"`
	} `json:"pagination"`
}

// FetchTasks pulls the caller's complete task collection, walking pagination
// until exhausted.
func (c *Client) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	var all []domain.Task
	for page := 1; ; page++ {
		var result taskPage
		path := "/api/tasks?limit=100&page=" + strconv.Itoa(page)
		if err := c.doRead(ctx, path, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Tasks...)
		if page >= result.Pagination.TotalPages || len(result.Tasks) == 0 {
			break
		}
	}
	return all, nil
}

// FetchProjects pulls the caller's project collection.
func (c *Client) FetchProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	if err := c.doRead(ctx, "/api/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FetchSummary pulls the analytics aggregate.
func (c *Client) FetchSummary(ctx context.Context) (*domain.Summary, error) {
	var summary domain.Summary
	if err := c.doRead(ctx, "/api/analytics", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// TaskCreate is the wire shape for creating a task.
type TaskCreate struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority"`
	Deadline       string   `json:"deadline,omitempty"`
	ProjectID      string   `json:"projectId"`
	TagIDs         []string `json:"tagIds,omitempty"`
	EstimatedHours float64  `json:"estimatedHours,omitempty"`
}

// TaskUpdate is the wire shape for a partial task update. Nil fields are not
// sent.
type TaskUpdate struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Status         *string   `json:"status,omitempty"`
	Priority       *string   `json:"priority,omitempty"`
	Deadline       *string   `json:"deadline,omitempty"`
	Order          *int      `json:"order,omitempty"`
	ProjectID      *string   `json:"projectId,omitempty"`
	EstimatedHours *float64  `json:"estimatedHours,omitempty"`
	ActualHours    *float64  `json:"actualHours,omitempty"`
	TagIDs         *[]string `json:"tagIds,omitempty"`
}

// CreateTask persists a new task.
func (c *Client) CreateTask(ctx context.Context, req TaskCreate) (*domain.Task, error) {
	var task domain.Task
	if err := c.doMutate(ctx, http.MethodPost, "/api/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, req TaskUpdate) (*domain.Task, error) {
	var task domain.Task
	if err := c.doMutate(ctx, http.MethodPatch, "/api/tasks/"+id, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doMutate(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// ReorderResult mirrors the server's per-item bulk update outcome.
type ReorderResult struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

type reorderResponse struct {
	Results []ReorderResult `json:"results"`
}

// ReorderTasks persists a board move's (status, order) assignments. Items
// apply independently on the server; an error is returned when any item
// failed so the caller can roll back its optimistic state.
func (c *Client) ReorderTasks(ctx context.Context, items []domain.TaskPosition) ([]ReorderResult, error) {
	var resp reorderResponse
	if err := c.doMutate(ctx, http.MethodPost, "/api/tasks/bulk", items, &resp); err != nil {
		return nil, err
	}
	for _, r := range resp.Results {
		if !r.Applied {
			return resp.Results, fmt.Errorf("reorder: item %s not applied: %s", r.ID, r.Error)
		}
	}
	return resp.Results, nil
}
