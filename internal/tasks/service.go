// Package tasks implements the business operations against the task
// backend: create, list, filter, delete, bulk operations, analytics and
// export, plus the orchestration group lifecycle. Optional backend
// endpoints (filtered list, bulk ops, analytics) degrade to documented
// local fallbacks. The package owns the cache-invalidation rules tied to
// mutating calls.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/apierr"
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/domain"
)

// Options tunes response caching for read operations.
type Options struct {
	ListTTL      time.Duration // cached task lists and single-task reads
	AnalyticsTTL time.Duration
	NoCache      bool
}

// Service exposes the domain task API over the resilient client.
type Service struct {
	c    *client.Client
	opts Options
}

// NewService creates a task service. Zero options get default TTLs.
func NewService(c *client.Client, opts Options) *Service {
	if opts.ListTTL <= 0 {
		opts.ListTTL = 30 * time.Second
	}
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = 60 * time.Second
	}
	return &Service{c: c, opts: opts}
}

// Client returns the underlying HTTP client.
func (s *Service) Client() *client.Client { return s.c }

func (s *Service) listPolicy() *client.CachePolicy {
	if s.opts.NoCache {
		return nil
	}
	return &client.CachePolicy{TTL: s.opts.ListTTL}
}

func (s *Service) analyticsPolicy() *client.CachePolicy {
	if s.opts.NoCache {
		return nil
	}
	return &client.CachePolicy{TTL: s.opts.AnalyticsTTL}
}

// invalidate drops every cached response touching the tasks collection.
// Called only after a mutation succeeds; a failed mutation leaves the
// cache untouched.
func (s *Service) invalidate() {
	s.c.InvalidateCache("/tasks")
}

func (s *Service) invalidateOrchestrations() {
	s.c.InvalidateCache("/orchestration")
	s.invalidate()
}

// endpointUnavailable reports whether err means the endpoint itself is
// missing or unreachable, so a local fallback should take over. Errors
// that describe a bad request (other 4xx) or a server-side failure after
// retries are surfaced instead.
func endpointUnavailable(err error) bool {
	var ne *apierr.NetworkError
	if errors.As(err, &ne) {
		return true
	}
	switch apierr.StatusOf(err) {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	}
	return false
}

// ─── Task CRUD ──────────────────────────────────────────────────────────────

// CreateTask submits a new task for execution.
func (s *Service) CreateTask(ctx context.Context, spec domain.TaskSpec) (*domain.Task, error) {
	resp, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/tasks",
		Body:   spec,
	}, nil)
	if err != nil {
		return nil, err
	}
	var task domain.Task
	if err := resp.Decode(&task); err != nil {
		return nil, err
	}
	s.invalidate()
	return &task, nil
}

// ListTasks fetches tasks, newest first per backend ordering. A limit of
// 0 fetches everything.
func (s *Service) ListTasks(ctx context.Context, limit int) ([]domain.Task, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	resp, err := s.c.Do(ctx, client.Request{Path: "/tasks", Query: query}, s.listPolicy())
	if err != nil {
		return nil, err
	}
	return decodeTasks(resp.Body)
}

// ListTasksWithFilters fetches a filtered task page from the backend's
// filtered endpoint. When that endpoint is unavailable, the full list is
// fetched and filtering, sorting and paging are replicated client-side.
func (s *Service) ListTasksWithFilters(ctx context.Context, f domain.TaskFilters, limit, offset int) ([]domain.Task, error) {
	query := url.Values{}
	if f.Search != "" {
		query.Set("search", f.Search)
	}
	if f.Status != "" {
		query.Set("status", string(f.Status))
	}
	if f.Model != "" {
		query.Set("model", string(f.Model))
	}
	if f.Group != "" {
		query.Set("group", f.Group)
	}
	if f.SortBy != "" {
		query.Set("sort_by", f.SortBy)
		query.Set("sort_dir", f.SortDir)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	resp, err := s.c.Do(ctx, client.Request{Path: "/tasks/filtered", Query: query}, s.listPolicy())
	if err == nil {
		return decodeTasks(resp.Body)
	}
	if !endpointUnavailable(err) {
		return nil, err
	}

	all, lerr := s.ListTasks(ctx, 0)
	if lerr != nil {
		return nil, lerr
	}
	return Page(Filter(all, f), limit, offset), nil
}

// GetTaskStatus fetches a single task by identifier.
func (s *Service) GetTaskStatus(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.c.Do(ctx, client.Request{Path: "/tasks/" + url.PathEscape(id)}, s.listPolicy())
	if err != nil {
		return nil, err
	}
	var task domain.Task
	if err := resp.Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   "/tasks/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// ClearTasks bulk-removes completed and failed tasks.
func (s *Service) ClearTasks(ctx context.Context) (*domain.ClearResult, error) {
	resp, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/tasks/clear",
	}, nil)
	if err != nil {
		return nil, err
	}
	var res domain.ClearResult
	if err := resp.Decode(&res); err != nil {
		return nil, err
	}
	s.invalidate()
	return &res, nil
}

// ─── Bulk operations ────────────────────────────────────────────────────────

// BulkDeleteTasks removes several tasks in one call. When the bulk
// endpoint is unavailable, it degrades to sequential per-task deletes
// and reports partial success.
func (s *Service) BulkDeleteTasks(ctx context.Context, ids []string) (*domain.BulkResult, error) {
	resp, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/tasks/bulk/delete",
		Body:   map[string][]string{"ids": ids},
	}, nil)
	if err == nil {
		var res domain.BulkResult
		if derr := resp.Decode(&res); derr != nil {
			return nil, derr
		}
		s.invalidate()
		return &res, nil
	}
	if !endpointUnavailable(err) {
		return nil, err
	}

	return s.perItem(ctx, ids, func(ctx context.Context, id string) error {
		return s.DeleteTask(ctx, id)
	})
}

// BulkUpdateTaskStatus sets the status of several tasks in one call,
// degrading to sequential per-task updates when the bulk endpoint is
// unavailable.
func (s *Service) BulkUpdateTaskStatus(ctx context.Context, ids []string, status domain.TaskStatus) (*domain.BulkResult, error) {
	resp, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPatch,
		Path:   "/tasks/bulk/status",
		Body: map[string]any{
			"ids":    ids,
			"status": status,
		},
	}, nil)
	if err == nil {
		var res domain.BulkResult
		if derr := resp.Decode(&res); derr != nil {
			return nil, derr
		}
		s.invalidate()
		return &res, nil
	}
	if !endpointUnavailable(err) {
		return nil, err
	}

	return s.perItem(ctx, ids, func(ctx context.Context, id string) error {
		return s.updateTaskStatus(ctx, id, status)
	})
}

// updateTaskStatus is the per-item fallback behind BulkUpdateTaskStatus.
func (s *Service) updateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	_, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPatch,
		Path:   "/tasks/" + url.PathEscape(id) + "/status",
		Body:   map[string]domain.TaskStatus{"status": status},
	}, nil)
	if err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// perItem runs op sequentially over ids and aggregates partial success.
func (s *Service) perItem(ctx context.Context, ids []string, op func(ctx context.Context, id string) error) (*domain.BulkResult, error) {
	res := &domain.BulkResult{Success: true}
	for _, id := range ids {
		if err := op(ctx, id); err != nil {
			res.Success = false
			res.Failed++
			res.Errors = append(res.Errors, domain.BulkError{ID: id, Message: apierr.UserMessage(err)})
			continue
		}
		res.Processed++
	}
	return res, nil
}

// ─── Analytics ──────────────────────────────────────────────────────────────

// GetTaskAnalytics fetches aggregate metrics. When the analytics
// endpoint is unavailable, metrics are computed locally from the full
// task list and marked as such.
func (s *Service) GetTaskAnalytics(ctx context.Context) (*domain.Analytics, error) {
	resp, err := s.c.Do(ctx, client.Request{Path: "/tasks/analytics"}, s.analyticsPolicy())
	if err == nil {
		var a domain.Analytics
		if derr := resp.Decode(&a); derr != nil {
			return nil, derr
		}
		return &a, nil
	}
	if !endpointUnavailable(err) {
		return nil, err
	}

	all, lerr := s.ListTasks(ctx, 0)
	if lerr != nil {
		return nil, lerr
	}
	return ComputeAnalytics(all), nil
}

// ─── Orchestrations ─────────────────────────────────────────────────────────

// SubmitOrchestration submits a task group. A missing submission ID is
// filled with a generated one so the group can be referenced immediately.
func (s *Service) SubmitOrchestration(ctx context.Context, sub domain.OrchestrationSubmission) (*domain.Orchestration, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	resp, err := s.c.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/orchestration/submit",
		Body:   sub,
	}, nil)
	if err != nil {
		return nil, err
	}
	var orch domain.Orchestration
	if err := resp.Decode(&orch); err != nil {
		return nil, err
	}
	s.invalidateOrchestrations()
	return &orch, nil
}

// ListOrchestrations fetches all orchestration groups.
func (s *Service) ListOrchestrations(ctx context.Context) ([]domain.Orchestration, error) {
	resp, err := s.c.Do(ctx, client.Request{Path: "/orchestrations"}, s.listPolicy())
	if err != nil {
		return nil, err
	}
	return decodeOrchestrations(resp.Body)
}

// GetOrchestration fetches one orchestration group with its tasks.
func (s *Service) GetOrchestration(ctx context.Context, id string) (*domain.Orchestration, error) {
	resp, err := s.c.Do(ctx, client.Request{Path: "/orchestrations/" + url.PathEscape(id)}, s.listPolicy())
	if err != nil {
		return nil, err
	}
	var orch domain.Orchestration
	if err := resp.Decode(&orch); err != nil {
		return nil, err
	}
	return &orch, nil
}

// DeleteOrchestration removes an orchestration group.
func (s *Service) DeleteOrchestration(ctx context.Context, id string) error {
	_, err := s.c.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   "/orchestrations/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return err
	}
	s.invalidateOrchestrations()
	return nil
}

// ─── Response decoding ──────────────────────────────────────────────────────

// decodeTasks accepts both a bare array and a {"tasks": [...]} wrapper.
func decodeTasks(body []byte) ([]domain.Task, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var list []domain.Task
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Tasks, nil
}

func decodeOrchestrations(body []byte) ([]domain.Orchestration, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var list []domain.Orchestration
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Orchestrations []domain.Orchestration `json:"orchestrations"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Orchestrations, nil
}
