// Package domain defines the task and orchestration types exchanged with the
// execution backend. All state is owned by the backend; the client only holds
// transient copies fetched over the API.
package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus tracks task lifecycle on the backend:
// pending → running → {completed | failed}.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Model identifies which execution model a task runs on.
type Model string

const (
	ModelOpus   Model = "opus"
	ModelSonnet Model = "sonnet"
	ModelHaiku  Model = "haiku"
)

// TaskMetadata carries optional execution hints attached at creation time.
type TaskMetadata struct {
	Complexity        string `json:"complexity,omitempty"`
	ComplexityScore   int    `json:"complexity_score,omitempty"`
	EstimatedDuration string `json:"estimated_duration,omitempty"`
	Template          string `json:"template,omitempty"`
}

// Task is a unit of remotely-executed work.
type Task struct {
	ID                 string          `json:"id"`
	Status             TaskStatus      `json:"status"`
	Model              Model           `json:"model"`
	Prompt             string          `json:"prompt"`
	WorkingDir         string          `json:"working_directory"`
	OrchestrationGroup string          `json:"orchestration_group,omitempty"`
	DependsOn          []string        `json:"depends_on,omitempty"`
	Metadata           *TaskMetadata   `json:"metadata,omitempty"`
	Result             json.RawMessage `json:"result,omitempty"`
	Error              string          `json:"error,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the task has reached a final state.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Metadata fallbacks are defined here, once, rather than re-derived at every
// call site that reads an optional field.

// ComplexityScore returns the metadata complexity score, or 0 when no
// metadata is attached.
func (t *Task) ComplexityScore() int {
	if t.Metadata == nil {
		return 0
	}
	return t.Metadata.ComplexityScore
}

// ComplexityLabel returns the metadata complexity label, or "n/a".
func (t *Task) ComplexityLabel() string {
	if t.Metadata == nil || t.Metadata.Complexity == "" {
		return "n/a"
	}
	return t.Metadata.Complexity
}

// TemplateUsed returns the creation template name, or "" when none was used.
func (t *Task) TemplateUsed() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata.Template
}

// TaskSpec is the request body for creating a task, either directly or as
// part of an orchestration submission.
type TaskSpec struct {
	Identifier         string        `json:"identifier,omitempty"`
	Prompt             string        `json:"prompt"`
	Model              Model         `json:"model,omitempty"`
	WorkingDir         string        `json:"working_directory,omitempty"`
	OrchestrationGroup string        `json:"orchestration_group,omitempty"`
	DependsOn          []string      `json:"depends_on,omitempty"`
	Metadata           *TaskMetadata `json:"metadata,omitempty"`
}

// TaskFilters selects a subset of tasks, either server-side via the filtered
// endpoint or client-side through the local fallback.
type TaskFilters struct {
	Search  string     // substring match on id, prompt and working directory
	Status  TaskStatus // exact match, empty = any
	Model   Model      // exact match, empty = any
	Group   string     // orchestration group, empty = any
	SortBy  string     // "created_at", "updated_at" or "complexity"
	SortDir string     // "asc" or "desc" (default)
}

// IsZero reports whether no filter criteria are set.
func (f TaskFilters) IsZero() bool {
	return f.Search == "" && f.Status == "" && f.Model == "" &&
		f.Group == "" && f.SortBy == ""
}

// BulkError describes a single failed item within a bulk operation.
type BulkError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BulkResult reports the outcome of a bulk operation, including partial
// success when the fallback path degrades to per-item calls.
type BulkResult struct {
	Success   bool        `json:"success"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Errors    []BulkError `json:"errors,omitempty"`
}

// ClearResult reports how many terminal tasks a clear call removed.
type ClearResult struct {
	Removed int `json:"removed"`
}

// ComplexityBuckets is the coarse complexity histogram used by analytics:
// low 0–33, medium 34–66, high 67–100.
type ComplexityBuckets struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Analytics aggregates task metrics, either fetched from the backend or
// computed locally when the analytics endpoint is missing.
type Analytics struct {
	Total       int                `json:"total"`
	ByStatus    map[TaskStatus]int `json:"by_status"`
	ByModel     map[Model]int      `json:"by_model"`
	SuccessRate float64            `json:"success_rate"` // percent, completed vs terminal
	Complexity  ComplexityBuckets  `json:"complexity"`
	Local       bool               `json:"local,omitempty"` // true when computed client-side
}
