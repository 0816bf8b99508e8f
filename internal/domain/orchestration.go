package domain

import "time"

// OrchestrationStatus tracks an orchestration group's aggregate lifecycle.
type OrchestrationStatus string

const (
	OrchPending   OrchestrationStatus = "pending"
	OrchRunning   OrchestrationStatus = "running"
	OrchCompleted OrchestrationStatus = "completed"
	OrchFailed    OrchestrationStatus = "failed"
)

// Orchestration is a named collection of tasks with dependency edges,
// tracked by the backend as a unit with aggregate progress.
type Orchestration struct {
	ID             string              `json:"id"`
	Name           string              `json:"name,omitempty"`
	Status         OrchestrationStatus `json:"status"`
	TotalTasks     int                 `json:"total_tasks"`
	CompletedTasks int                 `json:"completed_tasks"`
	FailedTasks    int                 `json:"failed_tasks"`
	Tasks          []Task              `json:"tasks,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Progress returns completion as a fraction in [0, 1].
func (o *Orchestration) Progress() float64 {
	if o.TotalTasks == 0 {
		return 0
	}
	return float64(o.CompletedTasks+o.FailedTasks) / float64(o.TotalTasks)
}

// OrchestrationSubmission is the request body for submitting a task group.
// Dependencies reference the Identifier of other specs within the same group.
type OrchestrationSubmission struct {
	ID    string     `json:"id,omitempty"`
	Name  string     `json:"name,omitempty"`
	Tasks []TaskSpec `json:"tasks"`
}
