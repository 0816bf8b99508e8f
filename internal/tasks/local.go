package tasks

import (
	"sort"
	"strings"

	"github.com/taskdeck/taskdeck/internal/domain"
)

// Local fallbacks replicating the backend's filtered list and analytics
// endpoints. Used when those endpoints are unavailable; the behavior
// must match what the backend would return for the same inputs.

// Filter applies search, status, model and group criteria to tasks, then
// sorts per f.SortBy / f.SortDir. The input slice is not modified.
func Filter(in []domain.Task, f domain.TaskFilters) []domain.Task {
	out := make([]domain.Task, 0, len(in))
	search := strings.ToLower(f.Search)
	for _, t := range in {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Model != "" && t.Model != f.Model {
			continue
		}
		if f.Group != "" && t.OrchestrationGroup != f.Group {
			continue
		}
		if search != "" && !matchesSearch(&t, search) {
			continue
		}
		out = append(out, t)
	}

	sortTasks(out, f.SortBy, f.SortDir)
	return out
}

func matchesSearch(t *domain.Task, search string) bool {
	return strings.Contains(strings.ToLower(t.ID), search) ||
		strings.Contains(strings.ToLower(t.Prompt), search) ||
		strings.Contains(strings.ToLower(t.WorkingDir), search)
}

// sortTasks orders tasks by the requested key. "complexity" is a numeric
// sort on the nested metadata score; the default key is created_at.
// Direction defaults to descending (newest / highest first).
func sortTasks(tasks []domain.Task, sortBy, sortDir string) {
	asc := sortDir == "asc"
	var less func(a, b *domain.Task) bool
	switch sortBy {
	case "updated_at":
		less = func(a, b *domain.Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "complexity":
		less = func(a, b *domain.Task) bool { return a.ComplexityScore() < b.ComplexityScore() }
	default:
		less = func(a, b *domain.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if asc {
			return less(&tasks[i], &tasks[j])
		}
		return less(&tasks[j], &tasks[i])
	})
}

// Page applies offset and limit to an already-filtered slice. Negative
// values are treated as zero.
func Page(in []domain.Task, limit, offset int) []domain.Task {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

// ComputeAnalytics derives aggregate metrics from a task list: status
// histogram, success rate over terminal tasks, model distribution and
// complexity buckets.
func ComputeAnalytics(tasks []domain.Task) *domain.Analytics {
	a := &domain.Analytics{
		Total:    len(tasks),
		ByStatus: make(map[domain.TaskStatus]int),
		ByModel:  make(map[domain.Model]int),
		Local:    true,
	}

	for i := range tasks {
		t := &tasks[i]
		a.ByStatus[t.Status]++
		if t.Model != "" {
			a.ByModel[t.Model]++
		}
		switch score := t.ComplexityScore(); {
		case score > 66:
			a.Complexity.High++
		case score > 33:
			a.Complexity.Medium++
		default:
			a.Complexity.Low++
		}
	}

	completed := a.ByStatus[domain.StatusCompleted]
	failed := a.ByStatus[domain.StatusFailed]
	if terminal := completed + failed; terminal > 0 {
		a.SuccessRate = float64(completed) / float64(terminal) * 100
	}
	return a
}
