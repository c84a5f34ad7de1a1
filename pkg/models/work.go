package models

import "fmt"

// Urgency indicates how quickly a work request should be handled.
type Urgency string

const (
	// UrgencyQuick requests a fast, lightweight treatment of the task.
	UrgencyQuick Urgency = "quick"
	// UrgencyNormal is the default treatment.
	UrgencyNormal Urgency = "normal"
)

// Valid returns true if the urgency is a known value.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyQuick, UrgencyNormal:
		return true
	default:
		return false
	}
}

// WorkRequest is the structured action a chat reply can carry. It is
// parsed from the JSON body of an action block in the assistant output.
type WorkRequest struct {
	// Type discriminates the action; only "work_request" is recognized.
	Type string `json:"type"`
	// Task is the free-text description of the work. Required.
	Task string `json:"task"`
	// Context carries extra detail from the conversation. May be empty.
	Context string `json:"context,omitempty"`
	// Urgency is quick or normal; empty is treated as normal.
	Urgency Urgency `json:"urgency,omitempty"`
}

// Valid returns true if the request has the work_request type and a
// non-empty task.
func (w WorkRequest) Valid() bool {
	return w.Type == "work_request" && w.Task != ""
}

// WorkerTask is one unit of a plan.
type WorkerTask struct {
	// ID is unique within the plan. Required.
	ID string `json:"id"`
	// Description is a short human label.
	Description string `json:"description,omitempty"`
	// Prompt is the self-contained instruction for the assistant. Required.
	Prompt string `json:"prompt"`
	// DependsOn lists worker ids that must complete first.
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Plan is the structured decomposition of a work request, parsed from
// the planning call's JSON output.
type Plan struct {
	// Type discriminates the payload; planners emit "plan".
	Type string `json:"type"`
	// Summary restates the goal in the planner's words.
	Summary string `json:"summary,omitempty"`
	// Workers is the ordered task list.
	Workers []WorkerTask `json:"workers"`
	// Sequential selects one-at-a-time execution in list order.
	Sequential bool `json:"sequential,omitempty"`
}

// Validate checks that every worker has a non-empty id and prompt and
// that ids are unique. Dependency references are checked by the
// scheduler, not here.
func (p *Plan) Validate() error {
	if len(p.Workers) == 0 {
		return fmt.Errorf("plan has no workers")
	}
	seen := make(map[string]bool, len(p.Workers))
	for i, w := range p.Workers {
		if w.ID == "" {
			return fmt.Errorf("worker %d has an empty id", i+1)
		}
		if w.Prompt == "" {
			return fmt.Errorf("worker %q has an empty prompt", w.ID)
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate worker id %q", w.ID)
		}
		seen[w.ID] = true
	}
	return nil
}

// WorkerResult is the outcome of one worker execution attempt.
type WorkerResult struct {
	// TaskID is the worker's plan id, with a -retry suffix when the
	// result came from the automatic transient retry.
	TaskID string `json:"task_id"`
	// Success is true when the worker finished without error.
	Success bool `json:"success"`
	// Result is the worker's output text, possibly truncation-marked.
	Result string `json:"result"`
	// CostUSD is the attempt's API cost, zero when unreported.
	CostUSD float64 `json:"cost_usd,omitempty"`
	// DurationMs is wall-clock execution time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// WorkSummary is the final outcome of an orchestration run.
type WorkSummary struct {
	// OverallSuccess is true iff at least one worker ran and all succeeded.
	OverallSuccess bool `json:"overall_success"`
	// Summary is the human-readable account of what happened.
	Summary string `json:"summary"`
	// WorkerResults lists one entry per executed worker, in completion order.
	WorkerResults []WorkerResult `json:"worker_results"`
	// TotalCostUSD sums planning, every worker attempt, and summarization.
	TotalCostUSD float64 `json:"total_cost_usd"`
	// NeedsRestart is set when the run appears to require a service restart.
	NeedsRestart bool `json:"needs_restart"`
}
