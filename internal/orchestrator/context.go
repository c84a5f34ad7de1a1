package orchestrator

import (
	"fmt"
	"strings"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// truncationMarker is appended to a result that was cut at the
// configured character cap.
const truncationMarker = "\n[... output truncated ...]"

// truncateResult caps a worker result's text for prompts and summaries.
func truncateResult(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + truncationMarker
}

// taskHeader is the shared preamble giving every worker the overall
// goal, the plan's mode, and the full numbered task list alongside its
// own assignment.
func taskHeader(req models.WorkRequest, plan *models.Plan) string {
	mode := "parallel"
	if plan.Sequential {
		mode = "sequential"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are one worker in a team handling this overall task:\n%s\n", req.Task)
	if req.Context != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s\n", req.Context)
	}
	fmt.Fprintf(&b, "\nThe plan (%s, %d worker(s)):", mode, len(plan.Workers))
	if plan.Summary != "" {
		fmt.Fprintf(&b, " %s", plan.Summary)
	}
	b.WriteString("\n")
	for i, w := range plan.Workers {
		label := w.Description
		if label == "" {
			label = w.ID
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	return b.String()
}

// buildSequentialPrompt assembles the prompt for worker at index in a
// sequential plan: the header, every earlier worker's (truncated)
// result, then the worker's own instructions.
func (o *Orchestrator) buildSequentialPrompt(req models.WorkRequest, plan *models.Plan, index int, prior []models.WorkerResult) string {
	var b strings.Builder
	b.WriteString(taskHeader(req, plan))

	if len(prior) > 0 {
		b.WriteString("\nResults from earlier workers:\n")
		for _, res := range prior {
			status := "SUCCESS"
			if !res.Success {
				status = "FAILED"
			}
			fmt.Fprintf(&b, "\n--- %s (%s) ---\n%s\n", res.TaskID, status,
				truncateResult(res.Result, o.opts.Limits.MaxResultChars))
		}
	}

	fmt.Fprintf(&b, "\nYour assignment (task %d of %d):\n%s", index+1, len(plan.Workers), plan.Workers[index].Prompt)
	return b.String()
}

// buildDependencyPrompt assembles the prompt for a worker in a parallel
// plan: the header, its direct dependencies' (truncated) results, then
// its own instructions.
func (o *Orchestrator) buildDependencyPrompt(req models.WorkRequest, plan *models.Plan, task models.WorkerTask, byID map[string]models.WorkerResult) string {
	var b strings.Builder
	b.WriteString(taskHeader(req, plan))

	if len(task.DependsOn) > 0 {
		b.WriteString("\nResults from the workers you depend on:\n")
		for _, dep := range task.DependsOn {
			res, ok := byID[dep]
			if !ok {
				continue
			}
			status := "SUCCESS"
			if !res.Success {
				status = "FAILED"
			}
			fmt.Fprintf(&b, "\n--- %s (%s) ---\n%s\n", dep, status,
				truncateResult(res.Result, o.opts.Limits.MaxResultChars))
		}
	}

	fmt.Fprintf(&b, "\nYour assignment:\n%s", task.Prompt)
	return b.String()
}
