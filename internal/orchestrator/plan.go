package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// plannerSystemPrompt drives the planning call. The planner gets no
// tools and one turn; it must answer with bare JSON.
const plannerSystemPrompt = `You are a work planner. You receive a task and decompose it into
worker assignments for AI coding agents that each run in their own
session with full tool access.

Respond with ONLY a JSON object, no prose, in this shape:
{
  "type": "plan",
  "summary": "one-line restatement of the goal",
  "sequential": false,
  "workers": [
    {
      "id": "short-kebab-id",
      "description": "short human label",
      "prompt": "complete, self-contained instructions for this worker",
      "dependsOn": ["earlier-worker-id"]
    }
  ]
}

Rules:
- Each worker prompt must stand alone. Workers share no memory; put
  every file path, constraint, and acceptance criterion into the prompt.
- Use dependsOn only when a worker genuinely needs another's output.
  Every listed id must belong to an earlier worker in the list.
- Set "sequential": true when the tasks must touch the same files in
  order. Otherwise leave it false so independent workers run in parallel.
- Prefer few workers. A single worker is the right plan for most tasks.
- For a quick-urgency task, plan exactly one worker with a tight prompt.`

// runPlanning asks the orchestrator tier for a plan and validates it.
// Cost is accumulated even when the plan is unusable.
func (o *Orchestrator) runPlanning(ctx context.Context, req models.WorkRequest) (*models.Plan, error) {
	res, err := o.opts.Invoker.Invoke(ctx, assistant.CallOptions{
		Prompt:       planningPrompt(req),
		SystemPrompt: plannerSystemPrompt,
		Model:        o.opts.Tiers.Orchestrator.Model,
		MaxTurns:     o.opts.Tiers.Orchestrator.MaxTurns,
		Tools:        assistant.NoTools(),
		WorkDir:      o.opts.WorkDir,
		Timeout:      o.opts.Tiers.Orchestrator.Timeout,
		ChatID:       o.opts.ChatID,
		Tier:         models.TierOrchestrator,
		OnInvocation: o.opts.OnInvocation,
	})
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}
	o.addCost(res.CostUSD)

	payload, ok := assistant.ParsePayload(res.Text)
	if !ok {
		debugLog("[planner] unparseable plan output: %.200s", res.Text)
		return nil, fmt.Errorf("planner output contained no JSON plan")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("re-encode plan payload: %w", err)
	}
	var plan models.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if plan.Type != "plan" {
		return nil, fmt.Errorf("planner returned %q, not a plan", plan.Type)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if err := checkDependencyOrder(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	if len(plan.Workers) > o.opts.Limits.MaxWorkers {
		dropped := len(plan.Workers) - o.opts.Limits.MaxWorkers
		plan.Workers = plan.Workers[:o.opts.Limits.MaxWorkers]
		o.addNotice(fmt.Sprintf("The plan exceeded the %d-worker cap; %d task(s) were dropped.", o.opts.Limits.MaxWorkers, dropped))
		o.emit(models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   fmt.Sprintf("Plan truncated to %d workers (%d dropped).", o.opts.Limits.MaxWorkers, dropped),
			Important: true,
		})
		// Truncation can orphan dependsOn references; drop those too.
		kept := make(map[string]bool, len(plan.Workers))
		for _, w := range plan.Workers {
			kept[w.ID] = true
		}
		for i := range plan.Workers {
			var deps []string
			for _, dep := range plan.Workers[i].DependsOn {
				if kept[dep] {
					deps = append(deps, dep)
				}
			}
			plan.Workers[i].DependsOn = deps
		}
	}

	debugLog("[planner] plan: %d worker(s), sequential=%v", len(plan.Workers), plan.Sequential)
	return &plan, nil
}

// checkDependencyOrder enforces that every dependsOn id names an
// earlier worker in the list, which also rules out cycles.
func checkDependencyOrder(plan *models.Plan) error {
	earlier := make(map[string]bool, len(plan.Workers))
	for _, w := range plan.Workers {
		for _, dep := range w.DependsOn {
			if !earlier[dep] {
				return fmt.Errorf("worker %q depends on %q, which is not an earlier worker", w.ID, dep)
			}
		}
		earlier[w.ID] = true
	}
	return nil
}

// planningPrompt builds the planner's user prompt from the request.
func planningPrompt(req models.WorkRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Task)
	if req.Context != "" {
		fmt.Fprintf(&b, "\nContext from the conversation:\n%s\n", req.Context)
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}
	fmt.Fprintf(&b, "\nUrgency: %s\n", urgency)
	b.WriteString("\nProduce the plan JSON now.")
	return b.String()
}

// planFailedSummary is the deterministic summary for a run whose
// planning phase produced no usable plan.
func (o *Orchestrator) planFailedSummary(err error) *models.WorkSummary {
	o.mu.Lock()
	cost := o.totalCost
	o.mu.Unlock()

	return &models.WorkSummary{
		OverallSuccess: false,
		Summary:        fmt.Sprintf("Planning failed: %v. No workers were run.", err),
		WorkerResults:  nil,
		TotalCostUSD:   cost,
	}
}
