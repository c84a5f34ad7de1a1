package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// summarySystemPrompt drives the summarization call. It is plain by
// design; the chat tier adds personality when relaying the outcome.
const summarySystemPrompt = `You summarize the outcome of automated work for the person who
requested it. Be factual and brief: what was accomplished, what failed
and why, and anything the person should do next. Plain text only.`

// summarize asks the assistant for a closing summary of the run. It
// uses the external token, not the orchestration one, so it still runs
// after an orchestration timeout; any failure falls back to a
// deterministic summary.
func (o *Orchestrator) summarize(ctx context.Context, req models.WorkRequest, plan *models.Plan) *models.WorkSummary {
	results := o.snapshotResults()

	summary := &models.WorkSummary{
		OverallSuccess: overallSuccess(results),
		WorkerResults:  results,
	}

	res, err := o.opts.Invoker.Invoke(ctx, assistant.CallOptions{
		Prompt:       o.summaryPrompt(req, plan, results),
		SystemPrompt: summarySystemPrompt,
		Model:        o.opts.Tiers.Orchestrator.Model,
		MaxTurns:     1,
		Tools:        assistant.NoTools(),
		WorkDir:      o.opts.WorkDir,
		Timeout:      o.opts.Limits.SummaryTimeout,
		ChatID:       o.opts.ChatID,
		Tier:         models.TierOrchestrator,
		OnInvocation: o.opts.OnInvocation,
	})

	// The summary attempt costs money even when its result is unusable.
	if err == nil && res != nil {
		o.addCost(res.CostUSD)
	}

	if err != nil || res.IsError || strings.TrimSpace(res.Text) == "" {
		if err != nil {
			debugLog("[summary] call failed, using fallback: %v", err)
		}
		summary.Summary = o.fallbackSummary(results)
	} else {
		summary.Summary = strings.TrimSpace(res.Text)
		// A structured summary response may set needsRestart explicitly.
		if payload, ok := assistant.ParsePayload(res.Text); ok {
			if obj, ok := payload.(map[string]any); ok {
				if flag, ok := obj["needsRestart"].(bool); ok {
					summary.NeedsRestart = flag
				} else if flag, ok := obj["needs_restart"].(bool); ok {
					summary.NeedsRestart = flag
				}
				if text, ok := obj["summary"].(string); ok && text != "" {
					summary.Summary = text
				}
			}
		}
	}

	o.mu.Lock()
	summary.TotalCostUSD = o.totalCost
	o.mu.Unlock()
	return summary
}

// overallSuccess is true iff at least one worker ran and none failed.
func overallSuccess(results []models.WorkerResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, res := range results {
		if !res.Success {
			return false
		}
	}
	return true
}

// summaryPrompt lays out the run for the summarizer: the task, every
// (truncated) worker result, the queued notices, and the cost.
func (o *Orchestrator) summaryPrompt(req models.WorkRequest, plan *models.Plan, results []models.WorkerResult) string {
	o.mu.Lock()
	notices := append([]string(nil), o.notices...)
	cost := o.totalCost
	o.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "The task was: %s\n", req.Task)
	if plan != nil && plan.Summary != "" {
		fmt.Fprintf(&b, "The plan was: %s\n", plan.Summary)
	}

	b.WriteString("\nWorker results:\n")
	if len(results) == 0 {
		b.WriteString("(no workers ran)\n")
	}
	for _, res := range results {
		status := "succeeded"
		if !res.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "\n--- %s (%s, %.1fs) ---\n%s\n", res.TaskID, status,
			float64(res.DurationMs)/1000, truncateResult(res.Result, o.opts.Limits.MaxResultChars))
	}

	if len(notices) > 0 {
		b.WriteString("\nNotes:\n")
		for _, notice := range notices {
			fmt.Fprintf(&b, "- %s\n", notice)
		}
	}

	fmt.Fprintf(&b, "\nTotal cost so far: $%.4f\n", cost)
	b.WriteString("\nWrite the summary now.")
	return b.String()
}

// fallbackSummary is the deterministic account used when the summary
// call itself fails or is cancelled.
func (o *Orchestrator) fallbackSummary(results []models.WorkerResult) string {
	o.mu.Lock()
	notices := append([]string(nil), o.notices...)
	skipped := o.skipped
	o.mu.Unlock()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Completed %d of %d worker task(s) successfully.", succeeded, len(results))
	if skipped > 0 {
		fmt.Fprintf(&b, " %d task(s) were skipped.", skipped)
	}
	for _, res := range results {
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		first := res.Result
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = first[:i]
		}
		if len(first) > 120 {
			first = first[:120]
		}
		fmt.Fprintf(&b, "\n- %s: %s: %s", res.TaskID, status, first)
	}
	for _, notice := range notices {
		fmt.Fprintf(&b, "\n- %s", notice)
	}
	return b.String()
}
