package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// WorkerExecutor runs single plan tasks through the invoker with the
// worker tier's model, turn cap, and timeout, and normalizes every
// outcome into a WorkerResult.
type WorkerExecutor struct {
	invoker  Invoker
	model    string
	maxTurns int
	timeout  time.Duration
}

// NewWorkerExecutor creates an executor with the worker tier settings.
// A zero timeout leaves worker calls unbounded.
func NewWorkerExecutor(invoker Invoker, model string, maxTurns int, timeout time.Duration) *WorkerExecutor {
	return &WorkerExecutor{
		invoker:  invoker,
		model:    model,
		maxTurns: maxTurns,
		timeout:  timeout,
	}
}

// WorkerCallbacks are the per-execution effect sinks. Each is optional
// and must not block.
type WorkerCallbacks struct {
	// OnActivity fires on every output chunk from the worker process.
	OnActivity ActivityFunc
	// OnOutput receives every raw output chunk.
	OnOutput OutputFunc
	// OnInvocation receives the attempt's invocation record.
	OnInvocation InvocationFunc
}

// Execute runs one worker task. The prompt carries the orchestrator's
// context block and supersedes the task's bare prompt. The context is
// the worker's own cancellation token; its cancellation cause decides
// whether the result reads as killed, stalled, or timed out.
func (e *WorkerExecutor) Execute(ctx context.Context, chatID string, task models.WorkerTask, prompt, workDir string, cb WorkerCallbacks) models.WorkerResult {
	if prompt == "" {
		prompt = task.Prompt
	}

	start := time.Now()
	res, err := e.invoker.Invoke(ctx, CallOptions{
		Prompt:       prompt,
		Model:        e.model,
		MaxTurns:     e.maxTurns,
		WorkDir:      workDir,
		Timeout:      e.timeout,
		ChatID:       chatID,
		Tier:         models.TierWorker,
		OnActivity:   cb.OnActivity,
		OnOutput:     cb.OnOutput,
		OnInvocation: cb.OnInvocation,
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return models.WorkerResult{
			TaskID:     task.ID,
			Success:    false,
			Result:     failureText(ctx, err),
			DurationMs: elapsed,
		}
	}

	result := models.WorkerResult{
		TaskID:     task.ID,
		Success:    !res.IsError,
		Result:     res.Text,
		CostUSD:    res.CostUSD,
		DurationMs: res.DurationMs,
	}
	if result.DurationMs == 0 {
		result.DurationMs = elapsed
	}
	return result
}

// failureText maps an invoker error to the worker result text. The
// cancellation cause distinguishes an explicit kill from a stall kill
// and from a plain timeout.
func failureText(ctx context.Context, err error) string {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrKilledByUser):
		return "killed by user"
	case errors.Is(cause, ErrStallKilled):
		return ErrStallKilled.Error()
	case errors.Is(cause, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return "timed out"
	case errors.Is(err, ErrCancelled):
		return "killed by user"
	default:
		return fmt.Sprintf("worker error: %v", err)
	}
}
