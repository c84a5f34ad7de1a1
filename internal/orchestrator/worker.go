package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// stallCheckInterval paces the stall detector's silence checks.
const stallCheckInterval = 30 * time.Second

// runWorkerWithRetry supervises one worker and, when its result text
// matches a transient-error pattern, waits briefly and reruns it once
// under a -retry suffixed id. The retry's result replaces the
// original; both attempts' costs count.
func (o *Orchestrator) runWorkerWithRetry(ctx context.Context, task models.WorkerTask, number int, prompt string) models.WorkerResult {
	o.mu.Lock()
	o.promptByN[number] = prompt
	o.mu.Unlock()

	res := o.superviseWorker(ctx, task, number, prompt)
	o.addCost(res.CostUSD)

	if !IsTransientText(res.Result) || res.Success || ctx.Err() != nil {
		return res
	}

	debugLog("[worker %d] transient failure, retrying: %.120s", number, res.Result)
	o.emit(models.StatusUpdate{
		Type:    models.UpdateTypeStatus,
		Message: fmt.Sprintf("Worker %d (%s) hit a transient error; retrying once.", number, task.ID),
	})

	select {
	case <-time.After(o.opts.Limits.RetryBackoff):
	case <-ctx.Done():
		return res
	}

	retryTask := task
	retryTask.ID = task.ID + "-retry"
	retry := o.superviseWorker(ctx, retryTask, number, prompt)
	o.addCost(retry.CostUSD)
	return retry
}

// superviseWorker runs one worker attempt under its own cancellation
// handle, with heartbeat updates and stall detection. The attempt's
// registry entry exposes its tail output and a kill handle for the
// control surfaces.
func (o *Orchestrator) superviseWorker(ctx context.Context, task models.WorkerTask, number int, prompt string) models.WorkerResult {
	workerCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	id := o.opts.Registry.Register(AgentEntry{
		Role:            models.AgentRoleWorker,
		ChatID:          o.opts.ChatID,
		Description:     task.Description,
		Phase:           models.AgentPhaseExecuting,
		ParentID:        o.ID(),
		WorkerNumber:    number,
		TaskPrompt:      task.Prompt,
		TaskDescription: task.Description,
	})
	o.opts.Registry.SetCancel(id, func() {
		cancel(assistant.ErrKilledByUser)
	})

	start := time.Now()
	var lastActivity atomic.Int64
	lastActivity.Store(start.UnixNano())

	done := make(chan struct{})
	defer close(done)

	// Heartbeat: periodic "still running" notes for the chat surface.
	go func() {
		ticker := time.NewTicker(o.opts.Limits.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				elapsed := time.Since(start).Round(time.Minute)
				o.opts.Registry.Touch(id)
				o.emit(models.StatusUpdate{
					Type:    models.UpdateTypeStatus,
					Message: fmt.Sprintf("Worker %d (%s) still running (%s elapsed).", number, task.ID, elapsed),
				})
			}
		}
	}()

	// Stall detector: warn after prolonged silence, kill after more.
	go func() {
		ticker := time.NewTicker(stallCheckInterval)
		defer ticker.Stop()
		warned := false
		for {
			select {
			case <-done:
				return
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				silent := time.Since(time.Unix(0, lastActivity.Load()))
				switch {
				case silent >= o.opts.Limits.StallKill:
					debugLog("[worker %d] stalled for %s, killing", number, silent.Round(time.Second))
					o.emit(models.StatusUpdate{
						Type:      models.UpdateTypeStatus,
						Message:   fmt.Sprintf("Worker %d (%s) produced no output for %s; killing it.", number, task.ID, silent.Round(time.Minute)),
						Important: true,
					})
					cancel(assistant.ErrStallKilled)
					return
				case silent >= o.opts.Limits.StallWarning:
					if !warned {
						warned = true
						o.emit(models.StatusUpdate{
							Type:      models.UpdateTypeStatus,
							Message:   fmt.Sprintf("Worker %d (%s) has been silent for %s.", number, task.ID, silent.Round(time.Minute)),
							Important: true,
						})
					}
				default:
					warned = false
				}
			}
		}
	}()

	res := o.executor.Execute(workerCtx, o.opts.ChatID, task, prompt, o.opts.WorkDir, assistant.WorkerCallbacks{
		OnActivity: func() {
			lastActivity.Store(time.Now().UnixNano())
		},
		OnOutput: func(chunk string) {
			o.opts.Registry.AppendOutput(id, chunk)
		},
		OnInvocation: o.opts.OnInvocation,
	})

	o.opts.Registry.Complete(id, res.Success, res.CostUSD)
	debugLog("[worker %d] %s finished: success=%v duration=%dms cost=$%.4f",
		number, res.TaskID, res.Success, res.DurationMs, res.CostUSD)
	return res
}
