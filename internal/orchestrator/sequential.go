package orchestrator

import (
	"context"
	"fmt"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// runSequential executes the plan one worker at a time in list order,
// feeding every earlier result into the next prompt. The first failure
// stops the run and the remaining workers are skipped.
func (o *Orchestrator) runSequential(ctx context.Context, req models.WorkRequest, plan *models.Plan) error {
	total := len(plan.Workers)
	for i, task := range plan.Workers {
		if ctx.Err() != nil {
			o.markSkipped(total - i)
			return ctx.Err()
		}

		prompt := o.buildSequentialPrompt(req, plan, i, o.snapshotResults())
		res := o.runWorkerWithRetry(ctx, task, i+1, prompt)
		o.appendResult(res)
		o.emitWorkerComplete(res, i+1, total)

		if !res.Success {
			remaining := total - i - 1
			if remaining > 0 {
				o.markSkipped(remaining)
				o.addNotice(fmt.Sprintf("Worker %q failed; the %d remaining sequential task(s) were skipped.", task.ID, remaining))
				o.emit(models.StatusUpdate{
					Type:      models.UpdateTypeStatus,
					Message:   fmt.Sprintf("Worker %d (%s) failed; skipping %d remaining task(s).", i+1, task.ID, remaining),
					Important: true,
				})
			}
			return nil
		}
	}
	return nil
}

// markSkipped records workers that will never run.
func (o *Orchestrator) markSkipped(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped += n
}

// emitWorkerComplete reports one worker finishing, with progress.
func (o *Orchestrator) emitWorkerComplete(res models.WorkerResult, number, total int) {
	outcome := "completed"
	if !res.Success {
		outcome = "failed"
	}
	o.emit(models.StatusUpdate{
		Type:      models.UpdateTypeWorkerComplete,
		Message:   fmt.Sprintf("Worker %d (%s) %s.", number, res.TaskID, outcome),
		Progress:  fmt.Sprintf("%d/%d", o.completedCount(), total),
		Important: !res.Success,
	})
}

// completedCount is the number of workers with a recorded result.
func (o *Orchestrator) completedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}
