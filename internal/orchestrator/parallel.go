package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// runParallel executes the plan in dependency rounds: every worker
// whose dependencies are all settled runs concurrently, then the next
// round is computed. A failure skips the failed worker's transitive
// dependents; unrelated branches keep running.
func (o *Orchestrator) runParallel(ctx context.Context, req models.WorkRequest, plan *models.Plan) error {
	g, err := useGraph(plan)
	if err != nil {
		return err
	}

	numberByID := make(map[string]int, len(plan.Workers))
	for i, w := range plan.Workers {
		numberByID[w.ID] = i + 1
	}

	total := len(plan.Workers)
	resultsByID := make(map[string]models.WorkerResult, total)
	settled := 0

	for settled < total {
		if ctx.Err() != nil {
			o.markSkipped(total - settled)
			return ctx.Err()
		}

		ready := g.Ready()
		if len(ready) == 0 {
			o.markSkipped(total - settled)
			return ErrDeadlock
		}

		type outcome struct {
			id  string
			res models.WorkerResult
		}
		results := make(chan outcome, len(ready))
		var wg sync.WaitGroup
		for _, task := range ready {
			task := task
			number := numberByID[task.ID]
			prompt := o.buildDependencyPrompt(req, plan, task, resultsByID)

			wg.Add(1)
			go func() {
				defer wg.Done()
				res := o.runWorkerWithRetry(ctx, task, number, prompt)
				results <- outcome{id: task.ID, res: res}
			}()
		}
		wg.Wait()
		close(results)

		var failedIDs []string
		for out := range results {
			resultsByID[out.id] = out.res
			g.MarkComplete(out.id)
			settled++
			o.appendResult(out.res)
			o.emitWorkerComplete(out.res, numberByID[out.id], total)
			if !out.res.Success {
				failedIDs = append(failedIDs, out.id)
			}
		}

		// Fail-fast: everything downstream of a failure is skipped,
		// while independent branches continue.
		for _, failedID := range failedIDs {
			var skipped []string
			for _, dep := range g.TransitiveDependents(failedID) {
				if _, done := resultsByID[dep]; done {
					continue
				}
				resultsByID[dep] = models.WorkerResult{TaskID: dep}
				g.MarkComplete(dep)
				settled++
				skipped = append(skipped, dep)
			}
			if len(skipped) > 0 {
				o.markSkipped(len(skipped))
				o.addNotice(fmt.Sprintf("Worker %q failed; dependent task(s) %v were skipped.", failedID, skipped))
				o.emit(models.StatusUpdate{
					Type:      models.UpdateTypeStatus,
					Message:   fmt.Sprintf("Worker %s failed; skipping dependent task(s) %v.", failedID, skipped),
					Important: true,
				})
			}
		}
	}
	return nil
}
