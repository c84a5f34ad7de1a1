package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rumpbot/rumpbot/internal/assistant"
	"github.com/rumpbot/rumpbot/internal/config"
	"github.com/rumpbot/rumpbot/internal/graph"
	"github.com/rumpbot/rumpbot/pkg/models"
)

// ErrDeadlock marks a parallel plan whose remaining workers can never
// become ready.
var ErrDeadlock = errors.New("dependency deadlock: no runnable workers remain")

// Options configures one orchestration run.
type Options struct {
	// Invoker makes the assistant calls for all three phases.
	Invoker assistant.Invoker
	// Registry tracks this orchestrator and its workers for external
	// control. Required.
	Registry *Registry
	// Tiers carries the per-tier model, turn, and timeout settings.
	Tiers config.TiersConfig
	// Limits carries the orchestration resource bounds.
	Limits config.LimitsConfig
	// ChatID is the chat this run serves.
	ChatID string
	// WorkDir is the working directory for all assistant calls.
	WorkDir string
	// OnStatus receives progress updates. Optional.
	OnStatus StatusFunc
	// OnInvocation receives one record per assistant call. Optional.
	OnInvocation assistant.InvocationFunc
	// Logger receives debug lines; nil disables debug logging.
	Logger *DebugLogger
	// Runs records run history rows. Optional.
	Runs *RunStore
	// Restart decides needsRestart; nil uses the default token set.
	Restart *RestartDetector
}

// Orchestrator drives one work request through planning, supervised
// execution, and summarization. Construct a fresh one per run.
type Orchestrator struct {
	opts     Options
	executor *assistant.WorkerExecutor
	runID    string

	mu         sync.Mutex
	id         int64
	plan       *models.Plan
	execCtx    context.Context
	results    []models.WorkerResult
	numberByID map[string]int
	promptByN  map[int]string
	totalCost  float64
	notices    []string
	skipped    int
	canceled   bool
}

// New creates an orchestrator for a single run. Zero-valued limits
// fall back to the built-in defaults.
func New(opts Options) *Orchestrator {
	if opts.Registry == nil {
		opts.Registry = NewRegistry(0)
	}
	if opts.Limits.MaxWorkers == 0 {
		opts.Limits = config.Default().Limits
	}
	if opts.Restart == nil {
		opts.Restart = NewRestartDetector()
	}
	if opts.Logger != nil {
		setPackageLogger(opts.Logger)
	}

	worker := opts.Tiers.Worker
	return &Orchestrator{
		opts:       opts,
		executor:   assistant.NewWorkerExecutor(opts.Invoker, worker.Model, worker.MaxTurns, worker.Timeout),
		runID:      uuid.New().String()[:8],
		numberByID: make(map[string]int),
		promptByN:  make(map[int]string),
	}
}

// ID returns the orchestrator's registry id, 0 before Execute.
func (o *Orchestrator) ID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.id
}

// RunID returns the run's short identifier.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Execute runs the full orchestration. It returns a summary in every
// case except a failure to even record the run; cancellation and
// timeouts surface inside the summary rather than as errors.
func (o *Orchestrator) Execute(ctx context.Context, req models.WorkRequest) (*models.WorkSummary, error) {
	id := o.opts.Registry.Register(AgentEntry{
		Role:        models.AgentRoleOrchestrator,
		ChatID:      o.opts.ChatID,
		Description: req.Task,
		Phase:       models.AgentPhasePlanning,
	})
	o.mu.Lock()
	o.id = id
	o.mu.Unlock()

	if o.opts.Runs != nil {
		if err := o.opts.Runs.Start(o.runID, o.opts.ChatID, req.Task); err != nil {
			debugLog("[orchestrator] could not record run start: %v", err)
		}
	}

	debugLog("[orchestrator %s] starting: task=%q urgency=%s", o.runID, req.Task, req.Urgency)

	// The orchestration timeout is its own cancellation channel; the
	// summary phase deliberately runs on the external token instead.
	orchCtx, orchCancel := context.WithTimeout(ctx, o.opts.Limits.OrchestrationTimeout)
	defer orchCancel()

	plan, err := o.runPlanning(orchCtx, req)
	if err != nil {
		debugLog("[orchestrator %s] planning failed: %v", o.runID, err)
		summary := o.planFailedSummary(err)
		o.finish(summary)
		return summary, nil
	}

	o.mu.Lock()
	o.plan = plan
	o.execCtx = orchCtx
	for i, w := range plan.Workers {
		o.numberByID[w.ID] = i + 1
	}
	o.mu.Unlock()

	o.opts.Registry.SetPhase(id, models.AgentPhaseExecuting)
	o.emitPlanBreakdown(plan)

	if plan.Sequential {
		err = o.runSequential(orchCtx, req, plan)
	} else {
		err = o.runParallel(orchCtx, req, plan)
	}

	if err != nil && !errors.Is(err, ErrDeadlock) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		debugLog("[orchestrator %s] execution error: %v", o.runID, err)
	}
	if errors.Is(err, ErrDeadlock) {
		o.addNotice(fmt.Sprintf("Dependency deadlock: %d worker(s) could never start and were not run.", o.remainingCount(plan)))
		o.emit(models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   "Plan has a dependency deadlock; remaining workers were not run.",
			Important: true,
		})
	}
	if ctx.Err() != nil {
		o.mu.Lock()
		o.canceled = true
		o.mu.Unlock()
		o.addNotice("The run was cancelled before all workers finished.")
	}
	if orchCtx.Err() != nil && ctx.Err() == nil {
		o.addNotice("The orchestration hit its overall time limit; remaining workers were stopped.")
		o.emit(models.StatusUpdate{
			Type:      models.UpdateTypeStatus,
			Message:   "Orchestration timed out; wrapping up with partial results.",
			Important: true,
		})
	}

	o.opts.Registry.SetPhase(id, models.AgentPhaseSummarizing)
	summary := o.summarize(ctx, req, plan)
	o.finish(summary)
	return summary, nil
}

// finish computes needsRestart, closes the registry entry, and records
// the run's terminal state.
func (o *Orchestrator) finish(summary *models.WorkSummary) {
	o.mu.Lock()
	plan := o.plan
	o.mu.Unlock()

	if !summary.NeedsRestart {
		texts := []string{summary.Summary}
		if plan != nil {
			texts = append(texts, plan.Summary)
		}
		for _, res := range summary.WorkerResults {
			texts = append(texts, res.Result)
		}
		summary.NeedsRestart = o.opts.Restart.Detect(texts...)
	}

	o.opts.Registry.Complete(o.ID(), summary.OverallSuccess, summary.TotalCostUSD)

	if o.opts.Runs != nil {
		o.mu.Lock()
		canceled := o.canceled
		o.mu.Unlock()

		status := RunStatusCompleted
		switch {
		case canceled:
			status = RunStatusCanceled
		case !summary.OverallSuccess:
			status = RunStatusFailed
		}
		err := o.opts.Runs.Finish(o.runID, status, len(summary.WorkerResults), summary.TotalCostUSD, summary.NeedsRestart)
		if err != nil {
			debugLog("[orchestrator] could not record run finish: %v", err)
		}
	}

	debugLog("[orchestrator %s] done: success=%v workers=%d cost=$%.4f needsRestart=%v",
		o.runID, summary.OverallSuccess, len(summary.WorkerResults), summary.TotalCostUSD, summary.NeedsRestart)
}

// emit forwards a status update to the configured sink.
func (o *Orchestrator) emit(update models.StatusUpdate) {
	if o.opts.OnStatus != nil {
		o.opts.OnStatus(update)
	}
}

// emitPlanBreakdown announces the plan as an important update.
func (o *Orchestrator) emitPlanBreakdown(plan *models.Plan) {
	mode := "parallel"
	if plan.Sequential {
		mode = "sequential"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %d task(s), %s", len(plan.Workers), mode)
	if plan.Summary != "" {
		fmt.Fprintf(&b, ": %s", plan.Summary)
	}
	for i, w := range plan.Workers {
		label := w.Description
		if label == "" {
			label = w.ID
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, label)
	}

	o.emit(models.StatusUpdate{
		Type:      models.UpdateTypePlanBreakdown,
		Message:   b.String(),
		Important: true,
	})
}

// addCost accumulates one assistant call's cost.
func (o *Orchestrator) addCost(cost float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totalCost += cost
}

// addNotice queues a line for the summary prompt.
func (o *Orchestrator) addNotice(notice string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, notice)
}

// appendResult records a worker's final result in completion order.
func (o *Orchestrator) appendResult(res models.WorkerResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, res)
}

// replaceResult swaps the stored result for the given worker number,
// used by the external retry hook.
func (o *Orchestrator) replaceResult(number int, res models.WorkerResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.results {
		if o.numberForLocked(o.results[i].TaskID) == number {
			o.results[i] = res
			return
		}
	}
	o.results = append(o.results, res)
}

// numberForLocked resolves a result's task id (possibly retry-suffixed)
// to its 1-based plan position. Caller holds the lock.
func (o *Orchestrator) numberForLocked(taskID string) int {
	if n, ok := o.numberByID[taskID]; ok {
		return n
	}
	if n, ok := o.numberByID[strings.TrimSuffix(taskID, "-retry")]; ok {
		return n
	}
	return 0
}

// snapshotResults returns a copy of the results so far.
func (o *Orchestrator) snapshotResults() []models.WorkerResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.WorkerResult(nil), o.results...)
}

// remainingCount reports how many plan workers have no result yet.
func (o *Orchestrator) remainingCount(plan *models.Plan) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(plan.Workers) - len(o.results) - o.skipped
}

// RetryWorker re-runs one worker by its 1-based plan position under a
// fresh cancellation handle, replacing its stored result. Only valid
// while the run is executing.
func (o *Orchestrator) RetryWorker(number int) error {
	o.mu.Lock()
	plan := o.plan
	execCtx := o.execCtx
	var prompt string
	if plan != nil && number >= 1 && number <= len(plan.Workers) {
		prompt = o.promptByN[number]
	}
	o.mu.Unlock()

	if plan == nil || execCtx == nil {
		return fmt.Errorf("no plan is executing")
	}
	if number < 1 || number > len(plan.Workers) {
		return fmt.Errorf("no worker #%d in the current plan", number)
	}
	if execCtx.Err() != nil {
		return fmt.Errorf("orchestration is no longer running")
	}

	task := plan.Workers[number-1]
	o.emit(models.StatusUpdate{
		Type:      models.UpdateTypeStatus,
		Message:   fmt.Sprintf("Retrying worker #%d (%s) on request.", number, task.ID),
		Important: true,
	})

	res := o.superviseWorker(execCtx, task, number, prompt)
	o.addCost(res.CostUSD)
	o.replaceResult(number, res)
	return nil
}

// useGraph builds the dependency graph for a plan. Plan validation has
// already checked the references, so a build error here is a bug.
func useGraph(plan *models.Plan) (*graph.DependencyGraph, error) {
	g := graph.New()
	if err := g.Build(plan.Workers); err != nil {
		return nil, err
	}
	return g, nil
}
