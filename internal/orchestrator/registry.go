// Package orchestrator implements the planning, execution, and
// summarization engine that turns a work request into supervised
// worker runs of the external assistant.
package orchestrator

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// AgentEntry is the registry's public view of one running or finished
// agent. Workers carry their parent orchestrator's id and a 1-based
// position within the plan.
type AgentEntry struct {
	ID              int64
	Role            models.AgentRole
	ChatID          string
	Description     string
	Phase           models.AgentPhase
	ParentID        int64
	WorkerNumber    int
	TaskPrompt      string
	TaskDescription string
	StartedAt       time.Time
	LastActivityAt  time.Time
	FinishedAt      time.Time
	Success         bool
	CostUSD         float64
}

// agentRecord is the internal registry slot: the entry plus its
// cancellation handle and bounded output buffer.
type agentRecord struct {
	entry  AgentEntry
	cancel func()
	output *outputRing
}

// Registry is the process-wide directory of running agents. It hands
// out monotonic ids and carries the per-worker cancellation handles
// that make out-of-band kill and retry commands possible.
type Registry struct {
	mu         sync.RWMutex
	agents     map[int64]*agentRecord
	nextID     atomic.Int64
	bufferSize int
}

// NewRegistry creates a registry whose worker output buffers keep the
// latest bufferSize bytes. A non-positive size uses 64 KB.
func NewRegistry(bufferSize int) *Registry {
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}
	return &Registry{
		agents:     make(map[int64]*agentRecord),
		bufferSize: bufferSize,
	}
}

// Register adds an agent and returns its id. StartedAt and
// LastActivityAt are stamped here.
func (r *Registry) Register(entry AgentEntry) int64 {
	id := r.nextID.Add(1)
	now := time.Now()

	entry.ID = id
	entry.StartedAt = now
	entry.LastActivityAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[id] = &agentRecord{
		entry:  entry,
		output: newOutputRing(r.bufferSize),
	}
	return id
}

// Get returns a copy of an agent's entry.
func (r *Registry) Get(id int64) (AgentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	if !ok {
		return AgentEntry{}, false
	}
	return rec.entry, true
}

// SetPhase moves an agent to a new lifecycle phase.
func (r *Registry) SetPhase(id int64, phase models.AgentPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.entry.Phase = phase
		rec.entry.LastActivityAt = time.Now()
	}
}

// SetDescription updates an agent's human-readable description.
func (r *Registry) SetDescription(id int64, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.entry.Description = description
	}
}

// Touch refreshes an agent's last-activity timestamp.
func (r *Registry) Touch(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.entry.LastActivityAt = time.Now()
	}
}

// LastActivity returns an agent's last-activity timestamp.
func (r *Registry) LastActivity(id int64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	if !ok {
		return time.Time{}, false
	}
	return rec.entry.LastActivityAt, true
}

// Complete marks an agent finished and drops its cancellation handle.
func (r *Registry) Complete(id int64, success bool, costUSD float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.entry.Phase = models.AgentPhaseComplete
		rec.entry.FinishedAt = time.Now()
		rec.entry.Success = success
		rec.entry.CostUSD = costUSD
		rec.cancel = nil
	}
}

// ActiveOrchestrator returns the chat's orchestrator that has not yet
// completed, if any. At most one exists per chat.
func (r *Registry) ActiveOrchestrator(chatID string) (AgentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.agents {
		if rec.entry.Role == models.AgentRoleOrchestrator &&
			rec.entry.ChatID == chatID &&
			rec.entry.Phase != models.AgentPhaseComplete {
			return rec.entry, true
		}
	}
	return AgentEntry{}, false
}

// WorkerByNumber looks up a worker by its parent orchestrator and
// 1-based plan position.
func (r *Registry) WorkerByNumber(parentID int64, workerNumber int) (AgentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec := r.workerByNumberLocked(parentID, workerNumber); rec != nil {
		return rec.entry, true
	}
	return AgentEntry{}, false
}

// workerByNumberLocked prefers the live registration when a worker was
// registered more than once (retry attempts). Caller holds the lock.
func (r *Registry) workerByNumberLocked(parentID int64, workerNumber int) *agentRecord {
	var found *agentRecord
	for _, rec := range r.agents {
		if rec.entry.Role != models.AgentRoleWorker ||
			rec.entry.ParentID != parentID ||
			rec.entry.WorkerNumber != workerNumber {
			continue
		}
		if rec.entry.Phase != models.AgentPhaseComplete {
			return rec
		}
		if found == nil || rec.entry.ID > found.entry.ID {
			found = rec
		}
	}
	return found
}

// WorkersFor returns the workers registered under an orchestrator,
// ordered by worker number then registration id.
func (r *Registry) WorkersFor(parentID int64) []AgentEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var workers []AgentEntry
	for _, rec := range r.agents {
		if rec.entry.Role == models.AgentRoleWorker && rec.entry.ParentID == parentID {
			workers = append(workers, rec.entry)
		}
	}
	sort.Slice(workers, func(i, j int) bool {
		if workers[i].WorkerNumber != workers[j].WorkerNumber {
			return workers[i].WorkerNumber < workers[j].WorkerNumber
		}
		return workers[i].ID < workers[j].ID
	})
	return workers
}

// SetCancel installs an agent's cancellation handle.
func (r *Registry) SetCancel(id int64, cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.cancel = cancel
	}
}

// Cancel fires an agent's cancellation handle. Returns false when the
// agent is unknown or already completed.
func (r *Registry) Cancel(id int64) bool {
	r.mu.Lock()
	rec, ok := r.agents[id]
	var cancel func()
	if ok {
		cancel = rec.cancel
	}
	r.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// CancelWorker cancels exactly one worker by plan position without
// touching its parent orchestrator.
func (r *Registry) CancelWorker(parentID int64, workerNumber int) bool {
	r.mu.RLock()
	rec := r.workerByNumberLocked(parentID, workerNumber)
	var cancel func()
	if rec != nil {
		cancel = rec.cancel
	}
	r.mu.RUnlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// AppendOutput adds a chunk to a worker's bounded output buffer.
func (r *Registry) AppendOutput(id int64, chunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.agents[id]; ok {
		rec.output.Write(chunk)
		rec.entry.LastActivityAt = time.Now()
	}
}

// Output returns the retained tail of a worker's output.
func (r *Registry) Output(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.agents[id]; ok {
		return rec.output.String()
	}
	return ""
}

// Remove drops an agent from the registry entirely.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// outputRing is a fixed-capacity byte ring that keeps the most recent
// writes, so a chatty worker cannot grow the registry unboundedly.
type outputRing struct {
	buf   []byte
	start int
	size  int
}

func newOutputRing(capacity int) *outputRing {
	return &outputRing{buf: make([]byte, capacity)}
}

// Write appends data, evicting the oldest bytes once full.
func (o *outputRing) Write(s string) {
	data := []byte(s)
	if len(data) >= len(o.buf) {
		copy(o.buf, data[len(data)-len(o.buf):])
		o.start = 0
		o.size = len(o.buf)
		return
	}

	for _, b := range data {
		idx := (o.start + o.size) % len(o.buf)
		o.buf[idx] = b
		if o.size < len(o.buf) {
			o.size++
		} else {
			o.start = (o.start + 1) % len(o.buf)
		}
	}
}

// String returns the retained bytes oldest-first.
func (o *outputRing) String() string {
	out := make([]byte, o.size)
	for i := 0; i < o.size; i++ {
		out[i] = o.buf[(o.start+i)%len(o.buf)]
	}
	return string(out)
}
