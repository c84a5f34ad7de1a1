package models

// AgentRole distinguishes the kinds of agents the registry tracks.
type AgentRole string

const (
	// AgentRoleOrchestrator is the planner and supervisor of a run.
	AgentRoleOrchestrator AgentRole = "orchestrator"
	// AgentRoleWorker is a single task executor within a run.
	AgentRoleWorker AgentRole = "worker"
)

// Valid returns true if the role is a known value.
func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleOrchestrator, AgentRoleWorker:
		return true
	default:
		return false
	}
}

// AgentPhase represents where an agent is in its lifecycle.
type AgentPhase string

const (
	// AgentPhasePlanning indicates the orchestrator is producing a plan.
	AgentPhasePlanning AgentPhase = "planning"
	// AgentPhaseExecuting indicates workers are running.
	AgentPhaseExecuting AgentPhase = "executing"
	// AgentPhaseSummarizing indicates results are being summarized.
	AgentPhaseSummarizing AgentPhase = "summarizing"
	// AgentPhaseComplete indicates the agent has finished.
	AgentPhaseComplete AgentPhase = "complete"
)

// Valid returns true if the phase is a known value.
func (p AgentPhase) Valid() bool {
	switch p {
	case AgentPhasePlanning, AgentPhaseExecuting, AgentPhaseSummarizing, AgentPhaseComplete:
		return true
	default:
		return false
	}
}
