package models

// Tier identifies the role an assistant invocation runs under.
type Tier string

const (
	// TierChat is the conversational agent that classifies user intent.
	TierChat Tier = "chat"
	// TierOrchestrator is the planning and summarization agent.
	TierOrchestrator Tier = "orchestrator"
	// TierWorker is a task executor supervised by the orchestrator.
	TierWorker Tier = "worker"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierChat, TierOrchestrator, TierWorker:
		return true
	default:
		return false
	}
}
