package models

// UpdateType classifies a status update for the chat surface.
type UpdateType string

const (
	// UpdateTypeStatus is a routine progress note.
	UpdateTypeStatus UpdateType = "status"
	// UpdateTypePlanBreakdown announces the plan after the planning phase.
	UpdateTypePlanBreakdown UpdateType = "plan_breakdown"
	// UpdateTypeWorkerComplete reports a single worker finishing.
	UpdateTypeWorkerComplete UpdateType = "worker_complete"
)

// StatusUpdate is a progress message emitted during an orchestration.
// Important updates must be delivered as new messages; the rest may be
// coalesced or rendered as in-place edits by the receiver.
type StatusUpdate struct {
	// Type classifies the update.
	Type UpdateType `json:"type"`
	// Message is the human-readable text.
	Message string `json:"message"`
	// Progress is an optional position marker such as "2/5".
	Progress string `json:"progress,omitempty"`
	// Important requests delivery as a new, notifying message.
	Important bool `json:"important,omitempty"`
}
