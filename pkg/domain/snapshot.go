package domain

// OperationRef is the serialized form of a deferred operation: its type tag and
// the feedback id that triggered its registration. Reconstructing a concrete
// operation from a ref is the job of an externally supplied decoder.
type OperationRef struct {
	Type       string `json:"type"`
	FeedbackID int    `json:"feedback_id"`
}

// Snapshot is the full serialized form of one session. It contains everything
// needed to resume after a process restart, with sensitive values replaced by
// secret references or masks so the blob can be persisted or logged safely.
type Snapshot struct {
	// WorkflowVersionHash is the structural hash of the top-level question
	// list. Restore refuses a snapshot whose hash differs from the currently
	// loaded definition: replaying answers against a drifted question list
	// would silently reinterpret their meaning.
	WorkflowVersionHash string `json:"workflow_version_hash"`

	CurrentEntryIndex int `json:"current_entry_index"`

	// CurrentFeedbackID is the next id to assign.
	CurrentFeedbackID int `json:"current_feedback_id"`

	FeedbackHistory []Feedback `json:"feedback_history"`

	// CurrentLevel is nil once the session has completed.
	CurrentLevel *Level `json:"current_level"`

	// LevelStack is ordered outer-to-inner.
	LevelStack []Level `json:"level_stack"`

	PlanningContext map[string]any `json:"planning_context"`

	DeferredOperations []OperationRef `json:"deferred_operations"`
}
