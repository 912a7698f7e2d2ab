package domain

// Level is one nesting depth of a workflow: its question list, the index last
// stopped at, and a local context map. The engine keeps a stack of levels and
// pushes/pops on entering/exiting child workflows; this stack is the only
// nesting mechanism, so depth is bounded by memory, not the call stack, and the
// whole nested position serializes.
type Level struct {
	WorkflowID string         `json:"workflow_id"`
	Questions  []Question     `json:"questions"`
	Index      int            `json:"index"`
	Context    map[string]any `json:"context"`
}

// NewLevel creates a level positioned at its first question.
func NewLevel(workflowID string, questions []Question) *Level {
	return &Level{
		WorkflowID: workflowID,
		Questions:  questions,
		Context:    make(map[string]any),
	}
}

// Exhausted reports whether the position has moved past the last question.
func (l *Level) Exhausted() bool {
	return l.Index >= len(l.Questions)
}

// Current returns the question at the level's position, or nil when exhausted.
func (l *Level) Current() *Question {
	if l.Exhausted() {
		return nil
	}
	return &l.Questions[l.Index]
}

// MergeContext copies a completed child's local context into this level.
// Child keys win on collision; the child observed the parent's values and
// deliberately overwrote them.
func (l *Level) MergeContext(child map[string]any) {
	if l.Context == nil {
		l.Context = make(map[string]any, len(child))
	}
	for k, v := range child {
		l.Context[k] = v
	}
}
