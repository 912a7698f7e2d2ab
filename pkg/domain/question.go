package domain

// QuestionType constants define how an answer value is validated and coerced.
const (
	// QuestionString accepts any string value.
	QuestionString = "string"
	// QuestionInteger accepts whole numbers (JSON floats are narrowed when whole).
	QuestionInteger = "integer"
	// QuestionBoolean accepts true/false.
	QuestionBoolean = "boolean"
	// QuestionChoice accepts a string drawn from a static or dynamically resolved list.
	QuestionChoice = "choice"
)

// ChildRef links a question to a nested workflow that is entered when the
// activation condition evaluates to true against the committed feedback.
// An empty condition always activates.
type ChildRef struct {
	WorkflowID string `json:"workflow_id" yaml:"workflow"`
	Condition  string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Question is one prompt in a workflow. Questions are created by the external
// definition loader and never mutated afterwards; the engine only borrows them.
// IDs are unique within their own question list, not globally.
type Question struct {
	ID     string `json:"id" yaml:"id"`
	Type   string `json:"type" yaml:"type"` // "string", "integer", "boolean", "choice"
	Prompt string `json:"prompt" yaml:"prompt"`
	Help   string `json:"help,omitempty" yaml:"help,omitempty"`

	// Default is offered to the caller when no answer is supplied. It is not
	// applied by the engine itself; hosts decide whether to use it.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// AutoAnswer is an expression over prior feedback (question id -> latest
	// value). When it resolves, the question is committed automatically and
	// never surfaced to the caller.
	AutoAnswer string `json:"auto_answer,omitempty" yaml:"auto_answer,omitempty"`

	// Sensitive marks the answer as secret. Serialized feedback for a sensitive
	// question carries a secret reference (when EnvVar is set) or a mask, never
	// the plaintext value.
	Sensitive bool `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`

	// EnvVar names the environment variable backing a sensitive answer.
	EnvVar string `json:"env_var,omitempty" yaml:"env_var,omitempty"`

	// Choice configuration (Type == "choice").
	Choices      []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	ChoiceSource string   `json:"choice_source,omitempty" yaml:"choice_source,omitempty"`

	// Child, when set, nests another workflow after this question is answered.
	Child *ChildRef `json:"child,omitempty" yaml:"child,omitempty"`
}
