package domain

// Feedback is an immutable, append-only commit of one Answer.
// IDs are global to the session and strictly increasing from 0, with no gaps,
// even across nesting levels. Re-answering a question produces a new record
// with a higher id; records are never edited in place.
type Feedback struct {
	ID        int      `json:"id"`
	Timestamp int64    `json:"timestamp"` // caller-supplied; the engine owns no clock
	Question  Question `json:"question"`
	Answer    Answer   `json:"answer"`

	// Automatic is true when the answer came from the expression evaluator
	// rather than the caller.
	Automatic bool `json:"automatic"`

	// Sensitive is copied from the Question at commit time, so later edits to
	// the definition cannot retroactively expose a committed value.
	Sensitive bool `json:"sensitive"`
}
