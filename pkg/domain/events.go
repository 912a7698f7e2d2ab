package domain

import "context"

// EventType defines the category of an engine notification.
type EventType string

const (
	// EventNextQuestion signals that a question is ready for the caller.
	EventNextQuestion EventType = "next_question_ready"
	// EventFeedbackEntered signals that an answer was committed.
	EventFeedbackEntered EventType = "feedback_entered"
	// EventFeedbackUpdated signals a revision: a new record superseding an
	// earlier answer to the same question.
	EventFeedbackUpdated EventType = "feedback_updated"
	// EventCompleted signals the end of traversal, with a reason.
	EventCompleted EventType = "completed"
	// EventSessionRestored signals a successful restore from a snapshot.
	EventSessionRestored EventType = "session_restored"
)

// CompletionReason distinguishes a naturally finished session from an
// abandoned one.
type CompletionReason string

const (
	ReasonClosed   CompletionReason = "closed"
	ReasonCanceled CompletionReason = "canceled"
)

// Event is one engine notification. Only the fields relevant to the event
// type are populated.
type Event struct {
	Type      EventType
	SessionID string
	Timestamp int64

	// Question is set for EventNextQuestion.
	Question *Question

	// Feedback is set for EventFeedbackEntered and EventFeedbackUpdated.
	Feedback *Feedback

	// Reason is set for EventCompleted.
	Reason CompletionReason

	// Recovered is the number of feedback records rebuilt by a restore.
	Recovered int
}

// Observer receives engine notifications. The engine delivers events to every
// registered observer in registration order and waits for each call to return
// before proceeding, so an observer that persists state on every notification
// sees exactly the state that produced it. Observers must not call back into
// the engine.
type Observer interface {
	HandleEvent(ctx context.Context, event Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event Event) error

// HandleEvent implements Observer.
func (f ObserverFunc) HandleEvent(ctx context.Context, event Event) error {
	return f(ctx, event)
}
