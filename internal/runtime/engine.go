// Package runtime implements the workflow traversal state machine.
//
// One Engine instance owns one session: its feedback map, level stack, and
// deferred-operations registry. Questions and the external loader/resolver are
// borrowed references. The engine is not safe for concurrent use; exactly one
// mutating call (Start, Answer, Restore, ExecuteDeferred) may be in flight at
// a time and callers must serialize access.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/canvass/internal/logging"
	"github.com/aretw0/canvass/pkg/deferred"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/eval"
	"github.com/aretw0/canvass/pkg/ports"
	"github.com/aretw0/canvass/pkg/schema"
)

// Engine is the traversal state machine for one session.
type Engine struct {
	sessionID string
	loader    ports.WorkflowLoader
	choices   ports.ChoiceResolver
	evaluator *eval.Evaluator
	registry  *deferred.Registry
	codec     *deferred.Codec
	observers []domain.Observer
	logger    *slog.Logger

	started   bool
	completed bool

	top  []domain.Question
	hash string

	current  *domain.Level
	stack    []*domain.Level // outer-to-inner
	feedback map[int]*domain.Feedback
	nextID   int
	planning map[string]any

	choiceCache map[string][]string
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLoader injects the external workflow definition loader, required for
// child workflows.
func WithLoader(loader ports.WorkflowLoader) EngineOption {
	return func(e *Engine) { e.loader = loader }
}

// WithChoiceResolver injects the external dynamic-choice resolver.
func WithChoiceResolver(resolver ports.ChoiceResolver) EngineOption {
	return func(e *Engine) { e.choices = resolver }
}

// WithObserver appends an observer. Observers are notified in registration
// order, each awaited.
func WithObserver(obs domain.Observer) EngineOption {
	return func(e *Engine) { e.observers = append(e.observers, obs) }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCodec injects the decoder used to rebuild deferred operations on
// restore.
func WithCodec(codec *deferred.Codec) EngineOption {
	return func(e *Engine) { e.codec = codec }
}

// NewEngine creates an engine for the given top-level question list.
// The list's structural hash is computed here and guards every restore.
func NewEngine(sessionID string, questions []domain.Question, opts ...EngineOption) *Engine {
	e := &Engine{
		sessionID:   sessionID,
		evaluator:   eval.New(),
		logger:      logging.NewNop(),
		top:         questions,
		hash:        WorkflowHash(questions),
		feedback:    make(map[int]*domain.Feedback),
		planning:    make(map[string]any),
		choiceCache: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("session", sessionID)
	e.registry = deferred.NewRegistry(deferred.WithLogger(e.logger))
	return e
}

// Start positions the engine at the first top-level question and runs
// automatic resolution. It is valid exactly once per fresh instance.
func (e *Engine) Start(ctx context.Context, timestamp int64) error {
	if e.started {
		return domain.ErrAlreadyStarted
	}
	e.started = true
	e.current = domain.NewLevel("", e.top)
	return e.settle(ctx, timestamp)
}

// Answer commits the caller's answer for the current question and moves the
// traversal forward. On a finished session (or before Start) it is a
// deliberate no-op, not an error, to keep callers simple.
func (e *Engine) Answer(ctx context.Context, answer domain.Answer, timestamp int64) error {
	q := e.CurrentQuestion()
	if q == nil {
		return nil
	}

	coerced, err := schema.CoerceAnswer(*q, answer)
	if err != nil {
		return fmt.Errorf("invalid answer for question %q: %w", q.ID, err)
	}

	e.commit(ctx, *q, coerced, timestamp, false, domain.EventFeedbackEntered)
	if err := e.step(ctx, *q); err != nil {
		return err
	}
	return e.settle(ctx, timestamp)
}

// Reanswer commits a revision for an already-answered question id. It creates
// a new record with a higher id (never an in-place edit), emits
// feedback_updated, and leaves the traversal position untouched.
func (e *Engine) Reanswer(ctx context.Context, questionID string, answer domain.Answer, timestamp int64) error {
	var prior *domain.Feedback
	for id := e.nextID - 1; id >= 0; id-- {
		if fb := e.feedback[id]; fb != nil && fb.Question.ID == questionID {
			prior = fb
			break
		}
	}
	if prior == nil {
		return fmt.Errorf("question %q has no committed answer to revise", questionID)
	}

	coerced, err := schema.CoerceAnswer(prior.Question, answer)
	if err != nil {
		return fmt.Errorf("invalid answer for question %q: %w", questionID, err)
	}

	e.commit(ctx, prior.Question, coerced, timestamp, false, domain.EventFeedbackUpdated)
	return nil
}

// Cancel abandons the session: registered deferred operations are discarded
// without executing or rolling back, and the session completes with reason
// "canceled". Canceling a finished session is a no-op.
func (e *Engine) Cancel(ctx context.Context, timestamp int64) error {
	if !e.started || e.completed {
		return nil
	}
	e.registry.Cancel()
	e.complete(ctx, timestamp, domain.ReasonCanceled)
	return nil
}

// CurrentQuestion returns the question awaiting an answer, or nil before
// Start and after completion.
func (e *Engine) CurrentQuestion() *domain.Question {
	if !e.started || e.completed || e.current == nil {
		return nil
	}
	q := e.current.Current()
	if q == nil {
		return nil
	}
	copied := *q
	return &copied
}

// FeedbackArray returns the canonical answer history ordered by feedback id.
// The result is a snapshot; mutating it does not affect the engine.
func (e *Engine) FeedbackArray() []domain.Feedback {
	out := make([]domain.Feedback, 0, e.nextID)
	for id := 0; id < e.nextID; id++ {
		if fb := e.feedback[id]; fb != nil {
			out = append(out, *fb)
		}
	}
	return out
}

// Completed reports whether traversal has finished.
func (e *Engine) Completed() bool {
	return e.completed
}

// Started reports whether Start or Restore has run.
func (e *Engine) Started() bool {
	return e.started
}

// SessionID returns the session identifier.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// SetPlanningValue stores caller-scoped working data carried in the snapshot.
func (e *Engine) SetPlanningValue(key string, value any) {
	e.planning[key] = value
}

// SetLevelValue stores working data scoped to the current nesting level. When
// a child workflow completes, its level context merges into the parent's,
// child keys winning.
func (e *Engine) SetLevelValue(key string, value any) error {
	if e.current == nil {
		return domain.ErrNotStarted
	}
	e.current.Context[key] = value
	return nil
}

// LevelContext returns a copy of the current level's local context.
func (e *Engine) LevelContext() map[string]any {
	if e.current == nil {
		return nil
	}
	return copyContext(e.current.Context)
}

// RegisterDeferred queues a side-effecting operation to run at completion.
func (e *Engine) RegisterDeferred(op deferred.Operation) {
	e.registry.Register(op)
}

// ExecuteDeferred resolves secrets in platform and runs the queued operations
// in registration order, scoped to this session's feedback history.
func (e *Engine) ExecuteDeferred(ctx context.Context, platform map[string]any) error {
	return e.registry.ExecuteAll(ctx, e.FeedbackArray(), platform)
}

// CancelDeferred discards the queued operations without executing them.
func (e *Engine) CancelDeferred() {
	e.registry.Cancel()
}

// DeferredRefs returns the serialized identities of the pending operations.
func (e *Engine) DeferredRefs() []domain.OperationRef {
	return e.registry.Refs()
}

// commit appends a feedback record and notifies observers. The sensitive flag
// is copied from the question at commit time.
func (e *Engine) commit(ctx context.Context, q domain.Question, a domain.Answer, timestamp int64, automatic bool, event domain.EventType) *domain.Feedback {
	fb := &domain.Feedback{
		ID:        e.nextID,
		Timestamp: timestamp,
		Question:  q,
		Answer:    a,
		Automatic: automatic,
		Sensitive: q.Sensitive,
	}
	e.feedback[fb.ID] = fb
	e.nextID++

	e.logger.Debug("feedback committed", "id", fb.ID, "question", q.ID, "automatic", automatic)
	e.emit(ctx, domain.Event{Type: event, Timestamp: timestamp, Feedback: fb})
	return fb
}

// step moves the position after q was committed: it descends into an
// activated child workflow or advances within the current level. Condition
// evaluation failures are false by design; a gating condition must never
// block the outer flow. Loader failures do surface, leaving the position on
// the trigger so the caller can retry.
func (e *Engine) step(ctx context.Context, q domain.Question) error {
	if q.Child != nil && e.loader != nil && e.evaluator.Condition(q.Child.Condition, e.answerEnv()) {
		children, err := e.loader.LoadWorkflow(ctx, q.Child.WorkflowID)
		if err != nil {
			return fmt.Errorf("failed to load child workflow %q: %w", q.Child.WorkflowID, err)
		}
		e.logger.Debug("entering child workflow", "workflow", q.Child.WorkflowID, "depth", len(e.stack)+1)
		e.stack = append(e.stack, e.current)
		e.current = domain.NewLevel(q.Child.WorkflowID, children)
		return nil
	}
	e.current.Index++
	return nil
}

// settle drives the position to the next question the caller must answer, or
// to completion. It pops exhausted levels (merging child context into the
// parent and resuming right after the trigger) and commits automatic answers.
// The loop only iterates while the stack shrinks or the index grows, so it
// terminates.
func (e *Engine) settle(ctx context.Context, timestamp int64) error {
	for {
		for e.current.Exhausted() {
			if len(e.stack) == 0 {
				e.complete(ctx, timestamp, domain.ReasonClosed)
				return nil
			}
			child := e.current
			e.current = e.stack[len(e.stack)-1]
			e.stack = e.stack[:len(e.stack)-1]
			e.current.MergeContext(child.Context)
			e.logger.Debug("child workflow completed", "workflow", child.WorkflowID, "depth", len(e.stack)+1)
			e.current.Index++
		}

		q := e.current.Current()
		if q.AutoAnswer == "" {
			e.emit(ctx, domain.Event{Type: domain.EventNextQuestion, Timestamp: timestamp, Question: q})
			return nil
		}

		value, status, err := e.evaluator.Resolve(q.AutoAnswer, e.answerEnv())
		if status == eval.Malformed {
			e.logger.Warn("malformed auto-answer expression, surfacing question", "question", q.ID, "err", err)
		}
		if status != eval.Resolved {
			e.emit(ctx, domain.Event{Type: domain.EventNextQuestion, Timestamp: timestamp, Question: q})
			return nil
		}

		answer, cerr := schema.CoerceAnswer(*q, domain.Answer{Type: q.Type, Value: value})
		if cerr != nil {
			// Incompatible result type: not resolvable now, fall back to
			// manual input.
			e.logger.Debug("auto-answer value incompatible with question type", "question", q.ID, "err", cerr)
			e.emit(ctx, domain.Event{Type: domain.EventNextQuestion, Timestamp: timestamp, Question: q})
			return nil
		}

		committed := *q
		e.commit(ctx, committed, answer, timestamp, true, domain.EventFeedbackEntered)
		if err := e.step(ctx, committed); err != nil {
			return err
		}
	}
}

// complete marks the session finished and notifies observers.
func (e *Engine) complete(ctx context.Context, timestamp int64, reason domain.CompletionReason) {
	e.completed = true
	e.current = nil
	e.stack = nil
	e.logger.Info("session completed", "reason", reason, "feedback_count", e.nextID)
	e.emit(ctx, domain.Event{Type: domain.EventCompleted, Timestamp: timestamp, Reason: reason})
}

// answerEnv builds the evaluation context fresh from committed feedback:
// question id -> latest answer value.
func (e *Engine) answerEnv() map[string]any {
	env := make(map[string]any, e.nextID)
	for id := 0; id < e.nextID; id++ {
		if fb := e.feedback[id]; fb != nil {
			env[fb.Question.ID] = fb.Answer.Value
		}
	}
	return env
}

// emit delivers an event to every observer in registration order, waiting for
// each before proceeding. Observer errors are logged and never interrupt the
// engine.
func (e *Engine) emit(ctx context.Context, event domain.Event) {
	event.SessionID = e.sessionID
	for _, obs := range e.observers {
		if err := obs.HandleEvent(ctx, event); err != nil {
			e.logger.Warn("observer failed", "event", event.Type, "err", err)
		}
	}
}
