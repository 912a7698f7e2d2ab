package canvass

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/canvass/internal/runtime"
	"github.com/aretw0/canvass/pkg/adapters/file"
	"github.com/aretw0/canvass/pkg/deferred"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/ports"
)

// Version is the library version, overridable at build time.
var Version = "0.1.0"

// Session is the high-level entry point for the Canvass library. It wraps the
// internal runtime engine for one traversal session and provides a simplified
// API for hosts.
type Session struct {
	engine      *runtime.Engine
	loader      ports.WorkflowLoader
	choices     ports.ChoiceResolver
	codec       *deferred.Codec
	observers   []domain.Observer
	logger      *slog.Logger
	workflowDir string
}

// Option defines a functional option for configuring a Session.
type Option func(*Session)

// WithLoader injects a custom WorkflowLoader, bypassing the default
// filesystem loader.
func WithLoader(l ports.WorkflowLoader) Option {
	return func(s *Session) {
		s.loader = l
	}
}

// WithWorkflowDir sets the directory for the default YAML workflow loader.
func WithWorkflowDir(dir string) Option {
	return func(s *Session) {
		s.workflowDir = dir
	}
}

// WithChoiceResolver injects a resolver for dynamic choice lists.
func WithChoiceResolver(r ports.ChoiceResolver) Option {
	return func(s *Session) {
		s.choices = r
	}
}

// WithObserver registers an observer for engine events.
func WithObserver(obs domain.Observer) Option {
	return func(s *Session) {
		s.observers = append(s.observers, obs)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithCodec injects the decoder used to rebuild deferred operations when
// restoring a stored session.
func WithCodec(codec *deferred.Codec) Option {
	return func(s *Session) {
		s.codec = codec
	}
}

// New creates a Session for the given root workflow. The root question list
// is loaded immediately; traversal begins on Start (or Restore).
func New(ctx context.Context, sessionID, rootWorkflowID string, opts ...Option) (*Session, error) {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		if s.workflowDir == "" {
			return nil, fmt.Errorf("a workflow directory or custom loader is required")
		}
		s.loader = file.NewLoader(s.workflowDir)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	questions, err := s.loader.LoadWorkflow(ctx, rootWorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load root workflow %s: %w", rootWorkflowID, err)
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithLoader(s.loader),
		runtime.WithLogger(s.logger),
	}
	if s.choices != nil {
		engineOpts = append(engineOpts, runtime.WithChoiceResolver(s.choices))
	}
	if s.codec != nil {
		engineOpts = append(engineOpts, runtime.WithCodec(s.codec))
	}
	for _, obs := range s.observers {
		engineOpts = append(engineOpts, runtime.WithObserver(obs))
	}

	s.engine = runtime.NewEngine(sessionID, questions, engineOpts...)
	return s, nil
}

// Start begins traversal at the first question of the root workflow.
func (s *Session) Start(ctx context.Context, timestamp int64) error {
	return s.engine.Start(ctx, timestamp)
}

// Answer commits an answer for the current question and advances.
func (s *Session) Answer(ctx context.Context, answer domain.Answer, timestamp int64) error {
	return s.engine.Answer(ctx, answer, timestamp)
}

// Reanswer appends a revised answer for an already answered question without
// moving the traversal position.
func (s *Session) Reanswer(ctx context.Context, questionID string, answer domain.Answer, timestamp int64) error {
	return s.engine.Reanswer(ctx, questionID, answer, timestamp)
}

// Cancel abandons the session, discarding pending deferred operations.
func (s *Session) Cancel(ctx context.Context, timestamp int64) error {
	return s.engine.Cancel(ctx, timestamp)
}

// CurrentQuestion returns the question awaiting input, or nil when the
// session is completed or not started.
func (s *Session) CurrentQuestion() *domain.Question {
	return s.engine.CurrentQuestion()
}

// Choices resolves the effective choice list for a question, consulting the
// dynamic resolver when one is configured.
func (s *Session) Choices(ctx context.Context, q domain.Question) []string {
	return s.engine.ResolveDynamicChoices(ctx, q, s.engine.LevelContext())
}

// Feedback returns the committed records in id order.
func (s *Session) Feedback() []domain.Feedback {
	return s.engine.FeedbackArray()
}

// Completed reports whether traversal has finished.
func (s *Session) Completed() bool {
	return s.engine.Completed()
}

// Started reports whether the session has begun.
func (s *Session) Started() bool {
	return s.engine.Started()
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.engine.SessionID()
}

// SetPlanningValue stores a session-global planning value.
func (s *Session) SetPlanningValue(key string, value any) {
	s.engine.SetPlanningValue(key, value)
}

// RegisterDeferred queues an operation for execution after completion.
func (s *Session) RegisterDeferred(op deferred.Operation) {
	s.engine.RegisterDeferred(op)
}

// ExecuteDeferred runs queued operations in registration order, rolling back
// already executed ones in reverse when one fails.
func (s *Session) ExecuteDeferred(ctx context.Context, platform map[string]any) error {
	return s.engine.ExecuteDeferred(ctx, platform)
}

// Serialize produces a snapshot of the full session state, with sensitive
// values replaced by secret references or masks.
func (s *Session) Serialize() (*domain.Snapshot, error) {
	return s.engine.Serialize()
}

// Restore rebuilds session state from a snapshot produced by Serialize.
// It is valid only before Start, and only against the same workflow version.
func (s *Session) Restore(ctx context.Context, snap *domain.Snapshot, timestamp int64) error {
	return s.engine.Restore(ctx, snap, timestamp)
}

// Loader returns the workflow loader used by the session.
func (s *Session) Loader() ports.WorkflowLoader {
	return s.loader
}
