// Package deferred queues side-effecting operations during traversal and runs
// them, in registration order, once the workflow completes.
//
// Execution is strictly sequential: later operations may depend on earlier
// ones' side effects. On the first failure, already-executed operations are
// rolled back in reverse order and the original error is re-raised tagged
// with the failing operation's identity and triggering feedback id.
package deferred

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/canvass/internal/logging"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/secrets"
)

// ExecutionError reports a failed ExecuteAll after the rollback sweep.
type ExecutionError struct {
	Tag          string
	FeedbackID   int
	Err          error
	RollbackErrs []error // recorded, never blocking; empty when all rollbacks succeeded
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("deferred operation %q (feedback %d) failed: %v", e.Tag, e.FeedbackID, e.Err)
	if len(e.RollbackErrs) > 0 {
		msg += fmt.Sprintf(" (%d rollback errors)", len(e.RollbackErrs))
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Registry owns registered operations for one session until they are executed
// or discarded.
type Registry struct {
	mu     sync.Mutex
	ops    []Operation
	logger *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the logger used for the swallowed-by-design errors
// (rollback sweep failures).
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends an operation. Order of registration is order of execution.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Len returns the number of pending operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Refs returns the serialized form of the pending operations, in order.
func (r *Registry) Refs() []domain.OperationRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]domain.OperationRef, len(r.ops))
	for i, op := range r.ops {
		refs[i] = domain.OperationRef{Type: op.Type(), FeedbackID: op.FeedbackID()}
	}
	return refs
}

// Cancel discards all registered operations without executing or rolling back
// any of them. This is the abandon-before-completion path, distinct from a
// mid-execution failure.
func (r *Registry) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// ExecuteAll resolves every secret reference in platform, then runs the
// pending operations strictly in registration order, one at a time. A dangling
// secret fails hard before anything runs. On the first execution failure,
// already-executed operations are rolled back in reverse order; rollback
// errors are logged and recorded but never stop the sweep.
//
// On success the registry is emptied. On failure it is left intact so the
// caller can retry after fixing the cause.
//
// An empty registry is a no-op: no secret resolution, no error.
func (r *Registry) ExecuteAll(ctx context.Context, history []domain.Feedback, platform map[string]any) error {
	r.mu.Lock()
	ops := make([]Operation, len(r.ops))
	copy(ops, r.ops)
	r.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	resolved, err := secrets.ResolveMap(platform)
	if err != nil {
		return fmt.Errorf("refusing to execute deferred operations: %w", err)
	}

	for i, op := range ops {
		r.logger.Debug("executing deferred operation", "type", op.Type(), "feedback_id", op.FeedbackID())
		if err := op.Execute(ctx, history, resolved); err != nil {
			rollbackErrs := r.sweep(ctx, ops[:i])
			return &ExecutionError{
				Tag:          op.Type(),
				FeedbackID:   op.FeedbackID(),
				Err:          err,
				RollbackErrs: rollbackErrs,
			}
		}
	}

	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
	return nil
}

// sweep rolls back executed operations in strict reverse order. A rollback
// failure never blocks rolling back the remaining ones.
func (r *Registry) sweep(ctx context.Context, executed []Operation) []error {
	var errs []error
	for i := len(executed) - 1; i >= 0; i-- {
		op := executed[i]
		if err := op.Rollback(ctx); err != nil {
			r.logger.Warn("rollback failed, continuing sweep",
				"type", op.Type(),
				"feedback_id", op.FeedbackID(),
				"err", err,
			)
			errs = append(errs, err)
		}
	}
	return errs
}

// RollbackAll is a best-effort cleanup hook: it calls Rollback on every
// pending operation, swallowing errors, then clears the registry. Unlike the
// sweep inside ExecuteAll it does not know which operations actually ran, so
// it must not be treated as a true rollback.
func (r *Registry) RollbackAll(ctx context.Context) {
	r.mu.Lock()
	ops := r.ops
	r.ops = nil
	r.mu.Unlock()

	for i := len(ops) - 1; i >= 0; i-- {
		if err := ops[i].Rollback(ctx); err != nil {
			r.logger.Warn("best-effort rollback failed",
				"type", ops[i].Type(),
				"feedback_id", ops[i].FeedbackID(),
				"err", err,
			)
		}
	}
}
