package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aretw0/canvass/pkg/deferred"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/schema"
	"github.com/aretw0/canvass/pkg/secrets"
)

// VersionMismatchError reports a snapshot produced by a structurally different
// top-level question list. Resuming against a drifted definition would
// silently reinterpret the meaning of the historical answers, so restore
// refuses it and changes nothing.
type VersionMismatchError struct {
	Stored string
	Loaded string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("workflow version mismatch: snapshot was produced by %s, loaded definition is %s", e.Stored, e.Loaded)
}

// WorkflowHash computes the structural hash of a question list: SHA-256 over
// its canonical JSON encoding.
func WorkflowHash(questions []domain.Question) string {
	data, err := json.Marshal(questions)
	if err != nil {
		// Questions are plain data; this only fires for exotic Default values.
		return "unhashable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Serialize produces the full snapshot of the session. It is a pure read:
// engine state is never mutated, and sensitive answer values are replaced by
// secret references (when env-backed) or the opaque mask.
func (e *Engine) Serialize() (*domain.Snapshot, error) {
	if !e.started {
		return nil, domain.ErrNotStarted
	}

	snap := &domain.Snapshot{
		WorkflowVersionHash: e.hash,
		CurrentFeedbackID:   e.nextID,
		FeedbackHistory:     make([]domain.Feedback, 0, e.nextID),
		LevelStack:          make([]domain.Level, 0, len(e.stack)),
		PlanningContext:     copyContext(e.planning),
		DeferredOperations:  e.registry.Refs(),
	}

	for _, fb := range e.FeedbackArray() {
		snap.FeedbackHistory = append(snap.FeedbackHistory, sanitize(fb))
	}

	for _, level := range e.stack {
		snap.LevelStack = append(snap.LevelStack, copyLevel(level))
	}
	if e.current != nil {
		current := copyLevel(e.current)
		snap.CurrentLevel = &current
		snap.CurrentEntryIndex = e.current.Index
	}

	return snap, nil
}

// Restore rebuilds the session from a snapshot. It is valid only on a fresh
// engine constructed with the same top-level question list; any failure
// leaves the engine unchanged and must propagate, never degrading to a fresh
// session. On success it signals session_restored with the recovered record
// count.
func (e *Engine) Restore(ctx context.Context, snap *domain.Snapshot, timestamp int64) error {
	if e.started {
		return domain.ErrAlreadyStarted
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	if snap.WorkflowVersionHash != e.hash {
		return &VersionMismatchError{Stored: snap.WorkflowVersionHash, Loaded: e.hash}
	}

	// Rebuild into locals first so a late failure (e.g. a missing secret
	// variable) cannot leave the engine half-restored.
	feedback := make(map[int]*domain.Feedback, len(snap.FeedbackHistory))
	nextID := 0
	for _, record := range snap.FeedbackHistory {
		fb := record
		if fb.Sensitive && secrets.IsReference(fb.Answer.Value) {
			plain, err := secrets.Resolve(fb.Answer.Value.(string), fb.Question.ID)
			if err != nil {
				return err
			}
			fb.Answer.Value = plain
		}
		feedback[fb.ID] = &fb
		if fb.ID >= nextID {
			nextID = fb.ID + 1
		}
	}

	if len(snap.DeferredOperations) > 0 && e.codec == nil {
		return fmt.Errorf("snapshot has %d deferred operations but no decoder is configured", len(snap.DeferredOperations))
	}
	restored := make([]deferred.Operation, 0, len(snap.DeferredOperations))
	for _, ref := range snap.DeferredOperations {
		op, err := e.codec.Decode(ref)
		if err != nil {
			return fmt.Errorf("failed to rebuild deferred operation: %w", err)
		}
		restored = append(restored, op)
	}

	e.started = true
	e.feedback = feedback
	e.nextID = nextID
	e.planning = copyContext(snap.PlanningContext)
	if e.planning == nil {
		e.planning = make(map[string]any)
	}

	e.stack = e.stack[:0]
	for i := range snap.LevelStack {
		level := copyLevel(&snap.LevelStack[i])
		e.stack = append(e.stack, &level)
	}
	if snap.CurrentLevel != nil {
		level := copyLevel(snap.CurrentLevel)
		level.Index = snap.CurrentEntryIndex
		e.current = &level
		e.completed = false
	} else {
		e.current = nil
		e.completed = true
	}

	for _, op := range restored {
		e.registry.Register(op)
	}

	e.logger.Info("session restored", "recovered", len(feedback), "pending_operations", len(restored))
	e.emit(ctx, domain.Event{
		Type:      domain.EventSessionRestored,
		Timestamp: timestamp,
		Recovered: len(feedback),
	})
	return nil
}

// validateSnapshot checks the required fields of the serialized layout and
// the feedback id invariant (strictly increasing from 0, no gaps).
func validateSnapshot(snap *domain.Snapshot) error {
	if snap == nil {
		return &schema.ValidationError{Field: "snapshot", Reason: "required"}
	}

	var errs []error
	if snap.WorkflowVersionHash == "" {
		errs = append(errs, &schema.ValidationError{Field: "workflow_version_hash", Reason: "required"})
	}
	if snap.CurrentFeedbackID < 0 {
		errs = append(errs, &schema.ValidationError{Field: "current_feedback_id", Reason: "must not be negative", Value: snap.CurrentFeedbackID})
	}
	if snap.CurrentEntryIndex < 0 {
		errs = append(errs, &schema.ValidationError{Field: "current_entry_index", Reason: "must not be negative", Value: snap.CurrentEntryIndex})
	}
	if snap.CurrentLevel != nil && snap.CurrentEntryIndex > len(snap.CurrentLevel.Questions) {
		errs = append(errs, &schema.ValidationError{Field: "current_entry_index", Reason: "out of range", Value: snap.CurrentEntryIndex})
	}
	for i, fb := range snap.FeedbackHistory {
		if fb.ID != i {
			errs = append(errs, &schema.ValidationError{Field: "feedback_history", Reason: fmt.Sprintf("ids must increase from 0 without gaps, record %d has id %d", i, fb.ID), Value: fb.ID})
			break
		}
	}

	if len(errs) == 1 {
		return errs[0]
	}
	if len(errs) > 0 {
		return &schema.AggregateError{Errors: errs}
	}
	return nil
}

// sanitize replaces a sensitive answer value with its secret reference or the
// opaque mask for serialization.
func sanitize(fb domain.Feedback) domain.Feedback {
	if !fb.Sensitive {
		return fb
	}
	if fb.Question.EnvVar != "" {
		fb.Answer.Value = secrets.Reference(fb.Question.EnvVar)
	} else {
		fb.Answer.Value = secrets.Mask
	}
	return fb
}

func copyLevel(l *domain.Level) domain.Level {
	copied := domain.Level{
		WorkflowID: l.WorkflowID,
		Questions:  make([]domain.Question, len(l.Questions)),
		Index:      l.Index,
		Context:    copyContext(l.Context),
	}
	copy(copied.Questions, l.Questions)
	return copied
}

func copyContext(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyContext(sub)
			continue
		}
		out[k] = v
	}
	return out
}
