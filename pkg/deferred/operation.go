package deferred

import (
	"context"

	"github.com/aretw0/canvass/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Operation is a side-effecting action registered during traversal and
// executed only when the workflow completes. Implementations talk to real
// infrastructure; the registry only owns ordering, rollback, and identity.
type Operation interface {
	// Type is the stable tag used to serialize and reconstruct the operation.
	Type() string

	// FeedbackID is the id of the feedback record whose commit registered
	// this operation.
	FeedbackID() int

	// Execute performs the side effect. history is the canonical feedback
	// array; resolved is the platform context with every secret reference
	// already replaced by its live value.
	Execute(ctx context.Context, history []domain.Feedback, resolved map[string]any) error

	// Rollback undoes the side effect of a completed Execute.
	Rollback(ctx context.Context) error
}

// Bind maps the latest answer of each question id onto a typed struct using
// mapstructure, so operations can read history without switching on ids.
// Later records win, matching re-answer semantics.
func Bind(history []domain.Feedback, target any) error {
	values := make(map[string]any, len(history))
	for _, fb := range history {
		values[fb.Question.ID] = fb.Answer.Value
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}
