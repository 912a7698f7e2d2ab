package ports

import (
	"context"

	"github.com/aretw0/canvass/pkg/domain"
)

// WorkflowLoader resolves a workflow id to its ordered question list.
// Implementations must be deterministic for a given id: the engine trusts
// child question lists embedded in snapshots to match what the loader would
// return today.
type WorkflowLoader interface {
	LoadWorkflow(ctx context.Context, workflowID string) ([]domain.Question, error)
}

// ChoiceResolver fetches live choice lists from outside systems.
// Failures are non-fatal: the engine falls back to the question's static
// choices and never surfaces a resolver error.
type ChoiceResolver interface {
	GetDynamicChoices(ctx context.Context, question domain.Question, context map[string]any) ([]string, error)
}
