// Package memory provides in-memory implementations of the engine ports,
// used by tests and embedded hosts.
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/canvass/pkg/domain"
)

// Loader implements ports.WorkflowLoader using an in-memory map.
type Loader struct {
	workflows map[string][]domain.Question
}

// NewLoader creates a loader over the given workflow definitions
// (workflow id -> ordered question list).
func NewLoader(workflows map[string][]domain.Question) *Loader {
	copied := make(map[string][]domain.Question, len(workflows))
	for id, questions := range workflows {
		copied[id] = append([]domain.Question(nil), questions...)
	}
	return &Loader{workflows: copied}
}

// LoadWorkflow returns the question list for a workflow id.
func (l *Loader) LoadWorkflow(ctx context.Context, workflowID string) ([]domain.Question, error) {
	questions, ok := l.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow not found: %s", workflowID)
	}
	return append([]domain.Question(nil), questions...), nil
}

// ListWorkflows returns all available workflow ids in deterministic order.
func (l *Loader) ListWorkflows() []string {
	ids := make([]string, 0, len(l.workflows))
	for id := range l.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChoiceResolverFunc adapts a function to ports.ChoiceResolver, mainly for
// tests.
type ChoiceResolverFunc func(ctx context.Context, question domain.Question, context map[string]any) ([]string, error)

// GetDynamicChoices implements ports.ChoiceResolver.
func (f ChoiceResolverFunc) GetDynamicChoices(ctx context.Context, question domain.Question, context map[string]any) ([]string, error) {
	return f(ctx, question, context)
}
