package canvass_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/canvass"
	"github.com/aretw0/canvass/pkg/adapters/memory"
	"github.com/aretw0/canvass/pkg/domain"
)

func memoryWorkflows() *memory.Loader {
	return memory.NewLoader(map[string][]domain.Question{
		"onboarding": {
			{ID: "name", Type: domain.QuestionString, Prompt: "Your name?"},
			{ID: "has_pet", Type: domain.QuestionBoolean, Child: &domain.ChildRef{WorkflowID: "pets", Condition: "has_pet == true"}},
			{ID: "city", Type: domain.QuestionString},
		},
		"pets": {
			{ID: "pet_name", Type: domain.QuestionString},
		},
	})
}

func TestSessionFullTraversal(t *testing.T) {
	ctx := context.Background()
	session, err := canvass.New(ctx, "s1", "onboarding", canvass.WithLoader(memoryWorkflows()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := session.Start(ctx, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	answers := []domain.Answer{
		{Type: domain.QuestionString, Value: "Alice"},
		{Type: domain.QuestionBoolean, Value: true},
		{Type: domain.QuestionString, Value: "Rex"},
		{Type: domain.QuestionString, Value: "Lisbon"},
	}
	for i, a := range answers {
		if q := session.CurrentQuestion(); q == nil {
			t.Fatalf("no current question before answer %d", i)
		}
		if err := session.Answer(ctx, a, int64(i+1)); err != nil {
			t.Fatalf("Answer %d failed: %v", i, err)
		}
	}

	if !session.Completed() {
		t.Error("session should be completed")
	}
	history := session.Feedback()
	if len(history) != 4 {
		t.Fatalf("feedback count = %d, want 4", len(history))
	}
	if history[2].Question.ID != "pet_name" {
		t.Errorf("third record = %s, want the child's question", history[2].Question.ID)
	}
}

func TestSessionResumeAcrossInstances(t *testing.T) {
	ctx := context.Background()
	session, err := canvass.New(ctx, "s2", "onboarding", canvass.WithLoader(memoryWorkflows()))
	if err != nil {
		t.Fatal(err)
	}
	_ = session.Start(ctx, 0)
	_ = session.Answer(ctx, domain.Answer{Type: domain.QuestionString, Value: "Alice"}, 1)

	snap, err := session.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	resumed, err := canvass.New(ctx, "s2", "onboarding", canvass.WithLoader(memoryWorkflows()))
	if err != nil {
		t.Fatal(err)
	}
	if err := resumed.Restore(ctx, snap, 2); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if q := resumed.CurrentQuestion(); q == nil || q.ID != "has_pet" {
		t.Errorf("resumed at %v, want has_pet", q)
	}
	if len(resumed.Feedback()) != 1 {
		t.Errorf("feedback count = %d, want 1", len(resumed.Feedback()))
	}
}

func TestNewRequiresLoaderOrDirectory(t *testing.T) {
	_, err := canvass.New(context.Background(), "s3", "onboarding")
	if err == nil {
		t.Fatal("expected error when neither loader nor workflow dir is given")
	}
}

func TestNewWithWorkflowDir(t *testing.T) {
	dir := t.TempDir()
	definition := "questions:\n  - id: greeting\n    type: string\n"
	if err := os.WriteFile(filepath.Join(dir, "hello.yaml"), []byte(definition), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	session, err := canvass.New(ctx, "s4", "hello", canvass.WithWorkflowDir(dir))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := session.Start(ctx, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if q := session.CurrentQuestion(); q == nil || q.ID != "greeting" {
		t.Errorf("current = %v, want greeting", q)
	}
}

func TestNewFailsOnMissingRootWorkflow(t *testing.T) {
	_, err := canvass.New(context.Background(), "s5", "missing", canvass.WithLoader(memoryWorkflows()))
	if err == nil {
		t.Fatal("expected error for an unknown root workflow")
	}
}
