package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/canvass/pkg/adapters/memory"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/persistence/middleware"
)

func TestMaskingMiddleware(t *testing.T) {
	underlying := memory.NewStore()
	mw := middleware.NewMaskingMiddleware([]string{"password", "token"})
	store := mw(underlying)

	ctx := context.Background()
	snap := &domain.Snapshot{
		WorkflowVersionHash: "h",
		PlanningContext: map[string]any{
			"username":      "jdoe",
			"user_password": "secret123",
			"platform": map[string]any{
				"region":    "us-east-1",
				"api_token": "tok-123",
			},
		},
		CurrentLevel: &domain.Level{
			Context: map[string]any{"db_password": "hunter2"},
		},
		LevelStack: []domain.Level{
			{Context: map[string]any{"token": "stack-secret"}},
		},
	}

	if err := store.Save(ctx, "s1", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The caller's snapshot is untouched.
	if snap.PlanningContext["user_password"] != "secret123" {
		t.Error("middleware modified the original snapshot")
	}
	if snap.CurrentLevel.Context["db_password"] != "hunter2" {
		t.Error("middleware modified the original level context")
	}

	// What hit the store is masked.
	stored, err := underlying.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("underlying load failed: %v", err)
	}
	if stored.PlanningContext["username"] != "jdoe" {
		t.Error("non-matching keys must pass through")
	}
	if stored.PlanningContext["user_password"] != "***" {
		t.Errorf("user_password = %v, want masked", stored.PlanningContext["user_password"])
	}
	platform := stored.PlanningContext["platform"].(map[string]any)
	if platform["api_token"] != "***" {
		t.Errorf("nested api_token = %v, want masked", platform["api_token"])
	}
	if platform["region"] != "us-east-1" {
		t.Error("nested non-matching keys must pass through")
	}
	if stored.CurrentLevel.Context["db_password"] != "***" {
		t.Errorf("level db_password = %v, want masked", stored.CurrentLevel.Context["db_password"])
	}
	if stored.LevelStack[0].Context["token"] != "***" {
		t.Errorf("stacked token = %v, want masked", stored.LevelStack[0].Context["token"])
	}
}
