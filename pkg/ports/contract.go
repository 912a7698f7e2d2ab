package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/canvass/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests verifying that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	sample := func() *domain.Snapshot {
		return &domain.Snapshot{
			WorkflowVersionHash: "abc123",
			CurrentEntryIndex:   1,
			CurrentFeedbackID:   2,
			FeedbackHistory: []domain.Feedback{
				{
					ID:        0,
					Timestamp: 10,
					Question:  domain.Question{ID: "name", Type: domain.QuestionString},
					Answer:    domain.Answer{Type: domain.QuestionString, Value: "alice"},
				},
			},
			CurrentLevel: &domain.Level{
				Questions: []domain.Question{{ID: "name", Type: domain.QuestionString}},
				Index:     1,
				Context:   map[string]any{"foo": "bar"},
			},
			PlanningContext: map[string]any{"region": "us-east-1"},
			DeferredOperations: []domain.OperationRef{
				{Type: "provision", FeedbackID: 0},
			},
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := sample()
		require.NoError(t, store.Save(ctx, sessionID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.WorkflowVersionHash, loaded.WorkflowVersionHash)
		assert.Equal(t, snap.CurrentFeedbackID, loaded.CurrentFeedbackID)
		require.Len(t, loaded.FeedbackHistory, 1)
		assert.Equal(t, "name", loaded.FeedbackHistory[0].Question.ID)
		require.NotNil(t, loaded.CurrentLevel)
		assert.Equal(t, 1, loaded.CurrentLevel.Index)
		require.Len(t, loaded.DeferredOperations, 1)
		assert.Equal(t, "provision", loaded.DeferredOperations[0].Type)
		// JSON round-trips may widen numerics; existence is the contract here.
		assert.NotNil(t, loaded.PlanningContext["region"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sample()))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, sample()))
		require.NoError(t, store.Save(ctx, id2, sample()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Isolation", func(t *testing.T) {
		snap := sample()
		require.NoError(t, store.Save(ctx, sessionID, snap))

		// Mutating the saved snapshot must not affect what Load returns.
		snap.PlanningContext["region"] = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", loaded.PlanningContext["region"])

		_ = store.Delete(ctx, sessionID)
	})
}
