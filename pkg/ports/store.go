package ports

import (
	"context"

	"github.com/aretw0/canvass/pkg/domain"
)

// SessionStore persists serialized session snapshots, keyed by session id.
// This enables durable "stop & resume" workflows across process restarts.
type SessionStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
