package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/ports"
	"github.com/aretw0/canvass/pkg/secrets"
)

type maskingMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewMaskingMiddleware creates a middleware that masks context values whose
// keys match any of the patterns before the snapshot reaches the store.
// It covers the planning context and every level context; answer values are
// already sanitized by serialization.
func NewMaskingMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &maskingMiddleware{next: next, patterns: patterns}
	}
}

func (m *maskingMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	// Deep clone first so the caller's snapshot is untouched.
	cloned := *snap
	cloned.PlanningContext = deepCopyMap(snap.PlanningContext)
	maskMap(cloned.PlanningContext, m.patterns)

	if snap.CurrentLevel != nil {
		level := *snap.CurrentLevel
		level.Context = deepCopyMap(snap.CurrentLevel.Context)
		maskMap(level.Context, m.patterns)
		cloned.CurrentLevel = &level
	}

	cloned.LevelStack = make([]domain.Level, len(snap.LevelStack))
	for i, level := range snap.LevelStack {
		level.Context = deepCopyMap(level.Context)
		maskMap(level.Context, m.patterns)
		cloned.LevelStack[i] = level
	}

	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *maskingMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *maskingMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *maskingMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = secrets.Mask
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
