package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/aretw0/canvass/pkg/domain"
)

// ResolveDynamicChoices delegates to the external resolver, caching results
// per (resolver target, question, context fingerprint) for the life of the
// session. On resolver failure it falls back to the question's static choice
// list. It never returns an error.
func (e *Engine) ResolveDynamicChoices(ctx context.Context, q domain.Question, choiceCtx map[string]any) []string {
	if q.ChoiceSource == "" || e.choices == nil {
		return q.Choices
	}

	key := q.ChoiceSource + "|" + q.ID + "|" + fingerprint(choiceCtx)
	if cached, ok := e.choiceCache[key]; ok {
		return cached
	}

	choices, err := e.choices.GetDynamicChoices(ctx, q, choiceCtx)
	if err != nil {
		e.logger.Warn("dynamic choice resolution failed, using static list",
			"question", q.ID,
			"source", q.ChoiceSource,
			"err", err,
		)
		return q.Choices
	}

	e.choiceCache[key] = choices
	return choices
}

// fingerprint produces a stable digest of a context map. encoding/json sorts
// map keys, so equal maps always fingerprint equally.
func fingerprint(m map[string]any) string {
	data, err := json.Marshal(m)
	if err != nil {
		return "opaque"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
