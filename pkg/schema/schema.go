// Package schema validates and coerces answer values against question types.
//
// Values arriving from JSON decoding, YAML decoding, or the expression
// evaluator use different Go types for the same logical value (int vs int64 vs
// float64). Coerce narrows them to one canonical representation per question
// type so the rest of the engine can compare and serialize answers without
// caring where they came from.
package schema

import (
	"fmt"

	"github.com/aretw0/canvass/pkg/domain"
)

// Canonical representations: string/choice -> string, integer -> int64,
// boolean -> bool.

// Coerce validates value against the question type and returns the canonical
// representation. It returns a *ValidationError when the value cannot
// represent the type.
func Coerce(questionType string, value any) (any, error) {
	switch questionType {
	case domain.QuestionString, domain.QuestionChoice:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Type: questionType, Value: value, Reason: "expected string"}
		}
		return s, nil

	case domain.QuestionInteger:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int8:
			return int64(v), nil
		case int16:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			// JSON unmarshaling produces float64 for all numbers.
			if v == float64(int64(v)) {
				return int64(v), nil
			}
			return nil, &ValidationError{Type: questionType, Value: value, Reason: "expected whole number"}
		case float32:
			if float64(v) == float64(int64(v)) {
				return int64(v), nil
			}
			return nil, &ValidationError{Type: questionType, Value: value, Reason: "expected whole number"}
		default:
			return nil, &ValidationError{Type: questionType, Value: value, Reason: "expected integer"}
		}

	case domain.QuestionBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, &ValidationError{Type: questionType, Value: value, Reason: "expected boolean"}
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported question type: %s", questionType)
	}
}

// CoerceAnswer coerces an answer against its question, additionally checking
// choice membership when the question carries a static choice list.
// Questions with a dynamic choice source skip membership checking here: the
// live list is only known to the resolver.
func CoerceAnswer(q domain.Question, a domain.Answer) (domain.Answer, error) {
	value, err := Coerce(q.Type, a.Value)
	if err != nil {
		return domain.Answer{}, err
	}

	if q.Type == domain.QuestionChoice && len(q.Choices) > 0 && q.ChoiceSource == "" {
		s := value.(string)
		found := false
		for _, c := range q.Choices {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			return domain.Answer{}, &ValidationError{Type: q.Type, Value: s, Reason: "not in choice list"}
		}
	}

	return domain.Answer{Type: q.Type, Value: value}, nil
}
