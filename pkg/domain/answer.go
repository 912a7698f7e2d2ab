package domain

// Answer is a typed value submitted in response to a Question.
type Answer struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Equal reports whether two answers carry the same type and value.
// Values are compared after normalization, so int(18) and int64(18) match.
func (a Answer) Equal(b Answer) bool {
	if a.Type != b.Type {
		return false
	}
	return normalize(a.Value) == normalize(b.Value)
}

// normalize collapses the numeric types JSON decoding produces into int64/float64
// so equality does not depend on the decoding path.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	default:
		return v
	}
}
