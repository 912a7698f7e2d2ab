// Package secrets keeps plaintext secrets out of persisted and logged state.
//
// A sensitive value is stored as a reference ("secret:" + environment variable
// name) or as an opaque mask. References are resolved against the execution
// environment only at the moments a real value is needed: deferred-operation
// execution and session restore. A snapshot therefore never freezes a secret
// into a stored blob, and rotating the variable rotates the value everywhere.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Prefix is the sentinel marking a string value as a secret reference.
const Prefix = "secret:"

// Mask is the opaque placeholder substituted for sensitive values in display
// and log contexts.
const Mask = "***"

// NotFoundError reports a reference whose backing environment variable is not
// set. It names both the variable and the logical field it was feeding so the
// operator knows what to export.
type NotFoundError struct {
	Variable string
	Field    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret variable %q is not set (needed by %q)", e.Variable, e.Field)
}

// Reference builds a secret reference for an environment variable name.
func Reference(envVar string) string {
	return Prefix + envVar
}

// IsReference reports whether a value is a secret reference: a string starting
// with the sentinel prefix and longer than the prefix alone.
func IsReference(value any) bool {
	s, ok := value.(string)
	return ok && len(s) > len(Prefix) && strings.HasPrefix(s, Prefix)
}

// Resolve strips the prefix and reads the named variable from the environment.
// field is the logical destination of the value, used in the error.
func Resolve(reference, field string) (string, error) {
	name := strings.TrimPrefix(reference, Prefix)
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", &NotFoundError{Variable: name, Field: field}
	}
	return value, nil
}

// ResolveMap resolves every secret reference found in m, recursing into nested
// maps. It returns a resolved copy and fails on the first dangling reference;
// the input is never mutated.
func ResolveMap(m map[string]any) (map[string]any, error) {
	return resolveMap(m, "")
}

func resolveMap(m map[string]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		field := k
		if path != "" {
			field = path + "." + k
		}
		switch {
		case IsReference(v):
			resolved, err := Resolve(v.(string), field)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		default:
			if sub, ok := v.(map[string]any); ok {
				resolved, err := resolveMap(sub, field)
				if err != nil {
					return nil, err
				}
				out[k] = resolved
				continue
			}
			out[k] = v
		}
	}
	return out, nil
}
