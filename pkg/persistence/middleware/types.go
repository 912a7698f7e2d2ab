// Package middleware provides composable wrappers around a SessionStore:
// masking of sensitive planning keys and at-rest encryption of snapshots.
package middleware

import "github.com/aretw0/canvass/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares so the first one listed sees the call first.
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
