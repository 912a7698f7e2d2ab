/*
Package ports defines the interfaces between the traversal engine and its
external collaborators, following Hexagonal Architecture principles.

The engine consumes a WorkflowLoader (question lists by workflow id), a
ChoiceResolver (live choice lists), and a SessionStore (opaque snapshot
persistence). None of these are implemented here; adapters live under
pkg/adapters, and hosts may bring their own.
*/
package ports
