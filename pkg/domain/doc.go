/*
Package domain contains the core domain models for the Canvass engine.

It defines the fundamental entities of the traversal state machine, such as
Questions, Answers, Feedback records, and Level snapshots. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Question: An immutable definition of one prompt in a workflow.
  - Answer: A typed value submitted in response to a Question.
  - Feedback: An immutable, append-only commit of one Answer with a
    session-global monotonic id.
  - Level: One nesting depth of a workflow (question list, position, context).
  - Snapshot: The full serialized form of a session, safe to persist.
*/
package domain
