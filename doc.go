/*
Package canvass is a workflow traversal engine: it walks an ordered list of
questions, collects structured answers, and descends into nested child
workflows, producing an append-only feedback history that can be serialized
and resumed at any point.

It separates the workflow definition (Questions, loaded by an external
loader) from the execution state (levels, feedback, planning context) and
from side effects (deferred operations executed only after the traversal
completes). This hexagonal layout lets the engine be embedded in any host:
CLI, HTTP server, or automation pipeline.

# Key Features

  - Deterministic traversal: questions surface strictly in definition order,
    with automatic answers resolved from prior feedback.
  - Nested workflows: a question can gate a child question list; the engine
    tracks the levels on an explicit stack, so sessions serialize completely.
  - Durable sessions: Serialize produces a self-contained snapshot; Restore
    rebuilds the exact position, history, and pending operations.
  - Secrets stay out of storage: sensitive answers are serialized as
    environment references or masks and re-resolved on restore.
  - Deferred side effects: operations registered during traversal run in
    order after completion, with reverse-order rollback on failure.

# Usage

	package main

	import (
		"context"
		"log"
		"time"

		"github.com/aretw0/canvass"
		"github.com/aretw0/canvass/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		session, err := canvass.New(ctx, "session-123", "onboarding",
			canvass.WithWorkflowDir("./workflows"),
		)
		if err != nil {
			log.Fatal(err)
		}

		if err := session.Start(ctx, time.Now().Unix()); err != nil {
			log.Fatal(err)
		}

		for q := session.CurrentQuestion(); q != nil; q = session.CurrentQuestion() {
			answer := askUser(q) // host-provided I/O
			if err := session.Answer(ctx, answer, time.Now().Unix()); err != nil {
				log.Printf("rejected: %v", err)
			}
		}

		for _, fb := range session.Feedback() {
			log.Printf("%s = %v", fb.Question.ID, fb.Answer.Value)
		}
	}

	func askUser(q *domain.Question) domain.Answer {
		// read from stdin, a form, an API call...
		return domain.Answer{Type: q.Type, Value: "example"}
	}

Persistence is provided by the pkg/adapters stores (file, redis, memory) and
coordinated by pkg/session.Manager; pkg/persistence/middleware adds masking
and at-rest encryption on top of any store.
*/
package canvass
