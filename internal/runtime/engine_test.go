package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/canvass/internal/runtime"
	"github.com/aretw0/canvass/pkg/domain"
)

// recorder captures events in delivery order.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) HandleEvent(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func answer(t string, v any) domain.Answer {
	return domain.Answer{Type: t, Value: v}
}

func TestSingleQuestionFlow(t *testing.T) {
	// Scenario: one string question. Start surfaces it, one answer
	// completes the session with exactly one feedback record.
	rec := &recorder{}
	engine := runtime.NewEngine("sess-1",
		[]domain.Question{{ID: "name", Type: domain.QuestionString, Prompt: "Your name?"}},
		runtime.WithObserver(rec),
	)

	ctx := context.Background()
	if err := engine.Start(ctx, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	q := engine.CurrentQuestion()
	if q == nil || q.ID != "name" {
		t.Fatalf("CurrentQuestion = %v, want name", q)
	}

	if err := engine.Answer(ctx, answer(domain.QuestionString, "Alice"), 1); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if !engine.Completed() {
		t.Error("session should be completed")
	}
	if engine.CurrentQuestion() != nil {
		t.Error("CurrentQuestion must return nil once complete")
	}

	history := engine.FeedbackArray()
	if len(history) != 1 {
		t.Fatalf("feedback count = %d, want 1", len(history))
	}
	fb := history[0]
	if fb.ID != 0 || fb.Answer.Value != "Alice" || fb.Timestamp != 1 || fb.Automatic {
		t.Errorf("unexpected feedback record: %+v", fb)
	}

	got := rec.types()
	want := []domain.EventType{domain.EventNextQuestion, domain.EventFeedbackEntered, domain.EventCompleted}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	last := rec.events[len(rec.events)-1]
	if last.Reason != domain.ReasonClosed {
		t.Errorf("completion reason = %s, want closed", last.Reason)
	}
}

func TestFeedbackIDsMonotonic(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionString},
		{ID: "b", Type: domain.QuestionString},
		{ID: "c", Type: domain.QuestionInteger, AutoAnswer: "7"},
		{ID: "d", Type: domain.QuestionString},
	}
	engine := runtime.NewEngine("sess-ids", questions)
	ctx := context.Background()

	if err := engine.Start(ctx, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i, v := range []string{"one", "two", "three"} {
		if err := engine.Answer(ctx, answer(domain.QuestionString, v), int64(i)); err != nil {
			t.Fatalf("Answer %d failed: %v", i, err)
		}
	}

	history := engine.FeedbackArray()
	if len(history) != 4 {
		t.Fatalf("feedback count = %d, want 4 (3 manual + 1 automatic)", len(history))
	}
	for i, fb := range history {
		if fb.ID != i {
			t.Errorf("feedback[%d].ID = %d: ids must increase from 0 with no gaps", i, fb.ID)
		}
	}
}

func TestAnswerOnFinishedSessionIsNoop(t *testing.T) {
	engine := runtime.NewEngine("sess-done", []domain.Question{{ID: "a", Type: domain.QuestionString}})
	ctx := context.Background()

	_ = engine.Start(ctx, 0)
	_ = engine.Answer(ctx, answer(domain.QuestionString, "x"), 1)

	if err := engine.Answer(ctx, answer(domain.QuestionString, "y"), 2); err != nil {
		t.Errorf("Answer after completion must be a no-op, got error: %v", err)
	}
	if got := len(engine.FeedbackArray()); got != 1 {
		t.Errorf("feedback count = %d, want 1", got)
	}
}

func TestAnswerBeforeStartIsNoop(t *testing.T) {
	engine := runtime.NewEngine("sess-fresh", []domain.Question{{ID: "a", Type: domain.QuestionString}})

	if err := engine.Answer(context.Background(), answer(domain.QuestionString, "x"), 0); err != nil {
		t.Errorf("Answer before Start must be a no-op, got error: %v", err)
	}
	if got := len(engine.FeedbackArray()); got != 0 {
		t.Errorf("feedback count = %d, want 0", got)
	}
}

func TestStartTwiceFailsLoudly(t *testing.T) {
	engine := runtime.NewEngine("sess-twice", []domain.Question{{ID: "a", Type: domain.QuestionString}})
	ctx := context.Background()

	if err := engine.Start(ctx, 0); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := engine.Start(ctx, 1); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestEmptyWorkflowCompletesImmediately(t *testing.T) {
	rec := &recorder{}
	engine := runtime.NewEngine("sess-empty", nil, runtime.WithObserver(rec))

	if err := engine.Start(context.Background(), 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !engine.Completed() {
		t.Error("empty workflow must complete on Start")
	}
	got := rec.types()
	if len(got) != 1 || got[0] != domain.EventCompleted {
		t.Errorf("events = %v, want [completed]", got)
	}
}

func TestInvalidAnswerRejectedInPlace(t *testing.T) {
	engine := runtime.NewEngine("sess-invalid", []domain.Question{{ID: "age", Type: domain.QuestionInteger}})
	ctx := context.Background()
	_ = engine.Start(ctx, 0)

	if err := engine.Answer(ctx, answer(domain.QuestionInteger, "not a number"), 1); err == nil {
		t.Fatal("expected validation error")
	}
	if q := engine.CurrentQuestion(); q == nil || q.ID != "age" {
		t.Errorf("position must not move on invalid answer, current = %v", q)
	}
	if got := len(engine.FeedbackArray()); got != 0 {
		t.Errorf("no feedback may be committed for a rejected answer, got %d", got)
	}
}

func TestReanswerAppendsAndEmitsUpdated(t *testing.T) {
	rec := &recorder{}
	engine := runtime.NewEngine("sess-revise",
		[]domain.Question{
			{ID: "name", Type: domain.QuestionString},
			{ID: "city", Type: domain.QuestionString},
		},
		runtime.WithObserver(rec),
	)
	ctx := context.Background()
	_ = engine.Start(ctx, 0)
	_ = engine.Answer(ctx, answer(domain.QuestionString, "Alice"), 1)

	if err := engine.Reanswer(ctx, "name", answer(domain.QuestionString, "Bob"), 2); err != nil {
		t.Fatalf("Reanswer failed: %v", err)
	}

	history := engine.FeedbackArray()
	if len(history) != 2 {
		t.Fatalf("feedback count = %d, want 2 (revision appends, never edits)", len(history))
	}
	if history[1].ID != 1 || history[1].Answer.Value != "Bob" {
		t.Errorf("revision record = %+v", history[1])
	}

	sawUpdated := false
	for _, e := range rec.types() {
		if e == domain.EventFeedbackUpdated {
			sawUpdated = true
		}
	}
	if !sawUpdated {
		t.Error("expected feedback_updated event")
	}
	if q := engine.CurrentQuestion(); q == nil || q.ID != "city" {
		t.Errorf("Reanswer must not move the position, current = %v", q)
	}

	if err := engine.Reanswer(ctx, "never_asked", answer(domain.QuestionString, "x"), 3); err == nil {
		t.Error("Reanswer for an unanswered question must fail")
	}
}

func TestCancelDiscardsDeferredAndCompletesCanceled(t *testing.T) {
	rec := &recorder{}
	engine := runtime.NewEngine("sess-cancel",
		[]domain.Question{
			{ID: "a", Type: domain.QuestionString},
			{ID: "b", Type: domain.QuestionString},
		},
		runtime.WithObserver(rec),
	)
	ctx := context.Background()
	_ = engine.Start(ctx, 0)
	_ = engine.Answer(ctx, answer(domain.QuestionString, "x"), 1)
	engine.RegisterDeferred(&noopOp{tag: "provision", id: 0})

	if err := engine.Cancel(ctx, 2); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if !engine.Completed() {
		t.Error("canceled session must be completed")
	}
	if got := len(engine.DeferredRefs()); got != 0 {
		t.Errorf("deferred operations must be discarded, %d left", got)
	}
	last := rec.events[len(rec.events)-1]
	if last.Type != domain.EventCompleted || last.Reason != domain.ReasonCanceled {
		t.Errorf("last event = %s/%s, want completed/canceled", last.Type, last.Reason)
	}
}

type noopOp struct {
	tag string
	id  int
}

func (o *noopOp) Type() string    { return o.tag }
func (o *noopOp) FeedbackID() int { return o.id }
func (o *noopOp) Execute(ctx context.Context, history []domain.Feedback, resolved map[string]any) error {
	return nil
}
func (o *noopOp) Rollback(ctx context.Context) error { return nil }

func TestObserversNotifiedInRegistrationOrder(t *testing.T) {
	var order []string
	mk := func(name string) domain.ObserverFunc {
		return func(ctx context.Context, event domain.Event) error {
			if event.Type == domain.EventFeedbackEntered {
				order = append(order, name)
			}
			return nil
		}
	}

	engine := runtime.NewEngine("sess-order",
		[]domain.Question{{ID: "a", Type: domain.QuestionString}},
		runtime.WithObserver(mk("first")),
		runtime.WithObserver(mk("second")),
	)
	ctx := context.Background()
	_ = engine.Start(ctx, 0)
	_ = engine.Answer(ctx, answer(domain.QuestionString, "x"), 1)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v, want [first second]", order)
	}
}
