package qa

import (
	"context"
	"errors"
	"sync"
	"testing"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"github.com/google/go-cmp/cmp"
)

type fakeAsker struct {
	mu       sync.Mutex
	answers  []model.Answer
	askErr   error
	excluded [][]string
	feedback []effortapi.Feedback
	saveOK   bool
	calls    int
}

func (f *fakeAsker) next() model.Answer {
	a := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return a
}

func (f *fakeAsker) Ask(ctx context.Context, q string) (model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.askErr != nil {
		return model.Answer{}, f.askErr
	}
	return f.next(), nil
}

func (f *fakeAsker) AskExcluding(ctx context.Context, q string, excluded []string) (model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excluded = append(f.excluded, excluded)
	return f.next(), nil
}

func (f *fakeAsker) SendFeedback(ctx context.Context, fb effortapi.Feedback) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return f.saveOK, nil
}

func answer(text string, sources ...string) model.Answer {
	a := model.Answer{Answer: text, FeedbackEnabled: true}
	for _, s := range sources {
		a.Sources = append(a.Sources, model.Source{Source: s})
	}
	return a
}

func TestSession_AskAppendsBubbles(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{answers: []model.Answer{answer("It takes **3** points.", "doc-1")}}
	s := NewSession(f, nil)
	got, err := s.Ask(context.Background(), "  how long is login?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(got) != 2 || got[0].Role != RoleUser || got[0].Text != "how long is login?" || got[1].Role != RoleAssistant {
		t.Fatalf("unexpected bubbles: %+v", got)
	}
	if !got[1].Pending() {
		t.Fatalf("answer with feedback enabled should be pending")
	}
	if len(s.Transcript()) != 2 {
		t.Fatalf("transcript length = %d", len(s.Transcript()))
	}
}

func TestSession_AskEmptyQuestion(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{}
	s := NewSession(f, nil)
	if _, err := s.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}
	if f.calls != 0 || len(s.Transcript()) != 0 {
		t.Fatalf("empty question must not reach the backend")
	}
}

func TestSession_AskFailureAddsErrorBubble(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{askErr: &effortapi.StatusError{Op: "ask", StatusCode: 500, Message: "index missing"}}
	s := NewSession(f, nil)
	got, err := s.Ask(context.Background(), "q")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(got) != 2 || got[1].Role != RoleError || got[1].Text != "index missing" {
		t.Fatalf("unexpected bubbles: %+v", got)
	}
}

func TestSession_RejectAccumulatesExcludedSources(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{answers: []model.Answer{
		answer("first answer text", "doc-1", "doc-2"),
		answer("second answer text", "doc-2", "doc-3"),
		answer("third answer text", "doc-4"),
	}}
	s := NewSession(f, nil)
	ctx := context.Background()

	bubbles, err := s.Ask(ctx, "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	second, err := s.Reject(ctx, bubbles[1].ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if !second.Research || second.Excluded != 2 {
		t.Fatalf("unexpected re-search bubble: %+v", second)
	}
	third, err := s.Reject(ctx, second.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if third.Excluded != 3 {
		t.Fatalf("excluded = %d, want 3", third.Excluded)
	}

	want := [][]string{{"doc-1", "doc-2"}, {"doc-1", "doc-2", "doc-3"}}
	if diff := cmp.Diff(want, f.excluded); diff != "" {
		t.Fatalf("excluded sources sent (-want +got):\n%s", diff)
	}

	if _, err := s.Reject(ctx, bubbles[1].ID); !errors.Is(err, ErrFeedbackClosed) {
		t.Fatalf("second reject of same bubble: expected ErrFeedbackClosed, got %v", err)
	}

	// Asking the same question again starts a fresh exclusion set.
	again, err := s.Ask(ctx, "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := s.Reject(ctx, again[len(again)-1].ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if diff := cmp.Diff([]string{"doc-4"}, f.excluded[len(f.excluded)-1]); diff != "" {
		t.Fatalf("exclusions after a fresh ask (-want +got):\n%s", diff)
	}
}

func TestSession_Accept(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{saveOK: true, answers: []model.Answer{answer("Login takes 3 points.", "doc-1")}}
	s := NewSession(f, nil)
	bubbles, err := s.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	b, err := s.Accept(context.Background(), bubbles[1].ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if b.Feedback != FeedbackAccepted || !b.Saved || b.Pending() {
		t.Fatalf("unexpected bubble after accept: %+v", b)
	}
	if len(f.feedback) != 1 || f.feedback[0].Type != "positive" || f.feedback[0].Answer != "Login takes 3 points." {
		t.Fatalf("unexpected feedback: %+v", f.feedback)
	}
	if _, err := s.Accept(context.Background(), bubbles[0].ID); !errors.Is(err, ErrNoSuchBubble) {
		t.Fatalf("accepting a user bubble: expected ErrNoSuchBubble, got %v", err)
	}
}

func TestSession_AcceptShortAnswerIsNotSent(t *testing.T) {
	t.Parallel()

	f := &fakeAsker{saveOK: true, answers: []model.Answer{answer("ok")}}
	s := NewSession(f, nil)
	bubbles, _ := s.Ask(context.Background(), "q")
	b, err := s.Accept(context.Background(), bubbles[1].ID)
	if !errors.Is(err, ErrMissingAnswer) {
		t.Fatalf("expected ErrMissingAnswer, got %v", err)
	}
	if b.Note == "" || len(f.feedback) != 0 {
		t.Fatalf("short answer must not be sent: %+v %+v", b, f.feedback)
	}
}
