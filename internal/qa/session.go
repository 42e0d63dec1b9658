// Package qa keeps the question/answer transcript of one page view and the
// feedback loop around it.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"effort-ui/internal/effortapi"
	"effort-ui/internal/model"

	"go.uber.org/zap"
)

// Asker is the slice of the backend the session needs.
type Asker interface {
	Ask(ctx context.Context, question string) (model.Answer, error)
	AskExcluding(ctx context.Context, question string, excluded []string) (model.Answer, error)
	SendFeedback(ctx context.Context, f effortapi.Feedback) (bool, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

type FeedbackState string

const (
	FeedbackNone     FeedbackState = ""
	FeedbackAccepted FeedbackState = "accepted"
	FeedbackRejected FeedbackState = "rejected"
)

// Bubble is one transcript entry.
type Bubble struct {
	ID       int
	Role     Role
	Question string
	Text     string
	Answer   model.Answer

	// Research is set on answers produced by a reject. Excluded counts the
	// sources skipped for it.
	Research bool
	Excluded int

	Feedback FeedbackState
	// Saved reports whether the backend stored an accepted answer.
	Saved bool
	// Note is a status line shown under the bubble, e.g. a failed re-ask.
	Note string
}

// Pending reports whether the bubble still offers accept/reject.
func (b Bubble) Pending() bool {
	return b.Role == RoleAssistant && b.Answer.FeedbackEnabled && b.Feedback == FeedbackNone
}

var (
	ErrNoSuchBubble   = errors.New("no such answer")
	ErrFeedbackClosed = errors.New("feedback already given")
	ErrEmptyQuestion  = errors.New("question is required")
	ErrMissingAnswer  = errors.New("answer text is missing")
)

// Answers shorter than this are treated as missing when accepting.
const minFeedbackAnswer = 10

type Session struct {
	src Asker
	log *zap.Logger

	mu       sync.Mutex
	bubbles  []Bubble
	nextID   int
	answers  map[string]model.Answer
	excluded map[string][]string
}

func NewSession(src Asker, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		src:      src,
		log:      log,
		answers:  map[string]model.Answer{},
		excluded: map[string][]string{},
	}
}

func (s *Session) Transcript() []Bubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bubble(nil), s.bubbles...)
}

func (s *Session) appendLocked(b Bubble) Bubble {
	s.nextID++
	b.ID = s.nextID
	s.bubbles = append(s.bubbles, b)
	return b
}

func (s *Session) findLocked(id int) (int, bool) {
	for i := range s.bubbles {
		if s.bubbles[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Ask posts a fresh question. The question's excluded sources start over.
// Backend failures become an error bubble; the returned error is the cause.
func (s *Session) Ask(ctx context.Context, question string) ([]Bubble, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	s.mu.Lock()
	s.excluded[question] = nil
	user := s.appendLocked(Bubble{Role: RoleUser, Question: question, Text: question})
	s.mu.Unlock()

	a, err := s.src.Ask(ctx, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("ask failed", zap.String("question", question), zap.Error(err))
		eb := s.appendLocked(Bubble{
			Role:     RoleError,
			Question: question,
			Text:     effortapi.UserMessage(err, "The question could not be answered."),
		})
		return []Bubble{user, eb}, fmt.Errorf("ask: %w", err)
	}
	s.answers[question] = a
	ab := s.appendLocked(Bubble{Role: RoleAssistant, Question: question, Text: a.Answer, Answer: a})
	return []Bubble{user, ab}, nil
}

// Accept records positive feedback for the answer in bubble id.
func (s *Session) Accept(ctx context.Context, id int) (Bubble, error) {
	s.mu.Lock()
	i, ok := s.findLocked(id)
	if !ok || s.bubbles[i].Role != RoleAssistant {
		s.mu.Unlock()
		return Bubble{}, fmt.Errorf("%w: %d", ErrNoSuchBubble, id)
	}
	if s.bubbles[i].Feedback != FeedbackNone {
		b := s.bubbles[i]
		s.mu.Unlock()
		return b, ErrFeedbackClosed
	}
	b := s.bubbles[i]
	text := b.Answer.Answer
	if text == "" {
		text = s.answers[b.Question].Answer
	}
	s.bubbles[i].Feedback = FeedbackAccepted
	s.mu.Unlock()

	if len(strings.TrimSpace(text)) < minFeedbackAnswer {
		s.setNote(id, "The answer could not be found.")
		return s.bubble(id), ErrMissingAnswer
	}

	saved, err := s.src.SendFeedback(ctx, effortapi.Feedback{
		Question: b.Question,
		Answer:   text,
		Sources:  b.Answer.Sources,
		Type:     "positive",
	})
	if err != nil {
		// The thank-you stays; only the saved marker is withheld.
		s.log.Warn("feedback not saved", zap.String("question", b.Question), zap.Error(err))
	}
	s.mu.Lock()
	if i, ok := s.findLocked(id); ok {
		s.bubbles[i].Saved = saved && err == nil
	}
	s.mu.Unlock()
	return s.bubble(id), err
}

// Reject excludes the sources behind bubble id, together with every source
// already rejected for the same question, and asks again.
func (s *Session) Reject(ctx context.Context, id int) (Bubble, error) {
	s.mu.Lock()
	i, ok := s.findLocked(id)
	if !ok || s.bubbles[i].Role != RoleAssistant {
		s.mu.Unlock()
		return Bubble{}, fmt.Errorf("%w: %d", ErrNoSuchBubble, id)
	}
	if s.bubbles[i].Feedback != FeedbackNone {
		b := s.bubbles[i]
		s.mu.Unlock()
		return b, ErrFeedbackClosed
	}
	s.bubbles[i].Feedback = FeedbackRejected
	b := s.bubbles[i]
	excluded := s.excluded[b.Question]
	for _, src := range b.Answer.Sources {
		excluded = appendUnique(excluded, src.Source)
	}
	s.excluded[b.Question] = excluded
	excluded = append([]string(nil), excluded...)
	s.mu.Unlock()

	a, err := s.src.AskExcluding(ctx, b.Question, excluded)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("re-ask failed", zap.String("question", b.Question), zap.Int("excluded", len(excluded)), zap.Error(err))
		if i, ok := s.findLocked(id); ok {
			s.bubbles[i].Note = effortapi.UserMessage(err, "Searching again failed.")
		}
		return Bubble{}, fmt.Errorf("ask again: %w", err)
	}
	s.answers[b.Question] = a
	return s.appendLocked(Bubble{
		Role:     RoleAssistant,
		Question: b.Question,
		Text:     a.Answer,
		Answer:   a,
		Research: true,
		Excluded: len(excluded),
	}), nil
}

// Lookup returns the current state of bubble id.
func (s *Session) Lookup(id int) (Bubble, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(id); ok {
		return s.bubbles[i], true
	}
	return Bubble{}, false
}

func (s *Session) bubble(id int) Bubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(id); ok {
		return s.bubbles[i]
	}
	return Bubble{}
}

func (s *Session) setNote(id int, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(id); ok {
		s.bubbles[i].Note = note
	}
}

func appendUnique(xs []string, x string) []string {
	x = strings.TrimSpace(x)
	if x == "" {
		return xs
	}
	for _, have := range xs {
		if have == x {
			return xs
		}
	}
	return append(xs, x)
}
