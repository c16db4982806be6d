package testsupport

import (
	"context"
	"sync"

	"qbridge/internal/questions"
)

// QuestionService is an in-memory question backend for daemon, IPC, and CLI
// tests. Answers are recorded by question id.
type QuestionService struct {
	mu      sync.Mutex
	items   []questions.Question
	answers map[uint32]questions.Answer
	err     error
}

// NewQuestionService seeds a service with items.
func NewQuestionService(items ...questions.Question) *QuestionService {
	return &QuestionService{items: items, answers: map[uint32]questions.Answer{}}
}

// SetItems replaces the pending questions.
func (s *QuestionService) SetItems(items []questions.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// Fail makes every later call return err; nil restores normal behavior.
func (s *QuestionService) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// List returns the seeded questions.
func (s *QuestionService) List(context.Context) ([]questions.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

// SubmitAnswer records answer.
func (s *QuestionService) SubmitAnswer(_ context.Context, id uint32, answer questions.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.answers[id] = answer
	return nil
}

// Answer returns the answer recorded for id.
func (s *QuestionService) Answer(id uint32) (questions.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[id]
	return a, ok
}

// IdleFeed is a change feed that never fires and closes with its context.
type IdleFeed struct{}

// Changes returns a channel that closes when ctx ends.
func (IdleFeed) Changes(ctx context.Context) (<-chan questions.Event, error) {
	out := make(chan questions.Event)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

// SampleQuestions returns one password question (id 7) and one plain
// confirmation (id 3), in that order.
func SampleQuestions() []questions.Question {
	return []questions.Question{
		{
			Generic: questions.GenericQuestion{
				ID:            7,
				Class:         "storage.luks_activation",
				Text:          "Unlock /dev/sda1",
				Options:       []string{"decrypt", "skip"},
				DefaultOption: "skip",
				Data:          map[string]string{"device": "/dev/sda1"},
			},
			WithPassword: &questions.QuestionWithPassword{},
		},
		{
			Generic: questions.GenericQuestion{
				ID:            3,
				Class:         "software.confirm",
				Text:          "Continue?",
				Options:       []string{"yes", "no"},
				DefaultOption: "yes",
				Data:          map[string]string{},
			},
		},
	}
}
