package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"nonoji-quiz-service/internal/domain"
)

// UserQuestionSource serves player-authored questions from a slice
// (useful for demos and tests).
type UserQuestionSource struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	questions []domain.UserQuestion
}

func NewUserQuestionSource(questions []domain.UserQuestion) *UserQuestionSource {
	return &UserQuestionSource{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: questions,
	}
}

func (s *UserQuestionSource) Random(_ context.Context) (domain.UserQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return domain.UserQuestion{}, domain.ErrNoUserQuestions
	}
	return s.questions[s.rnd.Intn(len(s.questions))], nil
}

// Add appends a question, quiz-maker style.
func (s *UserQuestionSource) Add(q domain.UserQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, q)
}
