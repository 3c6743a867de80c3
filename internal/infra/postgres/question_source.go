// Package postgres holds the durable stores: user-submitted questions,
// recognition stats, play profiles and stamp ownership.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"nonoji-quiz-service/internal/domain"
)

// UserQuestionSource draws a random user-submitted question.
type UserQuestionSource struct {
	pool *pgxpool.Pool
}

func NewUserQuestionSource(pool *pgxpool.Pool) *UserQuestionSource {
	return &UserQuestionSource{pool: pool}
}

func (s *UserQuestionSource) Random(ctx context.Context) (domain.UserQuestion, error) {
	var q domain.UserQuestion
	err := s.pool.QueryRow(ctx, `
		SELECT id, stem, choice_1, choice_2, choice_3, choice_4, correct_idx, hint
		FROM user_questions
		ORDER BY random()
		LIMIT 1`,
	).Scan(&q.ID, &q.Stem, &q.Choices[0], &q.Choices[1], &q.Choices[2], &q.Choices[3], &q.CorrectIdx, &q.Hint)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserQuestion{}, domain.ErrNoUserQuestions
	}
	if err != nil {
		return domain.UserQuestion{}, fmt.Errorf("random user question: %w", err)
	}
	return q, nil
}

// Add stores a submitted question and returns its id.
func (s *UserQuestionSource) Add(ctx context.Context, q domain.UserQuestion) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_questions (stem, choice_1, choice_2, choice_3, choice_4, correct_idx, hint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		q.Stem, q.Choices[0], q.Choices[1], q.Choices[2], q.Choices[3], q.CorrectIdx, q.Hint,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add user question: %w", err)
	}
	return id, nil
}
