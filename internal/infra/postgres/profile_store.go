package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ProfileStore tracks per-user play counts and challenge clears.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (p *ProfileStore) IncrementPlays(ctx context.Context, userIDs []int64) error {
	for _, userID := range userIDs {
		_, err := p.pool.Exec(ctx, `
			INSERT INTO quiz_profiles (user_id, play_count)
			VALUES ($1, 1)
			ON CONFLICT (user_id) DO UPDATE SET
				play_count = quiz_profiles.play_count + 1,
				updated_at = now()`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("increment plays for %d: %w", userID, err)
		}
	}
	return nil
}

func (p *ProfileStore) MarkChallengeCleared(ctx context.Context, userID int64, level string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO quiz_profiles (user_id, play_count, cleared_level)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			cleared_level = EXCLUDED.cleared_level,
			updated_at    = now()`,
		userID, level,
	)
	if err != nil {
		return fmt.Errorf("mark challenge cleared: %w", err)
	}
	return nil
}
