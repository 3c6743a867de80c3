package postgres

import (
	"context"
	"fmt"
	"path"

	"github.com/jackc/pgx/v4/pgxpool"

	"nonoji-quiz-service/internal/app"
)

// StampInventory resolves the chat stamps a user may send from the
// characters the user owns. Every user also gets the head-start set;
// guests get only that.
type StampInventory struct {
	pool *pgxpool.Pool
}

func NewStampInventory(pool *pgxpool.Pool) *StampInventory {
	return &StampInventory{pool: pool}
}

func (s *StampInventory) AllowedKeys(ctx context.Context, userID int64) (map[string]struct{}, error) {
	allowed := make(map[string]struct{}, len(app.HeadStartStampKeys)+8)
	for _, k := range app.HeadStartStampKeys {
		allowed[k] = struct{}{}
	}
	if userID <= 0 {
		return allowed, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.sprite_path
		FROM user_characters uc
		JOIN characters c ON c.id = uc.character_id
		WHERE uc.user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("allowed stamps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sprite string
		if err := rows.Scan(&sprite); err != nil {
			return nil, fmt.Errorf("scan stamp row: %w", err)
		}
		key := path.Base(sprite)
		if key != "" && key != "." {
			allowed[key] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stamp rows: %w", err)
	}
	return allowed, nil
}
