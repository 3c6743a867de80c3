package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"nonoji-quiz-service/internal/domain"
)

// StatsRecorder accumulates per-facility recognition counters.
type StatsRecorder struct {
	pool *pgxpool.Pool
}

func NewStatsRecorder(pool *pgxpool.Pool) *StatsRecorder {
	return &StatsRecorder{pool: pool}
}

func (r *StatsRecorder) RecordRound(ctx context.Context, sample domain.RecognitionSample) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recognition_stats (facility_id, facility_name, city, kind, shown, answered, correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (facility_id) DO UPDATE SET
			facility_name = EXCLUDED.facility_name,
			city          = EXCLUDED.city,
			kind          = EXCLUDED.kind,
			shown         = recognition_stats.shown + EXCLUDED.shown,
			answered      = recognition_stats.answered + EXCLUDED.answered,
			correct       = recognition_stats.correct + EXCLUDED.correct,
			updated_at    = now()`,
		sample.FacilityID, sample.FacilityName, sample.City, sample.Kind,
		sample.Shown, sample.Answered, sample.Correct,
	)
	if err != nil {
		return fmt.Errorf("record recognition round: %w", err)
	}
	return nil
}
