package memory

import (
	"context"
	"sync"

	"nonoji-quiz-service/internal/domain"
)

// StatsRecorder accumulates recognition samples in memory, keyed by
// facility. Used when no database is configured.
type StatsRecorder struct {
	mu    sync.Mutex
	stats map[string]domain.RecognitionSample
}

func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{stats: make(map[string]domain.RecognitionSample)}
}

func (r *StatsRecorder) RecordRound(_ context.Context, sample domain.RecognitionSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg := r.stats[sample.FacilityID]
	agg.FacilityID = sample.FacilityID
	agg.FacilityName = sample.FacilityName
	agg.City = sample.City
	agg.Kind = sample.Kind
	agg.Shown += sample.Shown
	agg.Answered += sample.Answered
	agg.Correct += sample.Correct
	r.stats[sample.FacilityID] = agg
	return nil
}

// Snapshot returns a copy of the accumulated stats.
func (r *StatsRecorder) Snapshot() map[string]domain.RecognitionSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.RecognitionSample, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}
