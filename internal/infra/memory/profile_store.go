package memory

import (
	"context"
	"sync"
)

// ProfileStore tracks play counts and cleared challenge tiers in
// memory.
type ProfileStore struct {
	mu      sync.Mutex
	plays   map[int64]int
	cleared map[int64]map[string]struct{}
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		plays:   make(map[int64]int),
		cleared: make(map[int64]map[string]struct{}),
	}
}

func (s *ProfileStore) IncrementPlays(_ context.Context, userIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uid := range userIDs {
		s.plays[uid]++
	}
	return nil
}

func (s *ProfileStore) MarkChallengeCleared(_ context.Context, userID int64, tier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared[userID] == nil {
		s.cleared[userID] = make(map[string]struct{})
	}
	s.cleared[userID][tier] = struct{}{}
	return nil
}

// Plays returns the recorded play count for a user.
func (s *ProfileStore) Plays(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays[userID]
}

// Cleared reports whether the user has cleared the given tier.
func (s *ProfileStore) Cleared(userID int64, tier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cleared[userID][tier]
	return ok
}
