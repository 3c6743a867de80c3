package memory

import (
	"context"
	"sync"

	"nonoji-quiz-service/internal/app"
)

// StampInventory resolves allowed stamp keys from an in-memory unlock
// table. Every user (and guests, id <= 0) gets the head-start keys.
type StampInventory struct {
	mu       sync.Mutex
	unlocked map[int64][]string
}

func NewStampInventory() *StampInventory {
	return &StampInventory{unlocked: make(map[int64][]string)}
}

// Unlock grants a stamp key to a user.
func (s *StampInventory) Unlock(userID int64, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[userID] = append(s.unlocked[userID], key)
}

func (s *StampInventory) AllowedKeys(_ context.Context, userID int64) (map[string]struct{}, error) {
	allowed := make(map[string]struct{}, len(app.HeadStartStampKeys))
	for _, k := range app.HeadStartStampKeys {
		allowed[k] = struct{}{}
	}
	if userID <= 0 {
		return allowed, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.unlocked[userID] {
		allowed[k] = struct{}{}
	}
	return allowed, nil
}
