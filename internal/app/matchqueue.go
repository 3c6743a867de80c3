package app

import (
	"log"
	"sync"
	"time"
)

// RoomAllocator abstracts room creation for the matchmaker.
type RoomAllocator interface {
	CreateRoom(opts RoomOptions) (*Room, error)
}

type waitingEntry struct {
	userID int64
	name   string
}

// MatchQueue batches anonymous players into groups and assigns each
// group a fresh random-mode room. A single background loop waits for a
// full group or, after the grace period, takes whatever partial group
// is waiting so a lone player still gets a room (bots make up the
// shortfall at game start).
type MatchQueue struct {
	need  int
	grace time.Duration
	rooms RoomAllocator

	mu      sync.Mutex
	waiting []waitingEntry
	matched map[int64]string

	wake chan struct{}
	stop chan struct{}
	once sync.Once
}

func NewMatchQueue(need int, grace time.Duration, rooms RoomAllocator) *MatchQueue {
	if need < 1 {
		need = 1
	}
	return &MatchQueue{
		need:    need,
		grace:   grace,
		rooms:   rooms,
		matched: make(map[int64]string),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

// Start launches the matchmaking loop. Safe to call more than once.
func (q *MatchQueue) Start() {
	q.once.Do(func() { go q.run() })
}

// Stop terminates the loop. Pending waiters stay queued but unmatched.
func (q *MatchQueue) Stop() {
	close(q.stop)
}

// Join enqueues a player. Joining while already matched or already
// waiting is a no-op.
func (q *MatchQueue) Join(userID int64, name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, done := q.matched[userID]; done {
		return
	}
	for _, w := range q.waiting {
		if w.userID == userID {
			return
		}
	}
	q.waiting = append(q.waiting, waitingEntry{userID, name})
	q.notify()
}

// Cancel removes a player from the waiting list.
func (q *MatchQueue) Cancel(userID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.waiting[:0]
	for _, w := range q.waiting {
		if w.userID != userID {
			kept = append(kept, w)
		}
	}
	q.waiting = kept
	q.notify()
}

// Poll returns the room code assigned to userID, if any.
func (q *MatchQueue) Poll(userID int64) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	code, ok := q.matched[userID]
	return code, ok
}

// ClearFor drops a stale match result so the user can requeue after a
// finished game.
func (q *MatchQueue) ClearFor(userID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.matched, userID)
}

func (q *MatchQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *MatchQueue) run() {
	for {
		group := q.awaitGroup()
		if group == nil {
			return // stopped
		}
		if len(group) == 0 {
			continue
		}

		room, err := q.rooms.CreateRoom(RoomOptions{IsRandom: true})
		if err != nil {
			log.Printf("matchmaker: create room: %v", err)
			q.mu.Lock()
			q.waiting = append(group, q.waiting...)
			q.mu.Unlock()
			continue
		}
		q.mu.Lock()
		for _, w := range group {
			q.matched[w.userID] = room.Code()
		}
		q.mu.Unlock()
	}
}

// awaitGroup blocks until a full group accumulates or the grace period
// elapses with at least one waiter. Returns nil when stopped.
func (q *MatchQueue) awaitGroup() []waitingEntry {
	timer := time.NewTimer(q.grace)
	defer timer.Stop()
	for {
		q.mu.Lock()
		if len(q.waiting) >= q.need {
			group := q.takeLocked(q.need)
			q.mu.Unlock()
			return group
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timer.C:
			q.mu.Lock()
			group := q.takeLocked(min(q.need, len(q.waiting)))
			q.mu.Unlock()
			return group
		case <-q.stop:
			return nil
		}
	}
}

func (q *MatchQueue) takeLocked(n int) []waitingEntry {
	if n <= 0 {
		return []waitingEntry{}
	}
	group := make([]waitingEntry, n)
	copy(group, q.waiting[:n])
	q.waiting = append(q.waiting[:0], q.waiting[n:]...)
	return group
}
