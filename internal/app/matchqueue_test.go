package app_test

import (
	"testing"
	"time"

	"nonoji-quiz-service/internal/app"
)

func newQueueDeps() app.RoomDeps {
	return app.RoomDeps{
		Bank:     &seqBank{},
		Settings: frozenSettings(),
	}
}

func pollUntil(t *testing.T, q *app.MatchQueue, userID int64, d time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(d)
	for {
		if code, ok := q.Poll(userID); ok {
			return code
		}
		if time.Now().After(deadline) {
			t.Fatalf("user %d never matched", userID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMatchQueueFullGroup(t *testing.T) {
	rooms := app.NewRoomManager(newQueueDeps(), nil)
	q := app.NewMatchQueue(2, time.Hour, rooms)
	q.Start()
	defer q.Stop()

	q.Join(1, "A")
	q.Join(2, "B")

	code1 := pollUntil(t, q, 1, 2*time.Second)
	code2 := pollUntil(t, q, 2, 2*time.Second)
	if code1 != code2 {
		t.Fatalf("group split across rooms: %s vs %s", code1, code2)
	}
	if _, ok := rooms.Get(code1); !ok {
		t.Fatalf("assigned room %s not registered", code1)
	}
}

func TestMatchQueueGraceTakesPartialGroup(t *testing.T) {
	rooms := app.NewRoomManager(newQueueDeps(), nil)
	q := app.NewMatchQueue(4, 50*time.Millisecond, rooms)
	q.Start()
	defer q.Stop()

	q.Join(1, "Solo")

	code := pollUntil(t, q, 1, 2*time.Second)
	room, ok := rooms.Get(code)
	if !ok {
		t.Fatalf("room %s not registered", code)
	}
	if !room.IsRandom() {
		t.Fatal("matchmade rooms must be random mode")
	}
}

func TestMatchQueueCancel(t *testing.T) {
	rooms := app.NewRoomManager(newQueueDeps(), nil)
	q := app.NewMatchQueue(2, 50*time.Millisecond, rooms)
	q.Start()
	defer q.Stop()

	q.Join(1, "A")
	q.Cancel(1)

	time.Sleep(200 * time.Millisecond)
	if code, ok := q.Poll(1); ok {
		t.Fatalf("cancelled player matched into %s", code)
	}
}

func TestMatchQueueJoinIsIdempotent(t *testing.T) {
	rooms := app.NewRoomManager(newQueueDeps(), nil)
	q := app.NewMatchQueue(2, time.Hour, rooms)
	q.Start()
	defer q.Stop()

	q.Join(1, "A")
	q.Join(1, "A")
	q.Join(2, "B")

	code1 := pollUntil(t, q, 1, 2*time.Second)

	// a duplicate join must not leave user 1 queued for a second room
	q.Join(3, "C")
	q.Join(4, "D")
	code3 := pollUntil(t, q, 3, 2*time.Second)
	if code1 == code3 {
		t.Fatalf("second group reused the first room %s", code1)
	}
	if again, _ := q.Poll(1); again != code1 {
		t.Fatalf("user 1 reassigned from %s to %s", code1, again)
	}
}

func TestMatchQueueClearForAllowsRequeue(t *testing.T) {
	rooms := app.NewRoomManager(newQueueDeps(), nil)
	q := app.NewMatchQueue(1, time.Hour, rooms)
	q.Start()
	defer q.Stop()

	q.Join(1, "A")
	first := pollUntil(t, q, 1, 2*time.Second)

	q.ClearFor(1)
	if _, ok := q.Poll(1); ok {
		t.Fatal("expected match result cleared")
	}

	q.Join(1, "A")
	second := pollUntil(t, q, 1, 2*time.Second)
	if first == second {
		t.Fatalf("requeue reused room %s", first)
	}
}
