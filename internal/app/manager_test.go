package app_test

import (
	"sync"
	"testing"

	"nonoji-quiz-service/internal/app"
)

type recordingDirectory struct {
	mu     sync.Mutex
	live   []string
	forgot []string
}

func (d *recordingDirectory) MarkLive(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.live = append(d.live, code)
}

func (d *recordingDirectory) Forget(code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forgot = append(d.forgot, code)
}

func TestCreateRoomIssuesUniqueCodes(t *testing.T) {
	dir := &recordingDirectory{}
	m := app.NewRoomManager(newQueueDeps(), dir)

	codes := map[string]bool{}
	for i := 0; i < 50; i++ {
		room, err := m.CreateRoom(app.RoomOptions{})
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		code := room.Code()
		if len(code) != 6 {
			t.Fatalf("unexpected code %q", code)
		}
		for _, ch := range code {
			if ch == '0' || ch == '1' || ch == 'O' || ch == 'I' {
				t.Fatalf("ambiguous rune %c in code %q", ch, code)
			}
		}
		if codes[code] {
			t.Fatalf("duplicate code %q", code)
		}
		codes[code] = true
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()
	if len(dir.live) != 50 {
		t.Fatalf("expected 50 liveness marks, got %d", len(dir.live))
	}
}

func TestDeleteIfEmptyRetiresIdleRooms(t *testing.T) {
	dir := &recordingDirectory{}
	m := app.NewRoomManager(newQueueDeps(), dir)

	room := m.Ensure("ABCD24")
	join(room, 1, "あおい")

	// occupied rooms stay put
	m.DeleteIfEmpty("ABCD24")
	if _, ok := m.Get("ABCD24"); !ok {
		t.Fatal("occupied room must not be retired")
	}

	room.Leave(1)
	m.DeleteIfEmpty("ABCD24")
	if _, ok := m.Get("ABCD24"); ok {
		t.Fatal("idle room should be retired")
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()
	if len(dir.forgot) != 1 || dir.forgot[0] != "ABCD24" {
		t.Fatalf("expected liveness marker to be dropped, got %v", dir.forgot)
	}

	// unknown codes are a no-op
	m.DeleteIfEmpty("ZZZZ99")
}

func TestGetAndEnsure(t *testing.T) {
	m := app.NewRoomManager(newQueueDeps(), nil)

	if _, ok := m.Get("NOPE42"); ok {
		t.Fatal("unknown code should miss")
	}

	room := m.Ensure("ABCD23")
	if room.Code() != "ABCD23" {
		t.Fatalf("ensure returned wrong room %q", room.Code())
	}
	if again := m.Ensure("ABCD23"); again != room {
		t.Fatal("ensure must return the same room instance")
	}
	if got, ok := m.Get("ABCD23"); !ok || got != room {
		t.Fatal("get should find the ensured room")
	}
}
