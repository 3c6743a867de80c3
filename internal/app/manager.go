package app

import (
	"sync"

	"nonoji-quiz-service/internal/domain"
)

const (
	roomCodeLength   = 6
	roomCodeAttempts = 8
)

// Directory mirrors room liveness into an external store (Redis in
// production). Both hooks are best-effort.
type Directory interface {
	MarkLive(code string)
	Forget(code string)
}

// RoomManager is the process-wide registry mapping codes to rooms.
type RoomManager struct {
	deps RoomDeps
	dir  Directory // may be nil

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRoomManager(deps RoomDeps, dir Directory) *RoomManager {
	return &RoomManager{
		deps:  deps,
		dir:   dir,
		rooms: make(map[string]*Room),
	}
}

// CreateRoom allocates a fresh room under a new code, retrying a
// bounded number of times on collision.
func (m *RoomManager) CreateRoom(opts RoomOptions) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < roomCodeAttempts; i++ {
		code := randomCode(roomCodeLength)
		if _, taken := m.rooms[code]; taken {
			continue
		}
		room := NewRoom(code, opts, m.deps)
		m.rooms[code] = room
		if m.dir != nil {
			m.dir.MarkLive(code)
		}
		return room, nil
	}
	return nil, domain.ErrRoomCodesExhausted
}

// Get looks a room up without creating it.
func (m *RoomManager) Get(code string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	return room, ok
}

// Ensure returns the room for code, creating a friend room when a
// client reconnects with a code that is no longer registered.
func (m *RoomManager) Ensure(code string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[code]; ok {
		return room
	}
	room := NewRoom(code, RoomOptions{}, m.deps)
	m.rooms[code] = room
	if m.dir != nil {
		m.dir.MarkLive(code)
	}
	return room
}

// DeleteIfEmpty retires a room once the last human has left and no
// game is in flight, dropping its liveness marker with it. Called on
// every disconnect; occupied rooms are left alone.
func (m *RoomManager) DeleteIfEmpty(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok || !room.Idle() {
		return
	}
	delete(m.rooms, code)
	if m.dir != nil {
		m.dir.Forget(code)
	}
}
