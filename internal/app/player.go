package app

// Sender delivers one outbound event to a connected client. A failed
// send marks the player as disconnected; the room drops them from the
// roster on the next broadcast sweep.
type Sender interface {
	Send(v any) error
}

// PlayerConn is one seat in a room: a real account (positive user id)
// holding a live transport handle, or a synthetic bot (negative id,
// nil sender). A PlayerConn is owned exclusively by its room.
type PlayerConn struct {
	UserID int64
	Name   string
	Sender Sender
	IsBot  bool
}
