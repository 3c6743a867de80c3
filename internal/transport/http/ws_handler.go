package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nonoji-quiz-service/internal/app"
	"nonoji-quiz-service/internal/domain"
)

const (
	helloTimeout = 10 * time.Second
	chatMaxRunes = 200
)

// WSHandler upgrades quiz room connections and dispatches client
// messages into the room state machine.
type WSHandler struct {
	rooms    *app.RoomManager
	queue    *app.MatchQueue
	stamps   app.StampInventory
	registry *app.StampRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *app.RoomManager, queue *app.MatchQueue, stamps app.StampInventory, registry *app.StampRegistry) *WSHandler {
	return &WSHandler{
		rooms:    rooms,
		queue:    queue,
		stamps:   stamps,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// helloMessage must be the first frame on every connection.
type helloMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type inboundMessage struct {
	Type      string `json:"type"`
	QID       string `json:"qid"`
	ChoiceIdx int    `json:"choice_idx"`
	Msg       string `json:"msg"`
	Key       string `json:"key"`
	Seconds   int    `json:"seconds"`
}

// wsSender serializes writes to one websocket connection. Gorilla
// connections do not tolerate concurrent writers.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// ServeWS handles one player connection for its full lifetime. The
// client must identify itself with a hello frame before anything else;
// a bad handshake closes the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	sender := &wsSender{conn: conn}

	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var hello helloMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" || hello.UserID <= 0 || strings.TrimSpace(hello.Name) == "" {
		_ = sender.Send(app.ErrorEvent{Type: "error", Msg: "接続情報が不正です。"})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	// entering a room consumes any pending match result so the player
	// can queue again once this game is over
	if h.queue != nil {
		h.queue.ClearFor(hello.UserID)
	}

	room := h.rooms.Ensure(code)
	player := &app.PlayerConn{
		UserID: hello.UserID,
		Name:   strings.TrimSpace(hello.Name),
		Sender: sender,
	}
	room.Join(player)
	defer h.rooms.DeleteIfEmpty(code)
	defer room.Leave(player.UserID)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		h.dispatch(r.Context(), room, player, sender, msg)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, room *app.Room, player *app.PlayerConn, sender *wsSender, msg inboundMessage) {
	switch msg.Type {
	case "start":
		if err := room.StartByHost(player.UserID, msg.Seconds); err != nil {
			_ = sender.Send(app.ErrorEvent{Type: "error", Msg: "開始できるのはホストのみです。"})
		}

	case "answer":
		room.ReceiveAnswer(player.UserID, msg.QID, msg.ChoiceIdx)

	case "chat":
		text := strings.TrimSpace(msg.Msg)
		if text == "" {
			return
		}
		if runes := []rune(text); len(runes) > chatMaxRunes {
			text = string(runes[:chatMaxRunes])
		}
		room.Broadcast(app.ChatEvent{Type: "chat", UserID: player.UserID, Name: player.Name, Msg: text})

	case "buzz":
		room.Broadcast(app.BuzzEvent{Type: "buzz", UserID: player.UserID, Name: player.Name})

	case "stamp":
		h.handleStamp(ctx, room, player, sender, msg.Key)
	}
}

// handleStamp validates ownership first, then shape, then presence on
// disk. Cooldown and per-round cap violations are dropped without a
// reply so spamming yields no feedback loop.
func (h *WSHandler) handleStamp(ctx context.Context, room *app.Room, player *app.PlayerConn, sender *wsSender, key string) {
	base, err := h.resolveStamp(ctx, player.UserID, key)
	if err != nil {
		msg := "スタンプを送信できませんでした。"
		if errors.Is(err, domain.ErrStampNotAllowed) {
			msg = "そのスタンプは持っていません。"
		}
		_ = sender.Send(app.ErrorEvent{Type: "error", Msg: msg})
		return
	}
	if !room.RegisterStamp(player.UserID) {
		return
	}
	room.Broadcast(app.StampEvent{Type: "stamp", UserID: player.UserID, Name: player.Name, Key: base})
}

func (h *WSHandler) resolveStamp(ctx context.Context, userID int64, key string) (string, error) {
	base, extOK := h.registry.Normalize(key)
	if base == "" {
		return "", domain.ErrStampNotFound
	}
	allowed, err := h.stamps.AllowedKeys(ctx, userID)
	if err != nil {
		log.Printf("ws: load stamp inventory for %d: %v", userID, err)
		return "", err
	}
	if _, ok := allowed[base]; !ok {
		return "", domain.ErrStampNotAllowed
	}
	if !extOK || !h.registry.Exists(base) {
		return "", domain.ErrStampNotFound
	}
	return base, nil
}
