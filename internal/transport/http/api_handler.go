package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"nonoji-quiz-service/internal/app"
	"nonoji-quiz-service/internal/domain"
)

// APIHandler serves the REST side of the quiz service: matchmaking,
// room creation and lookup, and the stamp catalog.
type APIHandler struct {
	rooms    *app.RoomManager
	queue    *app.MatchQueue
	stamps   app.StampInventory
	registry *app.StampRegistry
}

func NewAPIHandler(rooms *app.RoomManager, queue *app.MatchQueue, stamps app.StampInventory, registry *app.StampRegistry) *APIHandler {
	return &APIHandler{rooms: rooms, queue: queue, stamps: stamps, registry: registry}
}

// Register wires the API routes onto mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matchmaking/join", h.joinMatchmaking)
	mux.HandleFunc("POST /api/matchmaking/cancel", h.cancelMatchmaking)
	mux.HandleFunc("GET /api/matchmaking/poll", h.pollMatchmaking)
	mux.HandleFunc("POST /api/rooms", h.createRoom)
	mux.HandleFunc("GET /api/rooms/{code}", h.getRoom)
	mux.HandleFunc("POST /api/challenge", h.createChallenge)
	mux.HandleFunc("GET /api/quiz/stamps", h.listStamps)
}

type matchRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

func (h *APIHandler) joinMatchmaking(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "ユーザー情報が不正です。")
		return
	}
	// a stale match result from a finished game would make Join a no-op
	h.queue.ClearFor(req.UserID)
	h.queue.Join(req.UserID, strings.TrimSpace(req.Name))
	writeJSON(w, http.StatusOK, map[string]any{"status": "waiting"})
}

func (h *APIHandler) cancelMatchmaking(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "ユーザー情報が不正です。")
		return
	}
	h.queue.Cancel(req.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
}

func (h *APIHandler) pollMatchmaking(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "ユーザー情報が不正です。")
		return
	}
	code, ok := h.queue.Poll(userID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"matched": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matched": true, "room_code": code})
}

func (h *APIHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.CreateRoom(app.RoomOptions{})
	if err != nil {
		if errors.Is(err, domain.ErrRoomCodesExhausted) {
			writeError(w, http.StatusServiceUnavailable, "ルームを作成できませんでした。")
			return
		}
		log.Printf("api: create room: %v", err)
		writeError(w, http.StatusInternalServerError, "ルームを作成できませんでした。")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"code": room.Code()})
}

func (h *APIHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	room, ok := h.rooms.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "ルームが見つかりません。")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":      room.Code(),
		"running":   room.Running(),
		"host_id":   room.HostID(),
		"is_random": room.IsRandom(),
	})
}

type challengeRequest struct {
	UserID int64  `json:"user_id"`
	Level  string `json:"level"`
}

func (h *APIHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "ユーザー情報が不正です。")
		return
	}
	level := req.Level
	switch level {
	case domain.ChallengeJack, domain.ChallengeQueen, domain.ChallengeKing:
	default:
		level = domain.ChallengeJack
	}
	room, err := h.rooms.CreateRoom(app.RoomOptions{IsChallenge: true, ChallengeLevel: level})
	if err != nil {
		log.Printf("api: create challenge room: %v", err)
		writeError(w, http.StatusServiceUnavailable, "ルームを作成できませんでした。")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"code": room.Code(), "level": level})
}

func (h *APIHandler) listStamps(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	allowed, err := h.stamps.AllowedKeys(r.Context(), userID)
	if err != nil {
		log.Printf("api: load stamp inventory for %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "スタンプ一覧を取得できませんでした。")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stamps": h.registry.List(allowed)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
