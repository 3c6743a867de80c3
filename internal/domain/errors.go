package domain

import "errors"

var (
	// ErrRoomCodesExhausted is returned when code allocation keeps colliding.
	ErrRoomCodesExhausted = errors.New("room code allocation failed")
	// ErrNotHost is returned for a manual start by anyone but the host.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrStampNotAllowed indicates a stamp key outside the user's inventory.
	ErrStampNotAllowed = errors.New("stamp not unlocked")
	// ErrStampNotFound indicates an unknown or malformed stamp key.
	ErrStampNotFound = errors.New("stamp not found")
	// ErrNoUserQuestions indicates the question source has nothing to offer.
	ErrNoUserQuestions = errors.New("no user questions available")
)
