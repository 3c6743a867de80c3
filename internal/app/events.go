package app

import "nonoji-quiz-service/internal/domain"

// Outbound event payloads. The transport layer serializes these as-is;
// the "type" field is what clients dispatch on.

type SystemEvent struct {
	Type     string          `json:"type"` // "system"
	Event    string          `json:"event"`
	UserID   int64           `json:"user_id"`
	Name     string          `json:"name"`
	Members  []domain.Member `json:"members"`
	HostID   int64           `json:"host_id"`
	IsRandom bool            `json:"is_random"`
}

type GameStartedEvent struct {
	Type     string          `json:"type"`  // "game"
	Event    string          `json:"event"` // "started"
	RoundMax int             `json:"round_max"`
	Members  []domain.Member `json:"members"`
}

type GameFinishedEvent struct {
	Type    string             `json:"type"`  // "game"
	Event   string             `json:"event"` // "finished"
	Ranking []domain.RankEntry `json:"ranking"`
}

type PrestartEvent struct {
	Type    string `json:"type"` // "prestart"
	Seconds int    `json:"seconds"`
}

type PrestartCancelEvent struct {
	Type string `json:"type"` // "prestart_cancel"
}

type RoundBannerEvent struct {
	Type    string `json:"type"` // "round_banner"
	RoundNo int    `json:"round_no"`
}

type QuestionEvent struct {
	Type     string   `json:"type"` // "q"
	RoundNo  int      `json:"round_no"`
	RoundMax int      `json:"round_max"`
	QID      string   `json:"qid"`
	Stem     string   `json:"stem"`
	Choices  []string `json:"choices"`
	Hint     string   `json:"hint"`
}

type AnswerResultEvent struct {
	Type      string          `json:"type"` // "answer_result"
	UserID    int64           `json:"user_id"`
	Name      string          `json:"name"`
	QID       string          `json:"qid"`
	ChoiceIdx int             `json:"choice_idx"`
	Correct   bool            `json:"correct"`
	Scores    []domain.Member `json:"scores"`
	Answered  int             `json:"answered"`
	Total     int             `json:"total"`
}

type RevealEvent struct {
	Type       string `json:"type"` // "reveal"
	QID        string `json:"qid"`
	CorrectIdx int    `json:"correct_idx"`
}

type ChatEvent struct {
	Type   string `json:"type"` // "chat"
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Msg    string `json:"msg"`
}

type BuzzEvent struct {
	Type   string `json:"type"` // "buzz"
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type StampEvent struct {
	Type   string `json:"type"` // "stamp"
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Key    string `json:"key"`
}

type ErrorEvent struct {
	Type string `json:"type"` // "error"
	Msg  string `json:"msg"`
}
