package app

import (
	"time"

	"nonoji-quiz-service/internal/domain"
)

// Settings collects the room tunables. Zero values are never used
// directly; construct via DefaultSettings and override fields.
type Settings struct {
	RoundMax           int
	NeededPlayers      int
	ReadyHumans        int
	PrestartCountdown  time.Duration
	QuestionTimeLimit  time.Duration
	AnswerOpenDelay    time.Duration
	RevealHold         time.Duration
	MinRoundDisplay    time.Duration
	FirstCorrectPoints int
	LaterCorrectPoints int
	CPUCorrectProb     float64
	CPUMinDelay        time.Duration
	CPUMaxDelay        time.Duration
	StampCooldown      time.Duration
	StampMaxPerRound   int
}

// ChallengeTier tunes the single opponent of a challenge room.
type ChallengeTier struct {
	Name        string
	CorrectProb float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Rounds      int
}

// DefaultSettings mirrors the production tuning.
func DefaultSettings() Settings {
	return Settings{
		RoundMax:           5,
		NeededPlayers:      4,
		ReadyHumans:        4,
		PrestartCountdown:  5 * time.Second,
		QuestionTimeLimit:  12 * time.Second,
		AnswerOpenDelay:    800 * time.Millisecond,
		RevealHold:         2 * time.Second,
		MinRoundDisplay:    4 * time.Second,
		FirstCorrectPoints: 2,
		LaterCorrectPoints: 1,
		CPUCorrectProb:     0.40,
		CPUMinDelay:        4 * time.Second,
		CPUMaxDelay:        8 * time.Second,
		StampCooldown:      4 * time.Second,
		StampMaxPerRound:   10,
	}
}

// DefaultChallengeTiers returns the built-in difficulty ladder. The
// bot's display name is the tier name.
func DefaultChallengeTiers() map[string]ChallengeTier {
	return map[string]ChallengeTier{
		domain.ChallengeJack: {
			Name:        "Jack",
			CorrectProb: 0.30,
			MinDelay:    5 * time.Second,
			MaxDelay:    9 * time.Second,
			Rounds:      5,
		},
		domain.ChallengeQueen: {
			Name:        "Queen",
			CorrectProb: 0.55,
			MinDelay:    3 * time.Second,
			MaxDelay:    7 * time.Second,
			Rounds:      5,
		},
		domain.ChallengeKing: {
			Name:        "King",
			CorrectProb: 0.80,
			MinDelay:    2 * time.Second,
			MaxDelay:    5 * time.Second,
			Rounds:      7,
		},
	}
}
