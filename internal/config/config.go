package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Facility struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"facility"`
	Quiz      QuizConfig                 `yaml:"quiz"`
	Challenge map[string]ChallengeConfig `yaml:"challenge"`
}

// QuizConfig collects the room tunables. Durations are carried as
// strings so a missing field falls back cleanly.
type QuizConfig struct {
	RoundMax           int     `yaml:"round_max"`
	NeededPlayers      int     `yaml:"needed_players"`
	ReadyHumans        int     `yaml:"ready_humans"`
	PrestartCountdown  string  `yaml:"prestart_countdown"`
	QuestionTimeLimit  string  `yaml:"question_time_limit"`
	AnswerOpenDelay    string  `yaml:"answer_open_delay"`
	RevealHold         string  `yaml:"reveal_hold"`
	MinRoundDisplay    string  `yaml:"min_round_display"`
	FirstCorrectPoints int     `yaml:"first_correct_points"`
	LaterCorrectPoints int     `yaml:"later_correct_points"`
	CPUCorrectProb     float64 `yaml:"cpu_correct_prob"`
	CPUMinDelay        string  `yaml:"cpu_min_delay"`
	CPUMaxDelay        string  `yaml:"cpu_max_delay"`
	UserQuestionProb   float64 `yaml:"user_question_prob"`
	MatchGrace         string  `yaml:"match_grace"`
	StampCooldown      string  `yaml:"stamp_cooldown"`
	StampMaxPerRound   int     `yaml:"stamp_max_per_round"`
	StampDir           string  `yaml:"stamp_dir"`
}

// ChallengeConfig tunes the single bot of one challenge tier.
type ChallengeConfig struct {
	CorrectProb float64 `yaml:"correct_prob"`
	MinDelay    string  `yaml:"min_delay"`
	MaxDelay    string  `yaml:"max_delay"`
	Rounds      int     `yaml:"rounds"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty
// or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v unless it is zero.
func IntOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

// FloatOr returns v unless it is zero.
func FloatOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
