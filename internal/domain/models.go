package domain

// Facility is one normalized row of the public-facility CSV.
type Facility struct {
	ID   string
	Name string
	City string
	Kind string
}

// Question is an immutable multiple-choice question produced by the bank.
// Facility-sourced questions carry provenance for recognition statistics;
// user-submitted and fallback questions leave it empty.
type Question struct {
	QID        string   `json:"qid"`
	Stem       string   `json:"stem"`
	Choices    []string `json:"choices"`
	CorrectIdx int      `json:"correct_idx"`
	Hint       string   `json:"hint,omitempty"`

	FacilityID   string `json:"-"`
	FacilityName string `json:"-"`
	City         string `json:"-"`
	Kind         string `json:"-"`
}

// HasProvenance reports whether the question is tied to a real facility.
func (q Question) HasProvenance() bool {
	return q.FacilityID != ""
}

// UserQuestion is a player-authored question as stored by the quiz maker.
type UserQuestion struct {
	ID         int64
	Stem       string
	Choices    [4]string
	CorrectIdx int
	Hint       string
}

// RecognitionSample summarizes one round of exposure to a facility
// question. Counts cover human participants only.
type RecognitionSample struct {
	FacilityID   string
	FacilityName string
	City         string
	Kind         string
	Shown        int
	Answered     int
	Correct      int
}

// RankEntry is one row of the final ranking broadcast.
type RankEntry struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// Member is a roster row included in membership and scoreboard events.
type Member struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// Challenge tier names. A challenge room seats exactly one bot carrying
// the tier name.
const (
	ChallengeJack  = "jack"
	ChallengeQueen = "queen"
	ChallengeKing  = "king"
)
