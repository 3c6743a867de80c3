package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"nonoji-quiz-service/internal/domain"
)

// UserQuestionSource draws one random player-authored question.
// Implementations return domain.ErrNoUserQuestions when empty.
type UserQuestionSource interface {
	Random(ctx context.Context) (domain.UserQuestion, error)
}

// QuestionBank produces randomized four-choice questions, blending
// user-submitted questions, facility city-guess questions and facility
// kind-guess questions, with a static fallback when source data is
// too thin. Safe for concurrent use.
type QuestionBank struct {
	userQuestions UserQuestionSource // may be nil
	userProb      float64

	rows   []domain.Facility
	cities []string
	kinds  []string

	mu  sync.Mutex
	rnd *rand.Rand

	fallback []domain.Question
}

const (
	minFacilityRows   = 8
	minDistinctCities = 4
	minKindRows       = 4
	minKindAlternates = 3
)

func NewQuestionBank(rows []domain.Facility, userQuestions UserQuestionSource, userProb float64) *QuestionBank {
	citySet := map[string]struct{}{}
	kindSet := map[string]struct{}{}
	for _, r := range rows {
		if r.City != "" {
			citySet[r.City] = struct{}{}
		}
		if r.Kind != "" {
			kindSet[r.Kind] = struct{}{}
		}
	}
	b := &QuestionBank{
		userQuestions: userQuestions,
		userProb:      userProb,
		rows:          rows,
		cities:        sortedKeys(citySet),
		kinds:         sortedKeys(kindSet),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		fallback: []domain.Question{
			{QID: "F1", Stem: "金沢市にある有名な庭園はどれ？", Choices: []string{"兼六園", "後楽園", "偕楽園", "万博記念公園"}, CorrectIdx: 0},
			{QID: "F2", Stem: "石川県で最も人口が多い市は？", Choices: []string{"金沢市", "白山市", "小松市", "七尾市"}, CorrectIdx: 0},
			{QID: "F3", Stem: "能登半島の先端に近い町は？", Choices: []string{"珠洲市", "加賀市", "野々市市", "内灘町"}, CorrectIdx: 0},
		},
	}
	return b
}

// Sample returns one question. User-submitted questions are tried
// first with the configured probability; facility questions need
// enough rows and distinct cities; otherwise a fallback question is
// returned with a fresh id suffix so repeated draws never collide.
func (b *QuestionBank) Sample(ctx context.Context) domain.Question {
	if b.userQuestions != nil && b.chance(b.userProb) {
		if q, err := b.userQuestions.Random(ctx); err == nil {
			return domain.Question{
				QID:        fmt.Sprintf("U%d", q.ID),
				Stem:       q.Stem,
				Choices:    []string{q.Choices[0], q.Choices[1], q.Choices[2], q.Choices[3]},
				CorrectIdx: q.CorrectIdx,
				Hint:       q.Hint,
			}
		}
	}

	if len(b.rows) >= minFacilityRows && len(b.cities) >= minDistinctCities {
		if b.chance(0.5) {
			return b.cityQuestion()
		}
		if q, ok := b.kindQuestion(); ok {
			return q
		}
		return b.cityQuestion()
	}

	return b.fallbackQuestion()
}

func (b *QuestionBank) cityQuestion() domain.Question {
	b.mu.Lock()
	row := b.rows[b.rnd.Intn(len(b.rows))]
	others := make([]string, 0, len(b.cities))
	for _, c := range b.cities {
		if c != row.City {
			others = append(others, c)
		}
	}
	b.rnd.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	choices := append(others[:3:3], row.City)
	b.rnd.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	b.mu.Unlock()

	return domain.Question{
		QID:          "C" + hexToken(3),
		Stem:         fmt.Sprintf("「%s」がある市町はどれ？", row.Name),
		Choices:      choices,
		CorrectIdx:   indexOf(choices, row.City),
		FacilityID:   row.ID,
		FacilityName: row.Name,
		City:         row.City,
		Kind:         row.Kind,
	}
}

func (b *QuestionBank) kindQuestion() (domain.Question, bool) {
	b.mu.Lock()
	good := make([]domain.Facility, 0, len(b.rows))
	for _, r := range b.rows {
		if r.Kind != "" {
			good = append(good, r)
		}
	}
	if len(good) < minKindRows {
		b.mu.Unlock()
		return domain.Question{}, false
	}
	row := good[b.rnd.Intn(len(good))]

	seen := map[string]struct{}{}
	alternates := make([]string, 0, len(b.kinds))
	for _, r := range good {
		if r.Kind == row.Kind {
			continue
		}
		if _, dup := seen[r.Kind]; dup {
			continue
		}
		seen[r.Kind] = struct{}{}
		alternates = append(alternates, r.Kind)
	}
	if len(alternates) < minKindAlternates {
		b.mu.Unlock()
		return domain.Question{}, false
	}
	b.rnd.Shuffle(len(alternates), func(i, j int) { alternates[i], alternates[j] = alternates[j], alternates[i] })
	choices := append(alternates[:3:3], row.Kind)
	b.rnd.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	b.mu.Unlock()

	return domain.Question{
		QID:          "K" + hexToken(3),
		Stem:         fmt.Sprintf("「%s」の種別（分類）はどれ？", row.Name),
		Choices:      choices,
		CorrectIdx:   indexOf(choices, row.Kind),
		FacilityID:   row.ID,
		FacilityName: row.Name,
		City:         row.City,
		Kind:         row.Kind,
	}, true
}

func (b *QuestionBank) fallbackQuestion() domain.Question {
	b.mu.Lock()
	q := b.fallback[b.rnd.Intn(len(b.fallback))]
	b.mu.Unlock()

	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)
	return domain.Question{
		QID:        q.QID + "_" + hexToken(2),
		Stem:       q.Stem,
		Choices:    choices,
		CorrectIdx: q.CorrectIdx,
	}
}

func (b *QuestionBank) chance(p float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rnd.Float64() < p
}

func indexOf(xs []string, v string) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return 0
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	// deterministic order keeps distractor selection reproducible under
	// a seeded rand in tests
	sort.Strings(out)
	return out
}
