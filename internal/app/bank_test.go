package app_test

import (
	"context"
	"strings"
	"testing"

	"nonoji-quiz-service/internal/app"
	"nonoji-quiz-service/internal/domain"
	"nonoji-quiz-service/internal/infra/memory"
)

func facilityRows() []domain.Facility {
	return []domain.Facility{
		{ID: "1", Name: "中央公園", City: "金沢市", Kind: "公園"},
		{ID: "2", Name: "市民体育館", City: "小松市", Kind: "体育施設"},
		{ID: "3", Name: "ふれあい会館", City: "七尾市", Kind: "公共施設"},
		{ID: "4", Name: "海浜公園", City: "加賀市", Kind: "公園"},
		{ID: "5", Name: "市立図書館", City: "白山市", Kind: "図書館"},
		{ID: "6", Name: "武道館", City: "輪島市", Kind: "体育施設"},
		{ID: "7", Name: "郷土資料館", City: "珠洲市", Kind: "博物館"},
		{ID: "8", Name: "のじま広場", City: "能美市", Kind: "公園"},
	}
}

func TestSampleFacilityQuestionShape(t *testing.T) {
	bank := app.NewQuestionBank(facilityRows(), nil, 0)

	for i := 0; i < 50; i++ {
		q := bank.Sample(context.Background())
		if len(q.Choices) != 4 {
			t.Fatalf("expected 4 choices, got %v", q.Choices)
		}
		if q.CorrectIdx < 0 || q.CorrectIdx > 3 {
			t.Fatalf("correct index out of range: %+v", q)
		}
		if !q.HasProvenance() {
			t.Fatalf("facility question without provenance: %+v", q)
		}
		seen := map[string]bool{}
		for _, c := range q.Choices {
			if seen[c] {
				t.Fatalf("duplicate choice in %v", q.Choices)
			}
			seen[c] = true
		}
		switch {
		case strings.HasPrefix(q.QID, "C"):
			if q.Choices[q.CorrectIdx] != q.City {
				t.Fatalf("city question marks wrong answer: %+v", q)
			}
		case strings.HasPrefix(q.QID, "K"):
			if q.Choices[q.CorrectIdx] != q.Kind {
				t.Fatalf("kind question marks wrong answer: %+v", q)
			}
		default:
			t.Fatalf("unexpected qid %q", q.QID)
		}
	}
}

func TestSampleFallsBackWhenDataThin(t *testing.T) {
	bank := app.NewQuestionBank(facilityRows()[:2], nil, 0)

	for i := 0; i < 10; i++ {
		q := bank.Sample(context.Background())
		if q.HasProvenance() {
			t.Fatalf("thin data should yield fallback questions, got %+v", q)
		}
		base, _, ok := strings.Cut(q.QID, "_")
		if !ok || !strings.HasPrefix(base, "F") {
			t.Fatalf("fallback id missing fresh suffix: %q", q.QID)
		}
	}
}

func TestSamplePrefersUserQuestions(t *testing.T) {
	src := memory.NewUserQuestionSource([]domain.UserQuestion{
		{
			ID:         7,
			Stem:       "のの市マスコットの名前は？",
			Choices:    [4]string{"のっティ", "ひゃくまんさん", "とり丸", "ゆず美"},
			CorrectIdx: 0,
			Hint:       "バスにも描かれています",
		},
	})
	bank := app.NewQuestionBank(facilityRows(), src, 1.0)

	q := bank.Sample(context.Background())
	if q.QID != "U7" {
		t.Fatalf("expected user question U7, got %+v", q)
	}
	if q.Hint == "" || q.HasProvenance() {
		t.Fatalf("user question carried wrong metadata: %+v", q)
	}
}

func TestSampleIgnoresEmptyUserSource(t *testing.T) {
	src := memory.NewUserQuestionSource(nil)
	bank := app.NewQuestionBank(facilityRows(), src, 1.0)

	q := bank.Sample(context.Background())
	if strings.HasPrefix(q.QID, "U") {
		t.Fatalf("empty user source must fall through, got %+v", q)
	}
}
