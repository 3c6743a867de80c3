package app_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"nonoji-quiz-service/internal/app"
	"nonoji-quiz-service/internal/domain"
)

// seqBank hands out questions with predictable ids.
type seqBank struct {
	mu   sync.Mutex
	n    int
	prov bool
}

func (b *seqBank) Sample(context.Context) domain.Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n++
	q := domain.Question{
		QID:        "q" + strconv.Itoa(b.n),
		Stem:       "「中央公園」がある市町はどれ？",
		Choices:    []string{"金沢市", "小松市", "加賀市", "白山市"},
		CorrectIdx: 0,
	}
	if b.prov {
		q.FacilityID = "fac-1"
		q.FacilityName = "中央公園"
		q.City = "金沢市"
		q.Kind = "公園"
	}
	return q
}

type recordingStats struct {
	mu      sync.Mutex
	samples []domain.RecognitionSample
}

func (r *recordingStats) RecordRound(_ context.Context, s domain.RecognitionSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
	return nil
}

func (r *recordingStats) all() []domain.RecognitionSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RecognitionSample, len(r.samples))
	copy(out, r.samples)
	return out
}

type chanSender struct {
	ch chan any
}

func newChanSender() *chanSender {
	return &chanSender{ch: make(chan any, 256)}
}

func (s *chanSender) Send(v any) error {
	select {
	case s.ch <- v:
	default:
	}
	return nil
}

// waitFor drains the sender until match returns true or the deadline
// passes.
func waitFor(t *testing.T, s *chanSender, d time.Duration, match func(any) bool) any {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case ev := <-s.ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("event never arrived")
			return nil
		}
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// frozenSettings keeps every real timer far in the future so tests
// drive the room purely through the fake clock and direct calls.
func frozenSettings() app.Settings {
	s := app.DefaultSettings()
	s.QuestionTimeLimit = time.Hour
	s.PrestartCountdown = time.Hour
	s.CPUMinDelay = time.Hour
	s.CPUMaxDelay = 2 * time.Hour
	return s
}

func join(r *app.Room, id int64, name string) *chanSender {
	s := newChanSender()
	r.Join(&app.PlayerConn{UserID: id, Name: name, Sender: s})
	return s
}

func TestJoinAssignsHostInOrder(t *testing.T) {
	room := app.NewRoom("AAAA22", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: frozenSettings(),
	})

	s1 := join(room, 1, "あおい")
	join(room, 2, "ひなた")

	if room.HostID() != 1 {
		t.Fatalf("expected first human to host, got %d", room.HostID())
	}

	ev := waitFor(t, s1, time.Second, func(v any) bool {
		sys, ok := v.(app.SystemEvent)
		return ok && sys.Event == "join" && sys.UserID == 2
	}).(app.SystemEvent)
	if len(ev.Members) != 2 {
		t.Fatalf("expected 2 members, got %+v", ev.Members)
	}
}

func TestLeaveReassignsHost(t *testing.T) {
	room := app.NewRoom("AAAA23", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: frozenSettings(),
	})
	join(room, 1, "あおい")
	s2 := join(room, 2, "ひなた")

	room.Leave(1)
	if room.HostID() != 2 {
		t.Fatalf("expected host handoff to 2, got %d", room.HostID())
	}
	waitFor(t, s2, time.Second, func(v any) bool {
		sys, ok := v.(app.SystemEvent)
		return ok && sys.Event == "leave" && sys.HostID == 2
	})
}

func TestOnlyHostStartsFriendRoom(t *testing.T) {
	room := app.NewRoom("AAAA24", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: frozenSettings(),
	})
	join(room, 1, "あおい")
	join(room, 2, "ひなた")

	if room.CanStart(2) {
		t.Fatal("non-host must not start the room")
	}
	if !room.CanStart(1) {
		t.Fatal("host should be able to start")
	}
}

func TestScoringFirstCorrectBonus(t *testing.T) {
	clock := newFakeClock()
	cfg := frozenSettings()
	cfg.NeededPlayers = 3 // exactly the humans present, no bots
	cfg.RoundMax = 2
	room := app.NewRoom("AAAA25", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
		Now:      clock.Now,
	})
	s1 := join(room, 1, "A")
	join(room, 2, "B")
	join(room, 3, "C")

	room.StartGame()
	q := waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.QuestionEvent)
		return ok
	}).(app.QuestionEvent)

	clock.Advance(time.Second) // past the answer-open delay

	// seqBank always marks choice 0 correct
	if !room.ReceiveAnswer(1, q.QID, 0) {
		t.Fatal("first answer rejected")
	}
	if !room.ReceiveAnswer(2, q.QID, 0) {
		t.Fatal("second answer rejected")
	}
	if !room.ReceiveAnswer(3, q.QID, 1) {
		t.Fatal("third answer rejected")
	}

	ev := waitFor(t, s1, time.Second, func(v any) bool {
		ar, ok := v.(app.AnswerResultEvent)
		return ok && ar.UserID == 3
	}).(app.AnswerResultEvent)

	byID := map[int64]int{}
	for _, m := range ev.Scores {
		byID[m.UserID] = m.Score
	}
	if byID[1] != 2 || byID[2] != 1 || byID[3] != 0 {
		t.Fatalf("unexpected scores: %v", byID)
	}
}

func TestAnswerWindowBoundaries(t *testing.T) {
	clock := newFakeClock()
	cfg := frozenSettings()
	cfg.NeededPlayers = 2
	room := app.NewRoom("AAAA26", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
		Now:      clock.Now,
	})
	s1 := join(room, 1, "A")
	join(room, 2, "B")

	room.StartGame()
	q := waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.QuestionEvent)
		return ok
	}).(app.QuestionEvent)

	// before the answer window opens
	if room.ReceiveAnswer(1, q.QID, 0) {
		t.Fatal("answer before the open delay must be dropped")
	}

	clock.Advance(cfg.AnswerOpenDelay)
	if !room.ReceiveAnswer(1, q.QID, 0) {
		t.Fatal("answer at the open boundary should be accepted")
	}

	// stale question id
	if room.ReceiveAnswer(2, "nope", 0) {
		t.Fatal("answer for an unknown question must be dropped")
	}

	// after the deadline
	clock.Advance(cfg.QuestionTimeLimit + time.Minute)
	if room.ReceiveAnswer(2, q.QID, 0) {
		t.Fatal("answer after the deadline must be dropped")
	}
}

func TestDuplicateAnswerIgnored(t *testing.T) {
	clock := newFakeClock()
	cfg := frozenSettings()
	cfg.NeededPlayers = 2
	room := app.NewRoom("AAAA27", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
		Now:      clock.Now,
	})
	s1 := join(room, 1, "A")
	join(room, 2, "B")

	room.StartGame()
	q := waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.QuestionEvent)
		return ok
	}).(app.QuestionEvent)
	clock.Advance(time.Second)

	if !room.ReceiveAnswer(1, q.QID, 1) {
		t.Fatal("first answer rejected")
	}
	if room.ReceiveAnswer(1, q.QID, 0) {
		t.Fatal("second answer from the same user must be dropped")
	}
}

func TestAllHumansAnsweredRevealsOnceAndFinishes(t *testing.T) {
	clock := newFakeClock()
	cfg := frozenSettings()
	cfg.NeededPlayers = 1
	cfg.RoundMax = 1
	cfg.RevealHold = 10 * time.Millisecond
	cfg.MinRoundDisplay = 0
	stats := &recordingStats{}
	room := app.NewRoom("AAAA28", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{prov: true},
		Stats:    stats,
		Settings: cfg,
		Now:      clock.Now,
	})
	s1 := join(room, 1, "A")

	room.StartGame()
	q := waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.QuestionEvent)
		return ok
	}).(app.QuestionEvent)
	clock.Advance(time.Second)

	room.ReceiveAnswer(1, q.QID, 0)

	waitFor(t, s1, time.Second, func(v any) bool {
		rv, ok := v.(app.RevealEvent)
		return ok && rv.QID == q.QID
	})
	fin := waitFor(t, s1, time.Second, func(v any) bool {
		g, ok := v.(app.GameFinishedEvent)
		return ok && g.Event == "finished"
	}).(app.GameFinishedEvent)

	if len(fin.Ranking) != 1 || fin.Ranking[0].UserID != 1 || fin.Ranking[0].Score != 2 {
		t.Fatalf("unexpected ranking: %+v", fin.Ranking)
	}

	// no second reveal for the same question
	select {
	case ev := <-s1.ch:
		if rv, ok := ev.(app.RevealEvent); ok && rv.QID == q.QID {
			t.Fatalf("round revealed twice: %+v", rv)
		}
	case <-time.After(100 * time.Millisecond):
	}

	samples := stats.all()
	if len(samples) != 1 {
		t.Fatalf("expected one recognition sample, got %d", len(samples))
	}
	s := samples[0]
	if s.FacilityID != "fac-1" || s.Shown != 1 || s.Answered != 1 || s.Correct != 1 {
		t.Fatalf("unexpected sample: %+v", s)
	}
}

func TestBotBackfillOnStart(t *testing.T) {
	cfg := frozenSettings()
	cfg.NeededPlayers = 4
	room := app.NewRoom("AAAA29", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
	})
	s1 := join(room, 1, "A")
	join(room, 2, "B")

	room.StartGame()
	started := waitFor(t, s1, time.Second, func(v any) bool {
		g, ok := v.(app.GameStartedEvent)
		return ok && g.Event == "started"
	}).(app.GameStartedEvent)

	if len(started.Members) != 4 {
		t.Fatalf("expected roster of 4, got %+v", started.Members)
	}
	seen := map[int64]bool{}
	bots := 0
	for _, m := range started.Members {
		if seen[m.UserID] {
			t.Fatalf("duplicate user id in roster: %+v", started.Members)
		}
		seen[m.UserID] = true
		if m.UserID < 0 {
			bots++
			if !strings.HasPrefix(m.Name, "CPU") {
				t.Fatalf("bot without CPU name: %+v", m)
			}
		}
	}
	if bots != 2 {
		t.Fatalf("expected 2 bots, got %d", bots)
	}
}

func TestChallengeRoomSeatsSingleTierBot(t *testing.T) {
	cfg := frozenSettings()
	room := app.NewRoom("AAAA30", app.RoomOptions{IsChallenge: true, ChallengeLevel: domain.ChallengeKing}, app.RoomDeps{
		Bank:       &seqBank{},
		Settings:   cfg,
		Challenges: app.DefaultChallengeTiers(),
	})
	s1 := join(room, 1, "A")

	room.StartGame()
	started := waitFor(t, s1, time.Second, func(v any) bool {
		g, ok := v.(app.GameStartedEvent)
		return ok && g.Event == "started"
	}).(app.GameStartedEvent)

	if len(started.Members) != 2 {
		t.Fatalf("expected human plus one bot, got %+v", started.Members)
	}
	if started.RoundMax != 7 {
		t.Fatalf("king tier should play 7 rounds, got %d", started.RoundMax)
	}
	var botName string
	for _, m := range started.Members {
		if m.UserID < 0 {
			botName = m.Name
		}
	}
	if botName != "King" {
		t.Fatalf("expected King bot, got %q", botName)
	}
}

// The deadline timer and the last human's answer can complete the same
// round from two goroutines at once. Whichever side wins the claim, the
// round must reveal exactly once and advance exactly once.
func TestDeadlineRacingLastAnswerRevealsOnce(t *testing.T) {
	cfg := frozenSettings()
	cfg.NeededPlayers = 1
	cfg.RoundMax = 1
	cfg.AnswerOpenDelay = 0
	cfg.QuestionTimeLimit = 50 * time.Millisecond
	cfg.RevealHold = 5 * time.Millisecond
	cfg.MinRoundDisplay = 0
	room := app.NewRoom("AAAA35", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
	})
	s1 := join(room, 1, "A")

	room.StartGame()
	q := waitFor(t, s1, 3*time.Second, func(v any) bool {
		_, ok := v.(app.QuestionEvent)
		return ok
	}).(app.QuestionEvent)

	// land the answer right at the deadline boundary
	time.Sleep(45 * time.Millisecond)
	go room.ReceiveAnswer(1, q.QID, 0)

	reveals, finishes := 0, 0
	timeout := time.After(500 * time.Millisecond)
collect:
	for {
		select {
		case ev := <-s1.ch:
			switch e := ev.(type) {
			case app.RevealEvent:
				if e.QID == q.QID {
					reveals++
				}
			case app.GameFinishedEvent:
				finishes++
			}
		case <-timeout:
			break collect
		}
	}

	if reveals != 1 {
		t.Fatalf("expected exactly one reveal, got %d", reveals)
	}
	if finishes != 1 {
		t.Fatalf("expected exactly one game end, got %d", finishes)
	}
}

func TestFinishRankingTieBreaksOnUserID(t *testing.T) {
	cfg := frozenSettings()
	cfg.NeededPlayers = 2
	cfg.RoundMax = 1
	cfg.QuestionTimeLimit = 80 * time.Millisecond
	cfg.AnswerOpenDelay = time.Hour // nobody can answer
	cfg.RevealHold = 10 * time.Millisecond
	room := app.NewRoom("AAAA31", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
	})
	s2 := join(room, 2, "B")
	join(room, 1, "A")

	room.StartGame()
	fin := waitFor(t, s2, 3*time.Second, func(v any) bool {
		g, ok := v.(app.GameFinishedEvent)
		return ok && g.Event == "finished"
	}).(app.GameFinishedEvent)

	if len(fin.Ranking) != 2 {
		t.Fatalf("expected 2 entries, got %+v", fin.Ranking)
	}
	if fin.Ranking[0].UserID != 1 || fin.Ranking[1].UserID != 2 {
		t.Fatalf("tie should order by user id, got %+v", fin.Ranking)
	}
}

func TestStampCooldownAndRoundCap(t *testing.T) {
	clock := newFakeClock()
	cfg := frozenSettings()
	cfg.StampCooldown = 4 * time.Second
	cfg.StampMaxPerRound = 2
	room := app.NewRoom("AAAA32", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
		Now:      clock.Now,
	})
	join(room, 1, "A")

	if !room.RegisterStamp(1) {
		t.Fatal("first stamp should pass")
	}
	if room.RegisterStamp(1) {
		t.Fatal("stamp inside the cooldown must be dropped")
	}
	clock.Advance(5 * time.Second)
	if !room.RegisterStamp(1) {
		t.Fatal("stamp after cooldown should pass")
	}
	clock.Advance(5 * time.Second)
	if room.RegisterStamp(1) {
		t.Fatal("stamp over the round cap must be dropped")
	}
}

func TestAutoPrestartCancelsWhenPlayersDropOut(t *testing.T) {
	cfg := frozenSettings()
	cfg.ReadyHumans = 2
	room := app.NewRoom("AAAA33", app.RoomOptions{}, app.RoomDeps{
		Bank:     &seqBank{},
		Settings: cfg,
	})
	s1 := join(room, 1, "A")
	join(room, 2, "B")

	waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.PrestartEvent)
		return ok
	})

	room.Leave(2)
	waitFor(t, s1, time.Second, func(v any) bool {
		_, ok := v.(app.PrestartCancelEvent)
		return ok
	})
}
