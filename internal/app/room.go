package app

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"nonoji-quiz-service/internal/domain"
)

// QuestionSource produces one question per round.
type QuestionSource interface {
	Sample(ctx context.Context) domain.Question
}

// StatsRecorder persists one recognition sample per facility round.
// The room guarantees at most one call per round.
type StatsRecorder interface {
	RecordRound(ctx context.Context, sample domain.RecognitionSample) error
}

// ProfileStore tracks lifetime quiz activity for human players.
type ProfileStore interface {
	IncrementPlays(ctx context.Context, userIDs []int64) error
	MarkChallengeCleared(ctx context.Context, userID int64, tier string) error
}

// RoomOptions selects the room mode at creation time.
type RoomOptions struct {
	IsRandom       bool
	IsChallenge    bool
	ChallengeLevel string
}

// RoomDeps are the collaborators injected into every room.
type RoomDeps struct {
	Bank       QuestionSource
	Stats      StatsRecorder
	Profiles   ProfileStore
	Settings   Settings
	Challenges map[string]ChallengeTier
	Now        func() time.Time
}

var botNamePool = []string{
	"CPUマーモット", "CPUタヌキ", "CPUキツネ", "CPUネコ",
	"CPUイヌ", "CPUカッパ", "CPUトリ", "CPUウサギ",
}

// Room is one isolated quiz session: roster, score table, round state
// and the timers that drive it. A single mutex guards all state;
// broadcasts happen strictly after release. Round completion can be
// claimed by either the deadline timer or the all-humans-answered
// path; the roundEndScheduled flag arbitrates so exactly one reveal
// and one advance happen per round.
type Room struct {
	code           string
	isRandom       bool
	isChallenge    bool
	challengeLevel string

	bank     QuestionSource
	stats    StatsRecorder
	profiles ProfileStore
	cfg      Settings
	tier     ChallengeTier

	now func() time.Time

	mu        sync.Mutex
	rnd       *rand.Rand
	players   map[int64]*PlayerConn
	joinOrder []int64
	scores    map[int64]int

	roundMax     int
	roundNo      int
	currentQ     *domain.Question
	answered     map[int64]struct{}
	correctUsers map[int64]struct{}
	firstCorrect int64 // 0 = not yet taken
	roundHumans  []int64

	running     bool
	prestarting bool
	finished    bool
	hostID      int64

	roundStartAt time.Time
	answerOpenAt time.Time
	deadlineAt   time.Time

	statsRecorded     bool
	roundEndScheduled bool

	prestartTimer *time.Timer
	deadlineTimer *time.Timer

	lastStampAt map[int64]time.Time
	stampCount  map[int64]int
}

func NewRoom(code string, opts RoomOptions, deps RoomDeps) *Room {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	r := &Room{
		code:           code,
		isRandom:       opts.IsRandom,
		isChallenge:    opts.IsChallenge,
		challengeLevel: opts.ChallengeLevel,
		bank:           deps.Bank,
		stats:          deps.Stats,
		profiles:       deps.Profiles,
		cfg:            deps.Settings,
		now:            now,
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
		players:        make(map[int64]*PlayerConn),
		scores:         make(map[int64]int),
		answered:       make(map[int64]struct{}),
		correctUsers:   make(map[int64]struct{}),
		lastStampAt:    make(map[int64]time.Time),
		stampCount:     make(map[int64]int),
		roundMax:       deps.Settings.RoundMax,
	}
	if opts.IsChallenge {
		tier, ok := deps.Challenges[opts.ChallengeLevel]
		if !ok {
			tier = DefaultChallengeTiers()[domain.ChallengeJack]
			r.challengeLevel = domain.ChallengeJack
		}
		r.tier = tier
		if tier.Rounds > 0 {
			r.roundMax = tier.Rounds
		}
	}
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) IsRandom() bool { return r.isRandom }

func (r *Room) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Room) HostID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// Idle reports whether the room holds no humans and no game in flight.
// Bots do not keep a room alive.
func (r *Room) Idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.humanIDsLocked()) == 0 && !r.running && !r.prestarting
}

// cpuCorrectProb and the delay bounds come from the challenge tier when
// the room is a challenge, otherwise from the shared settings.
func (r *Room) cpuCorrectProb() float64 {
	if r.isChallenge {
		return r.tier.CorrectProb
	}
	return r.cfg.CPUCorrectProb
}

func (r *Room) cpuDelayBounds() (time.Duration, time.Duration) {
	if r.isChallenge {
		return r.tier.MinDelay, r.tier.MaxDelay
	}
	return r.cfg.CPUMinDelay, r.cfg.CPUMaxDelay
}

// readyHumans is the auto-prestart threshold. Random-match and
// challenge rooms launch as soon as one human is seated; friend rooms
// wait for a full human roster (or a manual host start).
func (r *Room) readyHumans() int {
	if r.isRandom || r.isChallenge {
		return 1
	}
	return r.cfg.ReadyHumans
}

func (r *Room) memberListLocked() []domain.Member {
	out := make([]domain.Member, 0, len(r.players))
	for _, uid := range r.joinOrder {
		pc, ok := r.players[uid]
		if !ok {
			continue
		}
		out = append(out, domain.Member{UserID: uid, Name: pc.Name, Score: r.scores[uid]})
	}
	return out
}

func (r *Room) humanIDsLocked() []int64 {
	out := make([]int64, 0, len(r.players))
	for _, uid := range r.joinOrder {
		if pc, ok := r.players[uid]; ok && !pc.IsBot {
			out = append(out, uid)
		}
	}
	return out
}

// Join seats a player. Rejoining keeps the existing score. The first
// human to join an unhosted room becomes host.
func (r *Room) Join(conn *PlayerConn) {
	r.mu.Lock()
	if _, seated := r.players[conn.UserID]; !seated {
		r.joinOrder = append(r.joinOrder, conn.UserID)
	}
	r.players[conn.UserID] = conn
	if _, ok := r.scores[conn.UserID]; !ok {
		r.scores[conn.UserID] = 0
	}
	if !conn.IsBot && r.hostID == 0 {
		r.hostID = conn.UserID
	}
	ev := SystemEvent{
		Type: "system", Event: "join",
		UserID: conn.UserID, Name: conn.Name,
		Members: r.memberListLocked(), HostID: r.hostID, IsRandom: r.isRandom,
	}
	r.mu.Unlock()

	r.broadcast(ev)
	r.maybeAutoPrestart()
}

// Leave unseats a player, reassigning the host role to the next human
// by join order when the host departs.
func (r *Room) Leave(userID int64) {
	r.mu.Lock()
	pc, ok := r.players[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	name := pc.Name
	delete(r.players, userID)
	r.removeJoinOrderLocked(userID)
	if r.hostID == userID {
		r.hostID = 0
		if humans := r.humanIDsLocked(); len(humans) > 0 {
			r.hostID = humans[0]
		}
	}
	ev := SystemEvent{
		Type: "system", Event: "leave",
		UserID: userID, Name: name,
		Members: r.memberListLocked(), HostID: r.hostID, IsRandom: r.isRandom,
	}
	r.mu.Unlock()

	r.broadcast(ev)
	r.maybeAutoPrestart()
}

func (r *Room) removeJoinOrderLocked(userID int64) {
	for i, uid := range r.joinOrder {
		if uid == userID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			return
		}
	}
}

// CanStart reports whether userID may manually start the game. Random
// and challenge rooms only ever auto-start.
func (r *Room) CanStart(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRandom || r.isChallenge {
		return false
	}
	return r.hostID != 0 && r.hostID == userID && !r.running && !r.prestarting
}

// StartByHost begins the prestart countdown on behalf of userID.
func (r *Room) StartByHost(userID int64, seconds int) error {
	if !r.CanStart(userID) {
		return domain.ErrNotHost
	}
	r.StartWithCountdown(seconds)
	return nil
}

// StartWithCountdown announces a countdown and starts the game when it
// elapses, unless the room started through another path meanwhile.
func (r *Room) StartWithCountdown(seconds int) {
	if seconds <= 0 {
		seconds = int(r.cfg.PrestartCountdown / time.Second)
	}
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.prestarting = true
	if r.prestartTimer != nil {
		r.prestartTimer.Stop()
	}
	r.prestartTimer = time.AfterFunc(time.Duration(seconds)*time.Second, r.prestartFire)
	r.mu.Unlock()

	r.broadcast(PrestartEvent{Type: "prestart", Seconds: seconds})
}

func (r *Room) prestartFire() {
	r.mu.Lock()
	if !r.prestarting || r.running {
		r.mu.Unlock()
		return
	}
	r.prestarting = false
	r.mu.Unlock()
	r.StartGame()
}

// maybeAutoPrestart starts the countdown once enough humans are seated
// and cancels it (with a notice) when membership drops back below the
// threshold before launch.
func (r *Room) maybeAutoPrestart() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	humans := len(r.humanIDsLocked())
	need := r.readyHumans()

	if humans >= need && !r.prestarting {
		r.prestarting = true
		if r.prestartTimer != nil {
			r.prestartTimer.Stop()
		}
		seconds := int(r.cfg.PrestartCountdown / time.Second)
		r.prestartTimer = time.AfterFunc(r.cfg.PrestartCountdown, r.countdownFire)
		r.mu.Unlock()
		r.broadcast(PrestartEvent{Type: "prestart", Seconds: seconds})
		return
	}

	if humans < need && r.prestarting {
		r.prestarting = false
		if r.prestartTimer != nil {
			r.prestartTimer.Stop()
		}
		r.mu.Unlock()
		r.broadcast(PrestartCancelEvent{Type: "prestart_cancel"})
		return
	}
	r.mu.Unlock()
}

func (r *Room) countdownFire() {
	r.mu.Lock()
	if !r.prestarting || r.running || len(r.humanIDsLocked()) < r.readyHumans() {
		r.mu.Unlock()
		return
	}
	r.prestarting = false
	r.mu.Unlock()
	r.StartGame()
}

// StartGame fills the roster with bots, zeroes every score and begins
// round one. Challenge rooms seat exactly one tier bot; normal rooms
// fill up to the configured roster target.
func (r *Room) StartGame() {
	r.mu.Lock()
	r.prestarting = false
	if r.prestartTimer != nil {
		r.prestartTimer.Stop()
	}
	if r.running {
		r.mu.Unlock()
		return
	}
	need := 0
	if r.isChallenge {
		if !r.hasBotLocked() {
			need = 1
		}
	} else {
		need = r.cfg.NeededPlayers - len(r.players)
		if need < 0 {
			need = 0
		}
	}
	r.mu.Unlock()

	if need > 0 {
		r.spawnBots(need)
	}

	r.mu.Lock()
	if len(r.players) < 1 {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.finished = false
	r.roundNo = 0
	for uid := range r.players {
		r.scores[uid] = 0
	}
	ev := GameStartedEvent{Type: "game", Event: "started", RoundMax: r.roundMax, Members: r.memberListLocked()}
	r.mu.Unlock()

	r.broadcast(ev)
	r.nextRound()
}

func (r *Room) hasBotLocked() bool {
	for _, pc := range r.players {
		if pc.IsBot {
			return true
		}
	}
	return false
}

// spawnBots seats n synthetic players with room-unique negative ids.
// Challenge rooms use the tier name; otherwise names come from the
// pool, skipping names already at the table until the pool runs dry.
func (r *Room) spawnBots(n int) {
	r.mu.Lock()
	for i := 0; i < n; i++ {
		uid := r.nextBotIDLocked()
		name := r.botNameLocked()
		r.players[uid] = &PlayerConn{UserID: uid, Name: name, IsBot: true}
		r.joinOrder = append(r.joinOrder, uid)
		if _, ok := r.scores[uid]; !ok {
			r.scores[uid] = 0
		}
	}
	ev := SystemEvent{
		Type: "system", Event: "join",
		UserID: -1, Name: "CPU",
		Members: r.memberListLocked(), HostID: r.hostID, IsRandom: r.isRandom,
	}
	r.mu.Unlock()
	r.broadcast(ev)
}

func (r *Room) nextBotIDLocked() int64 {
	for {
		uid := -(100000 + r.rnd.Int63n(900000))
		if _, taken := r.players[uid]; !taken {
			return uid
		}
	}
}

func (r *Room) botNameLocked() string {
	if r.isChallenge {
		return r.tier.Name
	}
	present := make(map[string]struct{}, len(r.players))
	for _, pc := range r.players {
		present[pc.Name] = struct{}{}
	}
	free := make([]string, 0, len(botNamePool))
	for _, name := range botNamePool {
		if _, used := present[name]; !used {
			free = append(free, name)
		}
	}
	if len(free) > 0 {
		return free[r.rnd.Intn(len(free))]
	}
	return botNamePool[r.rnd.Intn(len(botNamePool))]
}

// nextRound advances the state machine: finish when every round has
// been played, otherwise draw a question, reset round-scoped state,
// arm the deadline watch and publish the question.
func (r *Room) nextRound() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	if r.roundNo >= r.roundMax {
		r.mu.Unlock()
		// finishing takes the lock itself
		r.finish()
		return
	}
	r.mu.Unlock()

	q := r.bank.Sample(context.Background())

	var bots []int64
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.roundNo++
	r.currentQ = &q
	r.answered = make(map[int64]struct{})
	r.correctUsers = make(map[int64]struct{})
	r.firstCorrect = 0
	r.roundHumans = r.humanIDsLocked()
	r.stampCount = make(map[int64]int)
	r.statsRecorded = false
	r.roundEndScheduled = false

	now := r.now()
	r.roundStartAt = now
	r.answerOpenAt = now.Add(r.cfg.AnswerOpenDelay)
	r.deadlineAt = now.Add(r.cfg.QuestionTimeLimit)

	if r.deadlineTimer != nil {
		r.deadlineTimer.Stop()
	}
	qid := q.QID
	deadline := r.deadlineAt
	r.deadlineTimer = time.AfterFunc(r.cfg.QuestionTimeLimit, func() { r.deadlineFire(qid, deadline) })

	banner := RoundBannerEvent{Type: "round_banner", RoundNo: r.roundNo}
	payload := QuestionEvent{
		Type: "q", RoundNo: r.roundNo, RoundMax: r.roundMax,
		QID: q.QID, Stem: q.Stem, Choices: q.Choices, Hint: q.Hint,
	}
	for _, uid := range r.joinOrder {
		if pc, ok := r.players[uid]; ok && pc.IsBot {
			bots = append(bots, uid)
		}
	}
	r.mu.Unlock()

	r.broadcast(banner)
	r.broadcast(payload)
	r.scheduleCPUAnswers(bots, qid)
}

// deadlineFire closes the round when the time limit expires. It is a
// no-op when the round already advanced (qid or deadline changed) or
// when the all-answered path claimed the round end first.
func (r *Room) deadlineFire(qid string, deadline time.Time) {
	r.mu.Lock()
	if r.currentQ == nil || r.currentQ.QID != qid || !r.deadlineAt.Equal(deadline) || r.finished {
		r.mu.Unlock()
		return
	}
	if !r.claimRoundEndLocked() {
		r.mu.Unlock()
		return
	}
	sample := r.takeStatsSampleLocked()
	reveal := RevealEvent{Type: "reveal", QID: qid, CorrectIdx: r.currentQ.CorrectIdx}
	r.mu.Unlock()

	r.recordStats(sample)
	r.broadcast(reveal)
	time.Sleep(r.cfg.RevealHold)
	r.nextRound()
}

// claimRoundEndLocked is the round-advance arbitration: the first
// caller in a round wins, everyone after is a no-op.
func (r *Room) claimRoundEndLocked() bool {
	if r.roundEndScheduled {
		return false
	}
	r.roundEndScheduled = true
	return true
}

// takeStatsSampleLocked captures the recognition sample at most once
// per round, and only for facility-backed questions. Counts cover the
// humans seated when the round started.
func (r *Room) takeStatsSampleLocked() *domain.RecognitionSample {
	if r.statsRecorded || r.currentQ == nil || !r.currentQ.HasProvenance() {
		return nil
	}
	r.statsRecorded = true
	sample := domain.RecognitionSample{
		FacilityID:   r.currentQ.FacilityID,
		FacilityName: r.currentQ.FacilityName,
		City:         r.currentQ.City,
		Kind:         r.currentQ.Kind,
		Shown:        len(r.roundHumans),
	}
	for _, uid := range r.roundHumans {
		if _, ok := r.answered[uid]; ok {
			sample.Answered++
		}
		if _, ok := r.correctUsers[uid]; ok {
			sample.Correct++
		}
	}
	return &sample
}

func (r *Room) recordStats(sample *domain.RecognitionSample) {
	if sample == nil || r.stats == nil {
		return
	}
	if err := r.stats.RecordRound(context.Background(), *sample); err != nil {
		log.Printf("room %s: record recognition stats: %v", r.code, err)
	}
}

func (r *Room) scheduleCPUAnswers(bots []int64, qid string) {
	if len(bots) == 0 {
		return
	}
	minD, maxD := r.cpuDelayBounds()
	span := maxD - minD
	for _, uid := range bots {
		r.mu.Lock()
		delay := minD
		if span > 0 {
			delay += time.Duration(r.rnd.Int63n(int64(span)))
		}
		r.mu.Unlock()
		uid := uid
		time.AfterFunc(delay, func() { r.cpuAnswer(uid, qid) })
	}
}

// cpuAnswer submits a bot's answer through the same path as humans.
func (r *Room) cpuAnswer(botID int64, qid string) {
	r.mu.Lock()
	if r.currentQ == nil || r.currentQ.QID != qid {
		r.mu.Unlock()
		return
	}
	if _, done := r.answered[botID]; done {
		r.mu.Unlock()
		return
	}
	q := *r.currentQ
	idx := q.CorrectIdx
	if r.rnd.Float64() >= r.cpuCorrectProb() {
		wrongs := make([]int, 0, len(q.Choices))
		for i := range q.Choices {
			if i != q.CorrectIdx {
				wrongs = append(wrongs, i)
			}
		}
		if len(wrongs) > 0 {
			idx = wrongs[r.rnd.Intn(len(wrongs))]
		}
	}
	r.mu.Unlock()

	r.ReceiveAnswer(botID, qid, idx)
}

// ReceiveAnswer arbitrates one answer submission. First submission per
// user per round wins; answers outside the accept window or for a
// stale question are silently dropped. When the last human answers,
// this path claims the round end, cancels the deadline watch and
// schedules the advance, holding the reveal so the round stays on
// screen for the configured minimum.
func (r *Room) ReceiveAnswer(userID int64, qid string, idx int) bool {
	r.mu.Lock()
	if r.currentQ == nil || r.currentQ.QID != qid {
		r.mu.Unlock()
		return false
	}
	now := r.now()
	if now.Before(r.answerOpenAt) || now.After(r.deadlineAt) {
		r.mu.Unlock()
		return false
	}
	if _, dup := r.answered[userID]; dup {
		r.mu.Unlock()
		return false
	}

	r.answered[userID] = struct{}{}
	correct := idx == r.currentQ.CorrectIdx
	gain := 0
	if correct {
		r.correctUsers[userID] = struct{}{}
		if r.firstCorrect == 0 {
			r.firstCorrect = userID
			gain = r.cfg.FirstCorrectPoints
		} else {
			gain = r.cfg.LaterCorrectPoints
		}
	}
	if gain != 0 {
		r.scores[userID] += gain
	}

	name := ""
	if pc, ok := r.players[userID]; ok {
		name = pc.Name
	}
	total := len(r.players)
	if total < 1 {
		total = 1
	}
	result := AnswerResultEvent{
		Type: "answer_result", UserID: userID, Name: name,
		QID: qid, ChoiceIdx: idx, Correct: correct,
		Scores: r.memberListLocked(), Answered: len(r.answered), Total: total,
	}

	var reveal *RevealEvent
	var sample *domain.RecognitionSample
	var hold time.Duration
	humans := r.humanIDsLocked()
	answeredHumans := 0
	for _, uid := range humans {
		if _, ok := r.answered[uid]; ok {
			answeredHumans++
		}
	}
	if len(humans) > 0 && answeredHumans >= len(humans) && r.claimRoundEndLocked() {
		if r.deadlineTimer != nil {
			r.deadlineTimer.Stop()
		}
		sample = r.takeStatsSampleLocked()
		reveal = &RevealEvent{Type: "reveal", QID: qid, CorrectIdx: r.currentQ.CorrectIdx}
		hold = r.cfg.RevealHold
		if elapsed := now.Sub(r.roundStartAt); elapsed+hold < r.cfg.MinRoundDisplay {
			hold = r.cfg.MinRoundDisplay - elapsed
		}
	}
	r.mu.Unlock()

	r.broadcast(result)
	if reveal != nil {
		r.recordStats(sample)
		r.broadcast(*reveal)
		time.AfterFunc(hold, r.nextRound)
	}
	return true
}

// finish ends the game exactly once: cancels timers, ranks everyone by
// score (user id breaks ties), bumps human play counters, flags a
// king-tier victory, and publishes the final ranking.
func (r *Room) finish() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.running = false
	r.prestarting = false
	if r.prestartTimer != nil {
		r.prestartTimer.Stop()
	}
	if r.deadlineTimer != nil {
		r.deadlineTimer.Stop()
	}

	type kv struct {
		uid   int64
		score int
	}
	ranked := make([]kv, 0, len(r.scores))
	for uid, sc := range r.scores {
		ranked = append(ranked, kv{uid, sc})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].uid < ranked[j].uid
	})

	ranking := make([]domain.RankEntry, 0, len(ranked))
	for _, e := range ranked {
		name := ""
		if pc, ok := r.players[e.uid]; ok {
			name = pc.Name
		}
		ranking = append(ranking, domain.RankEntry{UserID: e.uid, Name: name, Score: e.score})
	}

	humans := r.humanIDsLocked()
	var clearedBy int64
	if r.isChallenge && r.challengeLevel == domain.ChallengeKing && r.hasBotLocked() &&
		len(ranking) > 0 && ranking[0].UserID > 0 {
		clearedBy = ranking[0].UserID
	}
	r.mu.Unlock()

	if r.profiles != nil && len(humans) > 0 {
		if err := r.profiles.IncrementPlays(context.Background(), humans); err != nil {
			log.Printf("room %s: increment play counts: %v", r.code, err)
		}
		if clearedBy != 0 {
			if err := r.profiles.MarkChallengeCleared(context.Background(), clearedBy, r.challengeLevel); err != nil {
				log.Printf("room %s: mark challenge cleared: %v", r.code, err)
			}
		}
	}

	r.broadcast(GameFinishedEvent{Type: "game", Event: "finished", Ranking: ranking})
}

// RegisterStamp enforces the per-user cooldown and the per-round cap.
// Violations are silently dropped per the room's anti-spam policy.
func (r *Room) RegisterStamp(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if last, ok := r.lastStampAt[userID]; ok && now.Sub(last) < r.cfg.StampCooldown {
		return false
	}
	if r.stampCount[userID] >= r.cfg.StampMaxPerRound {
		return false
	}
	r.lastStampAt[userID] = now
	r.stampCount[userID]++
	return true
}

// Broadcast sends an event to every seated player with a live sender.
// A failed send is an implicit disconnect: the recipient is dropped
// from the roster and the remaining sends proceed.
func (r *Room) Broadcast(v any) { r.broadcast(v) }

func (r *Room) broadcast(v any) {
	type target struct {
		uid    int64
		sender Sender
	}
	r.mu.Lock()
	targets := make([]target, 0, len(r.players))
	for _, uid := range r.joinOrder {
		pc, ok := r.players[uid]
		if !ok || pc.Sender == nil {
			continue
		}
		targets = append(targets, target{uid, pc.Sender})
	}
	r.mu.Unlock()

	var dead []int64
	for _, t := range targets {
		if err := t.sender.Send(v); err != nil {
			dead = append(dead, t.uid)
		}
	}
	if len(dead) == 0 {
		return
	}
	r.mu.Lock()
	for _, uid := range dead {
		delete(r.players, uid)
		r.removeJoinOrderLocked(uid)
	}
	r.mu.Unlock()
}
