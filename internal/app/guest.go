package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

// GuestState labels the guest-side view of the quiz.
type GuestState string

const (
	GuestConnecting  GuestState = "connecting"
	GuestWaiting     GuestState = "waiting"
	GuestQuestion    GuestState = "question"
	GuestAnswered    GuestState = "answered"
	GuestReveal      GuestState = "reveal"
	GuestLeaderboard GuestState = "leaderboard"
	GuestEnded       GuestState = "ended"
)

// RevealOutcome is the guest's locally computed result for one question.
type RevealOutcome struct {
	QuestionID    string             `json:"questionId"`
	Selected      domain.OptionLabel `json:"selected,omitempty"`
	CorrectAnswer domain.OptionLabel `json:"correctAnswer"`
	Correct       bool               `json:"correct"`
	Breakdown     PointsBreakdown    `json:"breakdown"`
	Stats         domain.AnswerStats `json:"stats"`
}

// GuestSnapshot is a render-ready view of the machine.
type GuestSnapshot struct {
	State            GuestState              `json:"state"`
	TotalQuestions   int                     `json:"totalQuestions"`
	ParticipantCount int                     `json:"participantCount"`
	Question         *domain.QuestionPayload `json:"question,omitempty"`
	Selected         domain.OptionLabel      `json:"selected,omitempty"`
	AnswerCount      int                     `json:"answerCount"`
	Outcome          *RevealOutcome          `json:"outcome,omitempty"`
	TotalScore       int                     `json:"totalScore"`
	CorrectAnswers   int                     `json:"correctAnswers"`
	Rankings         []domain.RankingEntry   `json:"rankings,omitempty"`
	Winners          []domain.RankingEntry   `json:"winners,omitempty"`
	Timer            TimerSnapshot           `json:"timer"`
}

// Guest consumes channel events and the local timer to drive one
// participant's view of the quiz. Every durable fact it holds is tagged with
// the question id it reflects, so stale or out-of-order events are discarded
// instead of trusted.
type Guest struct {
	sessionID     string
	partyID       string
	partyName     string
	hasGamesBonus bool
	broker        channel.Broker
	reporter      Reporter
	clock         clockwork.Clock
	logger        zerolog.Logger
	timer         *CountdownTimer

	mu               sync.Mutex
	state            GuestState
	cancelSub        func()
	onUpdate         func()
	totalQuestions   int
	question         *domain.QuestionPayload
	selected         domain.OptionLabel
	elapsedMs        int64
	outcome          *RevealOutcome
	totalScore       int
	correctAnswers   int
	rankings         []domain.RankingEntry
	winners          []domain.RankingEntry
	participantCount int
	answerCount      int
}

// NewGuest builds a guest machine in the connecting state. The games bonus is
// an external fact from the photo-game track; it seeds the local running total
// the same way the host folds it into rankings.
func NewGuest(sessionID, partyID, partyName string, hasGamesBonus bool, broker channel.Broker, reporter Reporter, clock clockwork.Clock, logger zerolog.Logger) *Guest {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	g := &Guest{
		sessionID:     sessionID,
		partyID:       partyID,
		partyName:     partyName,
		hasGamesBonus: hasGamesBonus,
		broker:        broker,
		reporter:      reporter,
		clock:         clock,
		logger:        logger.With().Str("session", sessionID).Str("party", partyID).Logger(),
		state:         GuestConnecting,
	}
	if hasGamesBonus {
		g.totalScore = GamesBonusPoints
	}
	g.timer = NewCountdownTimer(clock, g.onTimeUp)
	return g
}

// Connect subscribes to the session topic and announces the guest to the
// host. Re-connecting while already subscribed is a no-op, so no duplicate
// listeners can accumulate. On subscribe failure the guest stays in
// connecting and the caller retries.
func (g *Guest) Connect(ctx context.Context) error {
	g.mu.Lock()
	if g.cancelSub != nil {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	ch := g.broker.Join(g.sessionID)
	cancel, err := ch.Subscribe(ctx, g.handleEvent)
	if err != nil {
		return fmt.Errorf("subscribe session %s: %w", g.sessionID, err)
	}

	g.mu.Lock()
	if g.cancelSub != nil {
		// Lost a connect race against ourselves; keep the first subscription.
		g.mu.Unlock()
		cancel()
		return nil
	}
	g.cancelSub = cancel
	if g.state == GuestConnecting {
		// Subscribed and announced; a started event that predates the join is
		// never replayed, so the subscription itself is the waiting signal.
		g.state = GuestWaiting
	}
	g.mu.Unlock()

	if err := g.reporter.ReportJoin(ctx, JoinReport{
		SessionID:     g.sessionID,
		PartyID:       g.partyID,
		PartyName:     g.partyName,
		HasGamesBonus: g.hasGamesBonus,
	}); err != nil {
		g.logger.Warn().Err(err).Msg("join report failed")
	}
	return nil
}

// SetOnUpdate registers a callback invoked after every event or timer change
// the guest applies. Transports use it to push fresh snapshots to clients.
func (g *Guest) SetOnUpdate(fn func()) {
	g.mu.Lock()
	g.onUpdate = fn
	g.mu.Unlock()
}

func (g *Guest) notifyUpdate() {
	g.mu.Lock()
	fn := g.onUpdate
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Teardown unsubscribes and stops the timer. Safe to call multiple times.
func (g *Guest) Teardown() {
	g.mu.Lock()
	cancel := g.cancelSub
	g.cancelSub = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.timer.Stop()
}

// SubmitAnswer locks in the guest's choice for the active question. Only the
// first submission per question is accepted; elapsed time is measured against
// the shared absolute start timestamp, not a local countdown.
func (g *Guest) SubmitAnswer(ctx context.Context, label domain.OptionLabel) error {
	g.mu.Lock()
	switch g.state {
	case GuestQuestion:
	case GuestAnswered:
		g.mu.Unlock()
		return domain.ErrAlreadyAnswered
	default:
		g.mu.Unlock()
		return domain.ErrNoActiveQuestion
	}
	if !label.Valid() {
		g.mu.Unlock()
		return domain.ErrInvalidOption
	}
	q := g.question
	elapsed := g.clock.Now().Sub(q.StartedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	g.selected = label
	g.elapsedMs = elapsed
	g.state = GuestAnswered
	g.mu.Unlock()

	// Fire-and-forget: the report feeds host-side stats, the local state is
	// already committed either way.
	if err := g.reporter.ReportAnswer(ctx, AnswerReport{
		SessionID:   g.sessionID,
		PartyID:     g.partyID,
		QuestionID:  q.QuestionID,
		Option:      label,
		TimeTakenMs: elapsed,
	}); err != nil {
		g.logger.Warn().Err(err).Str("question", q.QuestionID).Msg("answer report failed")
	}
	return nil
}

// Snapshot returns a render-ready copy of the guest view.
func (g *Guest) Snapshot() GuestSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	snap := GuestSnapshot{
		State:            g.state,
		TotalQuestions:   g.totalQuestions,
		ParticipantCount: g.participantCount,
		Selected:         g.selected,
		AnswerCount:      g.answerCount,
		TotalScore:       g.totalScore,
		CorrectAnswers:   g.correctAnswers,
		Rankings:         g.rankings,
		Winners:          g.winners,
		Timer:            g.timer.Snapshot(),
	}
	if g.question != nil {
		q := *g.question
		snap.Question = &q
	}
	if g.outcome != nil {
		o := *g.outcome
		snap.Outcome = &o
	}
	return snap
}

// State returns the current state label.
func (g *Guest) State() GuestState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// TotalScore returns the guest's locally accumulated score.
func (g *Guest) TotalScore() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalScore
}

func (g *Guest) handleEvent(ev domain.Event) {
	if ev.SessionID != g.sessionID {
		g.logger.Debug().Str("event", string(ev.Type)).Msg("ignoring event for other session")
		return
	}
	switch ev.Type {
	case domain.EventStarted:
		g.onStarted(ev)
	case domain.EventQuestion:
		g.onQuestion(ev)
	case domain.EventReveal:
		g.onReveal(ev)
	case domain.EventLeaderboard:
		g.onLeaderboard(ev)
	case domain.EventEnded:
		g.onEnded(ev)
	case domain.EventParticipantJoined:
		g.onParticipantJoined(ev)
	case domain.EventAnswerCount:
		g.onAnswerCount(ev)
	default:
		g.logger.Debug().Str("event", string(ev.Type)).Msg("ignoring unknown event type")
		return
	}
	g.notifyUpdate()
}

func (g *Guest) onStarted(ev domain.Event) {
	var p domain.StartedPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed started event")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.totalQuestions = p.TotalQuestions
	if g.state == GuestConnecting {
		g.state = GuestWaiting
	}
}

// onQuestion replaces the active question wholesale. A late reveal for the
// prior question is ignored afterwards because its id no longer matches.
func (g *Guest) onQuestion(ev domain.Event) {
	var p domain.QuestionPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed question event")
		return
	}
	g.mu.Lock()
	if g.state == GuestEnded {
		g.mu.Unlock()
		return
	}
	if g.question != nil && g.question.QuestionID == p.QuestionID {
		g.mu.Unlock()
		return
	}
	g.question = &p
	g.selected = ""
	g.elapsedMs = 0
	g.outcome = nil
	g.answerCount = 0
	g.state = GuestQuestion
	g.mu.Unlock()

	g.timer.Start(p.StartedAt, p.TimeLimitSeconds)
}

// onReveal computes the guest's own correctness and points from the revealed
// answer; no server pushes per-guest scores. The result is reported back for
// ranking aggregation.
func (g *Guest) onReveal(ev domain.Event) {
	var p domain.RevealPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed reveal event")
		return
	}
	g.mu.Lock()
	if g.question == nil || g.question.QuestionID != p.QuestionID {
		g.mu.Unlock()
		g.logger.Debug().Str("question", p.QuestionID).Msg("ignoring reveal for stale question")
		return
	}
	if g.outcome != nil && g.outcome.QuestionID == p.QuestionID {
		g.mu.Unlock()
		return
	}
	correct := g.selected != "" && g.selected == p.CorrectAnswer
	var breakdown PointsBreakdown
	if g.selected != "" {
		breakdown = GetPointsBreakdown(correct, g.elapsedMs, int64(g.question.TimeLimitSeconds)*1000)
	}
	g.outcome = &RevealOutcome{
		QuestionID:    p.QuestionID,
		Selected:      g.selected,
		CorrectAnswer: p.CorrectAnswer,
		Correct:       correct,
		Breakdown:     breakdown,
		Stats:         p.Stats,
	}
	g.totalScore += breakdown.Total
	if correct {
		g.correctAnswers++
	}
	g.state = GuestReveal
	g.mu.Unlock()

	g.timer.Stop()

	if err := g.reporter.ReportScore(context.Background(), ScoreReport{
		SessionID:  g.sessionID,
		PartyID:    g.partyID,
		QuestionID: p.QuestionID,
		Correct:    correct,
		Points:     breakdown.Total,
	}); err != nil {
		g.logger.Warn().Err(err).Str("question", p.QuestionID).Msg("score report failed")
	}
}

func (g *Guest) onLeaderboard(ev domain.Event) {
	var p domain.LeaderboardPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed leaderboard event")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == GuestEnded {
		return
	}
	// Rankings are displayed as given by the host, never recomputed locally.
	g.rankings = p.Rankings
	g.state = GuestLeaderboard
}

func (g *Guest) onEnded(ev domain.Event) {
	var p domain.EndedPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed ended event")
		return
	}
	g.mu.Lock()
	g.winners = p.Winners
	g.participantCount = p.TotalParticipants
	g.state = GuestEnded
	g.mu.Unlock()
	g.timer.Stop()
}

func (g *Guest) onParticipantJoined(ev domain.Event) {
	var p domain.ParticipantJoinedPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed participant event")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// Counter update only; the state label never changes here.
	g.participantCount = p.ParticipantCount
}

func (g *Guest) onAnswerCount(ev domain.Event) {
	var p domain.AnswerCountPayload
	if err := domain.DecodePayload(ev, &p); err != nil {
		g.logger.Debug().Err(err).Msg("dropping malformed answer count event")
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.question == nil || g.question.QuestionID != p.QuestionID {
		return
	}
	g.answerCount = p.AnswerCount
}

// onTimeUp optimistically advances question -> reveal when the local window
// closes before the authoritative reveal arrives; the reveal event reconciles
// the outcome when it lands.
func (g *Guest) onTimeUp() {
	g.mu.Lock()
	if g.state != GuestQuestion {
		g.mu.Unlock()
		return
	}
	g.state = GuestReveal
	g.mu.Unlock()
	g.notifyUpdate()
}
