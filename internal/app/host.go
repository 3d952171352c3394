package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

// HostState labels the authoritative progression of a session.
type HostState string

const (
	HostIdle        HostState = "idle"
	HostWaiting     HostState = "waiting"
	HostQuestion    HostState = "question"
	HostRevealing   HostState = "revealing"
	HostLeaderboard HostState = "leaderboard"
	HostEnded       HostState = "ended"
)

// winnersShown caps the winners list in the final broadcast.
const winnersShown = 3

// HostSession drives one quiz run: it owns the question order, stamps start
// timestamps, aggregates out-of-band reports, and emits every broadcast the
// guest machines consume. The channel is a relay only; the host never assumes
// a send reached anyone.
type HostSession struct {
	id     string
	clock  clockwork.Clock
	logger zerolog.Logger
	ch     channel.Channel

	mu           sync.Mutex
	state        HostState
	status       domain.SessionStatus
	questions    []domain.Question
	idx          int
	startedAt    time.Time
	cancelSub    func()
	participants map[string]*domain.Participant
	answers      map[string]map[string]domain.AnswerRecord
}

// NewHostSession rejects sessions with no questions before any state exists.
func NewHostSession(id string, questions []domain.Question, ch channel.Channel, clock clockwork.Clock, logger zerolog.Logger) (*HostSession, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HostSession{
		id:           id,
		clock:        clock,
		logger:       logger.With().Str("session", id).Logger(),
		ch:           ch,
		state:        HostIdle,
		status:       domain.StatusWaiting,
		questions:    questions,
		idx:          -1,
		participants: make(map[string]*domain.Participant),
		answers:      make(map[string]map[string]domain.AnswerRecord),
	}, nil
}

// ID returns the session identifier.
func (h *HostSession) ID() string { return h.id }

// State returns the current host state label.
func (h *HostSession) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Status returns the session record status.
func (h *HostSession) Status() domain.SessionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Start opens the session: subscribes the host's own UI to the channel and
// broadcasts quiz:started with the total question count.
func (h *HostSession) Start(ctx context.Context, onEvent channel.Handler) error {
	h.mu.Lock()
	if h.state != HostIdle {
		h.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	h.mu.Unlock()

	if onEvent != nil {
		h.mu.Lock()
		subscribed := h.cancelSub != nil
		h.mu.Unlock()
		// A retried Start after a failed broadcast must not stack a second
		// subscription on top of the first.
		if !subscribed {
			cancel, err := h.ch.Subscribe(ctx, onEvent)
			if err != nil {
				return err
			}
			h.mu.Lock()
			h.cancelSub = cancel
			h.mu.Unlock()
		}
	}

	ev, err := domain.NewEvent(h.id, domain.EventStarted, domain.StartedPayload{
		SessionID:      h.id,
		TotalQuestions: len(h.questions),
	})
	if err != nil {
		return err
	}
	if err := h.broadcast(ctx, ev); err != nil {
		return err
	}

	h.mu.Lock()
	h.state = HostWaiting
	h.status = domain.StatusWaiting
	h.mu.Unlock()
	return nil
}

// NextQuestion advances to the next queued question, stamps its start
// timestamp and broadcasts the payload with the correct answer withheld.
func (h *HostSession) NextQuestion(ctx context.Context) error {
	h.mu.Lock()
	if h.state != HostWaiting && h.state != HostLeaderboard {
		h.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if h.idx+1 >= len(h.questions) {
		h.mu.Unlock()
		return domain.ErrSessionExhausted
	}
	prevState, prevStatus, prevStartedAt := h.state, h.status, h.startedAt
	h.idx++
	h.startedAt = h.clock.Now()
	q := h.questions[h.idx]
	idx := h.idx
	startedAt := h.startedAt
	h.state = HostQuestion
	h.status = domain.StatusActive
	h.mu.Unlock()

	ev, err := domain.NewEvent(h.id, domain.EventQuestion, domain.QuestionPayload{
		Index:            idx,
		QuestionID:       q.ID,
		Question:         q.Prompt,
		Options:          q.Options,
		StartedAt:        startedAt,
		TimeLimitSeconds: q.TimeLimitSeconds,
		ImageURL:         q.ImageURL,
	})
	if err == nil {
		err = h.broadcast(ctx, ev)
	}
	if err != nil {
		// Roll back so the admin can retry; a committed transition with a
		// lost broadcast would strand every guest on the previous question.
		h.mu.Lock()
		h.idx--
		h.state, h.status, h.startedAt = prevState, prevStatus, prevStartedAt
		h.mu.Unlock()
		return err
	}
	return nil
}

// Reveal closes the answer window by host action, aggregates collected
// answers and broadcasts the correct option with stats. Zero answers still
// reveal with zero counts.
func (h *HostSession) Reveal(ctx context.Context) error {
	h.mu.Lock()
	if h.state != HostQuestion {
		h.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	q := h.questions[h.idx]
	stats := aggregateStats(h.answers[q.ID], q.CorrectOption)
	idx := h.idx
	prevState, prevStatus := h.state, h.status
	h.state = HostRevealing
	h.status = domain.StatusShowingAnswer
	h.mu.Unlock()

	ev, err := domain.NewEvent(h.id, domain.EventReveal, domain.RevealPayload{
		QuestionID:    q.ID,
		Question:      q.Prompt,
		Index:         idx,
		Options:       q.Options,
		CorrectAnswer: q.CorrectOption,
		Stats:         stats,
	})
	if err == nil {
		err = h.broadcast(ctx, ev)
	}
	if err != nil {
		h.mu.Lock()
		h.state, h.status = prevState, prevStatus
		h.mu.Unlock()
		return err
	}
	return nil
}

// ShowLeaderboard recomputes the full rankings and broadcasts them.
func (h *HostSession) ShowLeaderboard(ctx context.Context) error {
	h.mu.Lock()
	if h.state != HostRevealing {
		h.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	rankings := ComputeRankings(h.participantsLocked())
	prevState := h.state
	h.state = HostLeaderboard
	h.mu.Unlock()

	ev, err := domain.NewEvent(h.id, domain.EventLeaderboard, domain.LeaderboardPayload{Rankings: rankings})
	if err == nil {
		err = h.broadcast(ctx, ev)
	}
	if err != nil {
		h.mu.Lock()
		h.state = prevState
		h.mu.Unlock()
		return err
	}
	return nil
}

// HasMoreQuestions reports whether the host can loop back into a question.
func (h *HostSession) HasMoreQuestions() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.idx+1 < len(h.questions)
}

// End finishes the session, broadcasting the winners and tearing down the
// host subscription.
func (h *HostSession) End(ctx context.Context) error {
	h.mu.Lock()
	if h.state != HostLeaderboard && h.state != HostRevealing {
		h.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	rankings := ComputeRankings(h.participantsLocked())
	total := len(h.participants)
	prevState, prevStatus := h.state, h.status
	h.state = HostEnded
	h.status = domain.StatusCompleted
	h.mu.Unlock()

	winners := rankings
	if len(winners) > winnersShown {
		winners = winners[:winnersShown]
	}
	ev, err := domain.NewEvent(h.id, domain.EventEnded, domain.EndedPayload{
		Winners:           winners,
		TotalParticipants: total,
	})
	if err == nil {
		err = h.broadcast(ctx, ev)
	}
	if err != nil {
		// Keep the subscription and the pre-end state so End can be retried
		// until quiz:ended actually goes out.
		h.mu.Lock()
		h.state, h.status = prevState, prevStatus
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	cancel := h.cancelSub
	h.cancelSub = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// ReportJoin registers a participant on first join and broadcasts the counter.
// The games bonus is applied exactly once, when the flag is first seen.
func (h *HostSession) ReportJoin(ctx context.Context, report JoinReport) error {
	h.mu.Lock()
	p, ok := h.participants[report.PartyID]
	if !ok {
		p = &domain.Participant{
			PartyID:      report.PartyID,
			PartyName:    report.PartyName,
			LastScoredAt: h.clock.Now(),
		}
		h.participants[report.PartyID] = p
	}
	p.PartyName = report.PartyName
	if report.HasGamesBonus && !p.HasGamesBonus {
		p.HasGamesBonus = true
		p.TotalScore += GamesBonusPoints
	}
	count := len(h.participants)
	h.mu.Unlock()

	ev, err := domain.NewEvent(h.id, domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		ParticipantCount: count,
		PartyName:        report.PartyName,
	})
	if err != nil {
		return err
	}
	return h.broadcast(ctx, ev)
}

// ReportAnswer collects a submission for the active question and broadcasts
// the running answer count. Duplicate and stale reports are dropped.
func (h *HostSession) ReportAnswer(ctx context.Context, report AnswerReport) error {
	h.mu.Lock()
	if h.state != HostQuestion || h.idx < 0 || h.questions[h.idx].ID != report.QuestionID {
		h.mu.Unlock()
		h.logger.Debug().Str("question", report.QuestionID).Str("party", report.PartyID).
			Msg("ignoring answer for inactive question")
		return nil
	}
	if !report.Option.Valid() {
		h.mu.Unlock()
		return domain.ErrInvalidOption
	}
	if _, ok := h.participants[report.PartyID]; !ok {
		h.mu.Unlock()
		return domain.ErrParticipantNotFound
	}
	perQuestion, ok := h.answers[report.QuestionID]
	if !ok {
		perQuestion = make(map[string]domain.AnswerRecord)
		h.answers[report.QuestionID] = perQuestion
	}
	if _, dup := perQuestion[report.PartyID]; dup {
		h.mu.Unlock()
		return domain.ErrAlreadyAnswered
	}
	q := h.questions[h.idx]
	perQuestion[report.PartyID] = domain.AnswerRecord{
		PartyID:     report.PartyID,
		QuestionID:  report.QuestionID,
		Option:      report.Option,
		SubmittedAt: h.clock.Now(),
		TimeTakenMs: report.TimeTakenMs,
		Correct:     report.Option == q.CorrectOption,
	}
	count := len(perQuestion)
	h.mu.Unlock()

	ev, err := domain.NewEvent(h.id, domain.EventAnswerCount, domain.AnswerCountPayload{
		QuestionID:  report.QuestionID,
		AnswerCount: count,
	})
	if err != nil {
		return err
	}
	return h.broadcast(ctx, ev)
}

// ReportScore folds a guest's locally computed result into the rankings.
// The design is relay-only: the host trusts the guest computation, it only
// guards against stale question ids and unknown parties.
func (h *HostSession) ReportScore(_ context.Context, report ScoreReport) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idx < 0 || h.questions[h.idx].ID != report.QuestionID {
		h.logger.Debug().Str("question", report.QuestionID).Str("party", report.PartyID).
			Msg("ignoring score for inactive question")
		return nil
	}
	p, ok := h.participants[report.PartyID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if report.Points != 0 {
		// A zero-point miss leaves the tie-break timestamp alone; it marks
		// when the total last changed, not when the guest last reported.
		p.TotalScore += report.Points
		p.LastScoredAt = h.clock.Now()
	}
	if report.Correct {
		p.CorrectAnswers++
	}
	return nil
}

// ParticipantCount returns the live participant total.
func (h *HostSession) ParticipantCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.participants)
}

// Rankings exposes the current standings without a broadcast.
func (h *HostSession) Rankings() []domain.RankingEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ComputeRankings(h.participantsLocked())
}

func (h *HostSession) participantsLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(h.participants))
	for _, p := range h.participants {
		out = append(out, *p)
	}
	return out
}

// broadcast publishes with one retry: a failed send usually means the channel
// subscription raced the publish, so we confirm readiness and try again
// instead of silently dropping the transition.
func (h *HostSession) broadcast(ctx context.Context, ev domain.Event) error {
	if err := h.ch.Publish(ctx, ev); err == nil {
		return nil
	} else {
		h.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("broadcast failed, retrying")
	}
	if err := h.ch.Ready(ctx); err != nil {
		return err
	}
	return h.ch.Publish(ctx, ev)
}

func aggregateStats(records map[string]domain.AnswerRecord, correct domain.OptionLabel) domain.AnswerStats {
	stats := domain.AnswerStats{}
	var totalTime int64
	for _, rec := range records {
		stats.Total++
		totalTime += rec.TimeTakenMs
		switch rec.Option {
		case domain.OptionA:
			stats.A++
		case domain.OptionB:
			stats.B++
		case domain.OptionC:
			stats.C++
		case domain.OptionD:
			stats.D++
		}
		if rec.Option == correct {
			stats.CorrectCount++
		}
	}
	if stats.Total > 0 {
		stats.AverageTimeMs = totalTime / int64(stats.Total)
	}
	return stats
}
