package app

import (
	"context"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
)

// SessionRepository abstracts how live host sessions are tracked (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *HostSession)
	Get(sessionID string) (*HostSession, bool)
	Delete(sessionID string)
}

// QuestionRepository loads question banks (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuizService wires the host and guest machines to storage and the broadcast broker.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	broker    channel.Broker
	clock     clockwork.Clock
	logger    zerolog.Logger
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, broker channel.Broker, clock clockwork.Clock, logger zerolog.Logger) *QuizService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &QuizService{
		sessions:  sessions,
		questions: questions,
		broker:    broker,
		clock:     clock,
		logger:    logger,
	}
}

// CreateSession loads the question bank, creates the host machine in idle and
// opens the session channel. Creation fails before any state exists when the
// bank is empty. The session does not broadcast until StartSession.
func (s *QuizService) CreateSession(ctx context.Context, sessionID, questionSetID string) (*HostSession, error) {
	set, err := s.questions.GetQuestionSet(ctx, questionSetID)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(set.Questions))
	copy(questions, set.Questions)
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].DisplayOrder < questions[j].DisplayOrder
	})

	ch := s.broker.Join(sessionID)
	host, err := NewHostSession(sessionID, questions, ch, s.clock, s.logger)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(host)
	return host, nil
}

// StartSession opens the named session for play and broadcasts quiz:started.
func (s *QuizService) StartSession(ctx context.Context, sessionID string) error {
	host, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return host.Start(ctx, nil)
}

// Session looks up a live session.
func (s *QuizService) Session(sessionID string) (*HostSession, error) {
	host, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return host, nil
}

// NextQuestion advances the named session to its next question.
func (s *QuizService) NextQuestion(ctx context.Context, sessionID string) error {
	host, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return host.NextQuestion(ctx)
}

// Reveal closes the answer window and broadcasts the correct answer with stats.
func (s *QuizService) Reveal(ctx context.Context, sessionID string) error {
	host, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return host.Reveal(ctx)
}

// ShowLeaderboard broadcasts the current rankings.
func (s *QuizService) ShowLeaderboard(ctx context.Context, sessionID string) error {
	host, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return host.ShowLeaderboard(ctx)
}

// EndSession finishes the quiz, broadcasts the winners and drops the session.
func (s *QuizService) EndSession(ctx context.Context, sessionID string) error {
	host, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if err := host.End(ctx); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

// JoinGuest builds a guest machine bound to the session's channel, with the
// host as its report sink, and connects it.
func (s *QuizService) JoinGuest(ctx context.Context, sessionID, partyID, partyName string, hasGamesBonus bool) (*Guest, error) {
	host, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	guest := NewGuest(sessionID, partyID, partyName, hasGamesBonus, s.broker, host, s.clock, s.logger)
	if err := guest.Connect(ctx); err != nil {
		return nil, err
	}
	return guest, nil
}
