package domain

import "time"

// SessionStatus tracks the host-side lifecycle of one quiz run.
type SessionStatus string

const (
	StatusWaiting       SessionStatus = "waiting"
	StatusActive        SessionStatus = "active"
	StatusShowingAnswer SessionStatus = "showing_answer"
	StatusCompleted     SessionStatus = "completed"
)

// OptionLabel is one of the four fixed answer slots.
type OptionLabel string

const (
	OptionA OptionLabel = "A"
	OptionB OptionLabel = "B"
	OptionC OptionLabel = "C"
	OptionD OptionLabel = "D"
)

// Valid reports whether the label is one of A-D.
func (l OptionLabel) Valid() bool {
	switch l {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Options holds the four labeled answer texts for a question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Question models one multiple-choice question. Immutable once loaded into a session.
type Question struct {
	ID               string      `json:"id"`
	Prompt           string      `json:"prompt"`
	Options          Options     `json:"options"`
	CorrectOption    OptionLabel `json:"correctOption"`
	ImageURL         string      `json:"imageUrl,omitempty"`
	DisplayOrder     int         `json:"displayOrder"`
	TimeLimitSeconds int         `json:"timeLimitSeconds"`
}

// QuestionSet is the ordered question bank for one session.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Participant is a guest identity tracked for scoring within a session.
// LastScoredAt records when the current total was reached and feeds ranking tie-breaks.
type Participant struct {
	PartyID        string
	PartyName      string
	TotalScore     int
	CorrectAnswers int
	HasGamesBonus  bool
	LastScoredAt   time.Time
}

// AnswerRecord is created once per participant per question and never mutated.
type AnswerRecord struct {
	PartyID     string      `json:"partyId"`
	QuestionID  string      `json:"questionId"`
	Option      OptionLabel `json:"option"`
	SubmittedAt time.Time   `json:"submittedAt"`
	TimeTakenMs int64       `json:"timeTakenMs"`
	Correct     bool        `json:"correct"`
	Points      int         `json:"points"`
}

// RankingEntry is a derived leaderboard row; it is computed on demand, never stored.
type RankingEntry struct {
	PartyID        string `json:"partyId"`
	PartyName      string `json:"partyName"`
	TotalScore     int    `json:"totalScore"`
	CorrectAnswers int    `json:"correctAnswers"`
	HasGamesBonus  bool   `json:"hasGamesBonus"`
	Rank           int    `json:"rank"`
}

// AnswerStats aggregates per-question submissions for the reveal broadcast.
type AnswerStats struct {
	Total         int   `json:"total"`
	A             int   `json:"A"`
	B             int   `json:"B"`
	C             int   `json:"C"`
	D             int   `json:"D"`
	CorrectCount  int   `json:"correctCount"`
	AverageTimeMs int64 `json:"averageTimeMs"`
}
