package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies one message of the broadcast vocabulary.
type EventType string

const (
	EventStarted           EventType = "quiz:started"
	EventQuestion          EventType = "quiz:question"
	EventReveal            EventType = "quiz:reveal"
	EventLeaderboard       EventType = "quiz:leaderboard"
	EventEnded             EventType = "quiz:ended"
	EventParticipantJoined EventType = "quiz:participant_joined"
	EventAnswerCount       EventType = "quiz:answer_count"
)

// Event is the wire envelope carried on a session topic. The payload is kept
// raw so relays never need to understand individual message shapes.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
}

// StartedPayload announces a session opening for participants.
type StartedPayload struct {
	SessionID      string `json:"sessionId"`
	TotalQuestions int    `json:"totalQuestions"`
}

// QuestionPayload carries the active question. The correct option is withheld
// until the matching reveal.
type QuestionPayload struct {
	Index            int       `json:"index"`
	QuestionID       string    `json:"questionId"`
	Question         string    `json:"question"`
	Options          Options   `json:"options"`
	StartedAt        time.Time `json:"startedAt"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	ImageURL         string    `json:"imageUrl,omitempty"`
}

// RevealPayload exposes the correct answer and aggregate stats after the window closes.
type RevealPayload struct {
	QuestionID    string      `json:"questionId"`
	Question      string      `json:"question"`
	Index         int         `json:"index"`
	Options       Options     `json:"options"`
	CorrectAnswer OptionLabel `json:"correctAnswer"`
	Stats         AnswerStats `json:"stats"`
}

// LeaderboardPayload carries the host-computed rankings; guests display it as given.
type LeaderboardPayload struct {
	Rankings []RankingEntry `json:"rankings"`
}

// EndedPayload closes the session with the final winners.
type EndedPayload struct {
	Winners           []RankingEntry `json:"winners"`
	TotalParticipants int            `json:"totalParticipants"`
}

// ParticipantJoinedPayload updates the live participant counter.
type ParticipantJoinedPayload struct {
	ParticipantCount int    `json:"participantCount"`
	PartyName        string `json:"partyName"`
}

// AnswerCountPayload reports how many answers the host has collected so far.
type AnswerCountPayload struct {
	QuestionID  string `json:"questionId"`
	AnswerCount int    `json:"answerCount"`
}

// NewEvent wraps a payload into an envelope, assigning an event ID.
func NewEvent(sessionID string, typ EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: sessionID,
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the envelope payload into dst.
func DecodePayload(ev Event, dst any) error {
	if err := json.Unmarshal(ev.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.Type, err)
	}
	return nil
}
