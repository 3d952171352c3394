package app

import (
	"context"

	"wedding-quiz-service/internal/domain"
)

// Reports travel out-of-band from guests to the host: the broadcast channel
// carries host-to-everyone facts only. Keeping the aggregation boundary behind
// one interface lets a deployment swap the in-process host for a remote
// collector without touching the guest machine.

// JoinReport announces a guest identity to the host.
type JoinReport struct {
	SessionID     string `json:"sessionId"`
	PartyID       string `json:"partyId"`
	PartyName     string `json:"partyName"`
	HasGamesBonus bool   `json:"hasGamesBonus"`
}

// AnswerReport is sent at submission time and feeds answer counts and reveal stats.
type AnswerReport struct {
	SessionID   string             `json:"sessionId"`
	PartyID     string             `json:"partyId"`
	QuestionID  string             `json:"questionId"`
	Option      domain.OptionLabel `json:"option"`
	TimeTakenMs int64              `json:"timeTakenMs"`
}

// ScoreReport carries the guest's locally computed result back for ranking.
type ScoreReport struct {
	SessionID  string `json:"sessionId"`
	PartyID    string `json:"partyId"`
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
}

// Reporter is the guest-to-host reporting contract.
type Reporter interface {
	ReportJoin(ctx context.Context, report JoinReport) error
	ReportAnswer(ctx context.Context, report AnswerReport) error
	ReportScore(ctx context.Context, report ScoreReport) error
}
