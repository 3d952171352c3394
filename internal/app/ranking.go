package app

import (
	"sort"

	"wedding-quiz-service/internal/domain"
)

// ComputeRankings orders participants into leaderboard entries. The tie-break
// chain is explicit: higher total score, then more correct answers, then
// whoever reached their score first, then party name for a stable last resort.
func ComputeRankings(participants []domain.Participant) []domain.RankingEntry {
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.CorrectAnswers != b.CorrectAnswers {
			return a.CorrectAnswers > b.CorrectAnswers
		}
		if !a.LastScoredAt.Equal(b.LastScoredAt) {
			return a.LastScoredAt.Before(b.LastScoredAt)
		}
		return a.PartyName < b.PartyName
	})

	entries := make([]domain.RankingEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = domain.RankingEntry{
			PartyID:        p.PartyID,
			PartyName:      p.PartyName,
			TotalScore:     p.TotalScore,
			CorrectAnswers: p.CorrectAnswers,
			HasGamesBonus:  p.HasGamesBonus,
			Rank:           i + 1,
		}
	}
	return entries
}
