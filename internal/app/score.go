package app

import "math"

// Scoring constants. The games bonus is an external fact (completion of the
// photo-game track) applied at most once per participant, never per question.
const (
	BasePoints       = 100
	MaxTimeBonus     = 50
	GamesBonusPoints = 200
)

// PointsBreakdown decomposes an award for UI display.
// Base + TimeBonus always equals Total.
type PointsBreakdown struct {
	Base      int `json:"base"`
	TimeBonus int `json:"timeBonus"`
	Total     int `json:"total"`
}

// CalculatePoints awards points for a single answer. Incorrect answers score
// zero unconditionally. Correct answers earn the base plus a speed bonus that
// decays linearly over the question window; answers at or past the limit keep
// the base. A non-positive limit contributes no bonus rather than dividing by zero.
func CalculatePoints(correct bool, timeTakenMs, timeLimitMs int64) int {
	return GetPointsBreakdown(correct, timeTakenMs, timeLimitMs).Total
}

// GetPointsBreakdown is the decomposed variant of CalculatePoints.
func GetPointsBreakdown(correct bool, timeTakenMs, timeLimitMs int64) PointsBreakdown {
	if !correct {
		return PointsBreakdown{}
	}
	ratio := 0.0
	if timeLimitMs > 0 {
		ratio = 1 - float64(timeTakenMs)/float64(timeLimitMs)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
	}
	bonus := int(math.Round(MaxTimeBonus * ratio))
	return PointsBreakdown{
		Base:      BasePoints,
		TimeBonus: bonus,
		Total:     BasePoints + bonus,
	}
}
