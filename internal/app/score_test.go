package app_test

import (
	"testing"

	"wedding-quiz-service/internal/app"
)

func TestIncorrectAnswersScoreZero(t *testing.T) {
	samples := []struct{ taken, limit int64 }{
		{0, 10000},
		{5000, 10000},
		{20000, 10000},
		{0, 0},
		{-100, 10000},
	}
	for _, s := range samples {
		if got := app.CalculatePoints(false, s.taken, s.limit); got != 0 {
			t.Fatalf("expected 0 for incorrect (taken=%d limit=%d), got %d", s.taken, s.limit, got)
		}
	}
}

func TestInstantCorrectAnswerGetsFullBonus(t *testing.T) {
	if got := app.CalculatePoints(true, 0, 10000); got != 150 {
		t.Fatalf("expected 150 for instant answer, got %d", got)
	}
}

func TestLateCorrectAnswerKeepsBase(t *testing.T) {
	for _, taken := range []int64{10000, 15000, 1 << 40} {
		if got := app.CalculatePoints(true, taken, 10000); got != 100 {
			t.Fatalf("expected base 100 for taken=%d, got %d", taken, got)
		}
	}
}

func TestMidWindowBonusRounds(t *testing.T) {
	// 3s of 10s leaves 70% of the bonus: 100 + round(50*0.7) = 135.
	if got := app.CalculatePoints(true, 3000, 10000); got != 135 {
		t.Fatalf("expected 135, got %d", got)
	}
	// 1s of 3s leaves 2/3: round(50*0.6667) = 33.
	if got := app.CalculatePoints(true, 1000, 3000); got != 133 {
		t.Fatalf("expected 133, got %d", got)
	}
}

func TestZeroLimitYieldsBaseOnly(t *testing.T) {
	if got := app.CalculatePoints(true, 500, 0); got != 100 {
		t.Fatalf("expected base-only 100 with zero limit, got %d", got)
	}
	if got := app.CalculatePoints(true, 500, -1); got != 100 {
		t.Fatalf("expected base-only 100 with negative limit, got %d", got)
	}
}

func TestBreakdownSumsToTotal(t *testing.T) {
	samples := []struct {
		correct      bool
		taken, limit int64
	}{
		{true, 0, 10000},
		{true, 2500, 10000},
		{true, 9999, 10000},
		{true, 12000, 10000},
		{true, 100, 0},
		{false, 3000, 10000},
	}
	for _, s := range samples {
		b := app.GetPointsBreakdown(s.correct, s.taken, s.limit)
		if b.Base+b.TimeBonus != b.Total {
			t.Fatalf("breakdown mismatch %+v for %+v", b, s)
		}
		if b.Total != app.CalculatePoints(s.correct, s.taken, s.limit) {
			t.Fatalf("breakdown total disagrees with CalculatePoints for %+v", s)
		}
	}
}
