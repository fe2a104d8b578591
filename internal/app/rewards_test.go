package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

func TestDispatchDepositsPerPlacement(t *testing.T) {
	ledger := memory.NewLedger()
	dispatcher := app.NewRewardDispatcher(ledger)

	final := []domain.RankEntry{
		{Rank: 1, UserID: "u1", Score: 90, CorrectAnswers: 3},
		{Rank: 2, UserID: "u2", Score: 60, CorrectAnswers: 2},
		{Rank: 3, UserID: "u3", Score: 30, CorrectAnswers: 1},
		{Rank: 4, UserID: "u4", Score: 0, CorrectAnswers: 0},
	}
	dispatcher.Dispatch(context.Background(), "sess-1", final, 3)

	// xp = correct*5 + placement bonus (20/15/10/5) + 10 participation.
	cases := []struct {
		userID     string
		points, xp int
	}{
		{"u1", 90, 45},
		{"u2", 60, 35},
		{"u3", 30, 25},
		{"u4", 0, 15},
	}
	for _, c := range cases {
		if got := ledger.Points(c.userID); got != c.points {
			t.Errorf("%s points = %d, want %d", c.userID, got, c.points)
		}
		if got := ledger.Experience(c.userID); got != c.xp {
			t.Errorf("%s experience = %d, want %d", c.userID, got, c.xp)
		}
	}

	if !ledger.HasBadge("u1", app.BadgeChampion) || !ledger.HasBadge("u1", app.BadgePerfectGame) {
		t.Fatalf("winner with a perfect game should hold both badges")
	}
	for _, id := range []string{"u2", "u3", "u4"} {
		if ledger.HasBadge(id, app.BadgeChampion) || ledger.HasBadge(id, app.BadgePerfectGame) {
			t.Fatalf("%s should hold no badges", id)
		}
	}
}

type failingLedger struct{}

func (failingLedger) AddPoints(context.Context, string, int) error {
	return errors.New("ledger down")
}
func (failingLedger) AddExperience(context.Context, string, int) error {
	return errors.New("ledger down")
}
func (failingLedger) AwardBadge(context.Context, string, string) error {
	return errors.New("ledger down")
}

func TestDispatchToleratesLedgerFailures(t *testing.T) {
	dispatcher := app.NewRewardDispatcher(failingLedger{})
	final := []domain.RankEntry{
		{Rank: 1, UserID: "u1", Score: 20, CorrectAnswers: 1},
		{Rank: 2, UserID: "u2", Score: 0, CorrectAnswers: 0},
	}
	// Failures are logged and skipped; Dispatch must not panic or stop early.
	dispatcher.Dispatch(context.Background(), "sess-1", final, 1)
}
