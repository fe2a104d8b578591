package app

import (
	"context"

	"quiz-battle-service/internal/domain"
	"quiz-battle-service/pkg/logger"
)

const (
	participationXP = 10
	correctAnswerXP = 5

	// BadgeChampion goes to first place, BadgePerfectGame to anyone who
	// answered every round correctly.
	BadgeChampion    = "quiz-champion"
	BadgePerfectGame = "perfect-game"
)

// RewardDispatcher turns a final ranking into ledger deposits. Deposit
// failures are logged and skipped; they never surface to the game.
type RewardDispatcher struct {
	ledger RewardLedger
}

func NewRewardDispatcher(ledger RewardLedger) *RewardDispatcher {
	return &RewardDispatcher{ledger: ledger}
}

// Dispatch deposits points, experience, and badges for every
// participant in final-ranking order.
func (d *RewardDispatcher) Dispatch(ctx context.Context, sessionID string, final []domain.RankEntry, totalRounds int) {
	for _, entry := range final {
		xp := entry.CorrectAnswers*correctAnswerXP + placementBonus(entry.Rank) + participationXP

		if err := d.ledger.AddPoints(ctx, entry.UserID, entry.Score); err != nil {
			logger.Error("reward points deposit failed", "sessionId", sessionID, "userId", entry.UserID, "error", err)
		}
		if err := d.ledger.AddExperience(ctx, entry.UserID, xp); err != nil {
			logger.Error("reward experience deposit failed", "sessionId", sessionID, "userId", entry.UserID, "error", err)
		}
		if entry.Rank == 1 {
			if err := d.ledger.AwardBadge(ctx, entry.UserID, BadgeChampion); err != nil {
				logger.Error("badge deposit failed", "sessionId", sessionID, "userId", entry.UserID, "badge", BadgeChampion, "error", err)
			}
		}
		if totalRounds > 0 && entry.CorrectAnswers == totalRounds {
			if err := d.ledger.AwardBadge(ctx, entry.UserID, BadgePerfectGame); err != nil {
				logger.Error("badge deposit failed", "sessionId", sessionID, "userId", entry.UserID, "badge", BadgePerfectGame, "error", err)
			}
		}
	}
}

func placementBonus(rank int) int {
	switch rank {
	case 1:
		return 20
	case 2:
		return 15
	case 3:
		return 10
	default:
		return 5
	}
}
