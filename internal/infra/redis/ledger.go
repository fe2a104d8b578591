package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Ledger is the Redis-backed progress/reward ledger. Per-user totals
// live in a hash and badges in a set:
//
//	HINCRBY rewards:{userID} points|experience {amount}
//	SADD    rewards:{userID}:badges {badgeID}
type Ledger struct {
	client *redis.Client
}

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func (l *Ledger) AddPoints(ctx context.Context, userID string, amount int) error {
	return l.client.HIncrBy(ctx, l.rewardsKey(userID), "points", int64(amount)).Err()
}

func (l *Ledger) AddExperience(ctx context.Context, userID string, amount int) error {
	return l.client.HIncrBy(ctx, l.rewardsKey(userID), "experience", int64(amount)).Err()
}

func (l *Ledger) AwardBadge(ctx context.Context, userID, badgeID string) error {
	return l.client.SAdd(ctx, l.badgesKey(userID), badgeID).Err()
}

func (l *Ledger) rewardsKey(userID string) string {
	return "rewards:" + userID
}

func (l *Ledger) badgesKey(userID string) string {
	return "rewards:" + userID + ":badges"
}
