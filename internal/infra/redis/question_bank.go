package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches question banks from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, subject, difficulty string) (domain.QuestionBank, error)
}

// QuestionRepository caches whole banks as JSON in Redis and falls back
// to the loader on cache miss. Banks are stored as:
// SET questions:{subject}:{difficulty} {bank JSON} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, subject, difficulty string, count int) ([]domain.Question, error) {
	bank, err := r.getBank(ctx, subject, difficulty)
	if err != nil {
		return nil, err
	}
	return bank.Take(count)
}

func (r *QuestionRepository) getBank(ctx context.Context, subject, difficulty string) (domain.QuestionBank, error) {
	key := r.bankKey(subject, difficulty)

	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var bank domain.QuestionBank
		if err := json.Unmarshal([]byte(raw), &bank); err == nil {
			return bank, nil
		}
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Result(); err == nil {
			var bank domain.QuestionBank
			if err := json.Unmarshal([]byte(raw), &bank); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, subject, difficulty)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		if data, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *QuestionRepository) bankKey(subject, difficulty string) string {
	return "questions:" + subject + ":" + difficulty
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
