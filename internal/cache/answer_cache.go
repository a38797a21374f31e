package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sopbot/internal/model"
)

const answerKeyPrefix = "qa:answer:"

// AnswerCache maps normalized question text to serialized answers. Every
// Redis failure is absorbed as a miss or no-op: cache availability must never
// fail a request.
type AnswerCache struct {
	client *redisv9.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAnswerCache(client *redisv9.Client, ttl time.Duration, logger *zap.Logger) *AnswerCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key normalizes the question into its cache key. Identity and role are
// deliberately excluded: identical questions share one entry.
func Key(question string) string {
	return answerKeyPrefix + strings.ToLower(strings.TrimSpace(question))
}

func (c *AnswerCache) Get(ctx context.Context, question string) (*model.Answer, bool) {
	raw, err := c.client.Get(ctx, Key(question)).Result()
	if err == redisv9.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("answer cache read failed, treating as miss", zap.Error(err))
		return nil, false
	}

	var answer model.Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		c.logger.Warn("answer cache entry corrupt, treating as miss", zap.Error(err))
		return nil, false
	}
	return &answer, true
}

func (c *AnswerCache) Set(ctx context.Context, question string, answer *model.Answer) {
	payload, err := json.Marshal(answer)
	if err != nil {
		c.logger.Warn("answer cache encode failed, skipping write", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, Key(question), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("answer cache write failed, skipping", zap.Error(err))
	}
}

// FlushAll drops the whole cache database. Used by /cache/clear and after
// knowledge mutations so no cached answer outlives a retraction.
func (c *AnswerCache) FlushAll(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}
