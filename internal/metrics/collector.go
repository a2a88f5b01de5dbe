// Package metrics implements domain.UsageCollector sinks for text-generation usage.
package metrics

import (
	"context"
	"time"

	"tubequiz/internal/cache"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NopCollector discards every event.
type NopCollector struct{}

func (NopCollector) RecordUsage(context.Context, domain.UsageEvent) {}

// LogCollector writes each event as a structured log line.
type LogCollector struct{}

func NewLogCollector() *LogCollector {
	return &LogCollector{}
}

func (c *LogCollector) RecordUsage(_ context.Context, event domain.UsageEvent) {
	fields := []zap.Field{
		zap.String("stage", event.Stage),
		zap.String("videoID", event.VideoID),
		zap.String("model", event.Model),
		zap.Int("attempts", event.Attempts),
		zap.Int("promptTokens", event.PromptTokens),
		zap.Int("completionTokens", event.CompletionTokens),
		zap.Duration("duration", event.Duration),
		zap.Bool("degraded", event.Degraded),
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	logger.Get().Info("Text generation usage", fields...)
}

const (
	usageKeyTTL     = 30 * 24 * time.Hour
	usageWriteLimit = 500 * time.Millisecond
)

// RedisCollector keeps daily per-stage counters in a Redis hash.
type RedisCollector struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisCollector(client *redis.Client) *RedisCollector {
	return &RedisCollector{client: client, ttl: usageKeyTTL, now: time.Now}
}

// RecordUsage increments the counters of the event's stage for the current UTC day.
// Write failures are logged and dropped.
func (c *RedisCollector) RecordUsage(ctx context.Context, event domain.UsageEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), usageWriteLimit)
	defer cancel()

	key := cache.UsageKey(event.Stage, c.now().UTC().Format("2006-01-02"))
	counters := []struct {
		field string
		incr  int64
	}{
		{"calls", 1},
		{"attempts", int64(event.Attempts)},
		{"prompt_tokens", int64(event.PromptTokens)},
		{"completion_tokens", int64(event.CompletionTokens)},
	}
	if event.Degraded {
		counters = append(counters, struct {
			field string
			incr  int64
		}{"degraded", 1})
	}
	if event.Err != nil {
		counters = append(counters, struct {
			field string
			incr  int64
		}{"errors", 1})
	}

	for _, counter := range counters {
		if err := c.client.HIncrBy(ctx, key, counter.field, counter.incr).Err(); err != nil {
			logger.Get().Warn("RedisCollector: failed to record usage",
				zap.Error(err), zap.String("key", key), zap.String("field", counter.field))
			return
		}
	}
	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		logger.Get().Warn("RedisCollector: failed to set usage key expiry", zap.Error(err), zap.String("key", key))
	}
}

var (
	_ domain.UsageCollector = NopCollector{}
	_ domain.UsageCollector = (*LogCollector)(nil)
	_ domain.UsageCollector = (*RedisCollector)(nil)
)
