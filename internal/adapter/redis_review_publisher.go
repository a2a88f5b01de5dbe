package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"tubequiz/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisReviewPublisher hands graded submissions to downstream consumers (the
// concept-mastery store and the review-notification scheduler) over Redis pub/sub.
type RedisReviewPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisReviewPublisher(client *redis.Client, channel string) *RedisReviewPublisher {
	return &RedisReviewPublisher{client: client, channel: channel}
}

var _ domain.ReviewPublisher = (*RedisReviewPublisher)(nil)

func (p *RedisReviewPublisher) PublishSubmission(ctx context.Context, submission *domain.Submission) error {
	data, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish submission to %s: %w", p.channel, err)
	}
	return nil
}
