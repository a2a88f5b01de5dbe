package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tubequiz/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReviewPublisher_PublishSubmission(t *testing.T) {
	db, mock := redismock.NewClientMock()
	publisher := NewRedisReviewPublisher(db, "reviews")

	submission := &domain.Submission{
		VideoID: "abc123",
		Result: domain.GradedResult{
			ScorePercent: 50, CorrectCount: 1, TotalQuestions: 2,
			WeakConcepts: []string{"queues"},
		},
		Schedule: []domain.SpacingEntry{{
			Concept: "queues", IntervalDays: 1,
			NextReviewDate: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		}},
	}
	payload, err := json.Marshal(submission)
	require.NoError(t, err)

	mock.ExpectPublish("reviews", string(payload)).SetVal(1)
	assert.NoError(t, publisher.PublishSubmission(context.Background(), submission))

	mock.ExpectPublish("reviews", string(payload)).SetErr(errors.New("no route"))
	err = publisher.PublishSubmission(context.Background(), submission)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reviews")

	assert.NoError(t, mock.ExpectationsWereMet())
}
