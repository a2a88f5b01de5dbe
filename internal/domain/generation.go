package domain

import (
	"context"
	"time"
)

// Generation is a single text-generation response.
type Generation struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// TextGenerator is a single-turn prompt/response text-generation service.
// Its output is untrusted: no schema is enforced by the service.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (*Generation, error)
}

// Pipeline stages reported in usage events.
const (
	StageSynthesize = "synthesize"
	StageGrade      = "grade"
)

// UsageEvent describes one stage's use of the text-generation service.
type UsageEvent struct {
	Stage            string
	VideoID          string
	Model            string
	Attempts         int
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Degraded         bool
	Err              error
}

// UsageCollector receives usage events. Implementations must not block the pipeline.
type UsageCollector interface {
	RecordUsage(ctx context.Context, event UsageEvent)
}

// ReviewPublisher hands a graded submission to the external concept-mastery
// store and review-notification scheduler.
type ReviewPublisher interface {
	PublishSubmission(ctx context.Context, submission *Submission) error
}
