package service

import (
	"context"
	"sync"
	"time"

	"tubequiz/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockTextGenerator ---
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Generation), args.Error(1)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockTranscriptSource ---
type MockTranscriptSource struct {
	mock.Mock
}

func (m *MockTranscriptSource) Acquire(ctx context.Context, videoID string) (*domain.Transcript, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transcript), args.Error(1)
}

// --- MockReviewPublisher ---
type MockReviewPublisher struct {
	mock.Mock
}

func (m *MockReviewPublisher) PublishSubmission(ctx context.Context, submission *domain.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

// fakeProvider replays canned responses, repeating the last one.
type fakeProvider struct {
	name      string
	responses []providerResponse
	calls     int
}

type providerResponse struct {
	fragments []domain.CaptionFragment
	err       error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchCaptions(ctx context.Context, videoID string) ([]domain.CaptionFragment, error) {
	r := f.responses[min(f.calls, len(f.responses)-1)]
	f.calls++
	return r.fragments, r.err
}

// usageRecorder keeps every usage event.
type usageRecorder struct {
	mu     sync.Mutex
	events []domain.UsageEvent
}

func (r *usageRecorder) RecordUsage(_ context.Context, event domain.UsageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func seconds(v float64) *float64 { return &v }

func fragments(texts ...string) []domain.CaptionFragment {
	out := make([]domain.CaptionFragment, 0, len(texts))
	for i, t := range texts {
		out = append(out, domain.CaptionFragment{Text: t, StartSeconds: seconds(float64(i * 5))})
	}
	return out
}
