package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"
	"tubequiz/internal/textmatch"

	"go.uber.org/zap"
)

// TranscriptService acquires a transcript from the primary provider with retries,
// falling back to the secondary provider once.
type TranscriptService struct {
	primary        domain.TranscriptProvider
	secondary      domain.TranscriptProvider
	maxAttempts    int
	initialBackoff time.Duration
	sleep          sleepFunc
}

// NewTranscriptService creates a new instance of TranscriptService.
func NewTranscriptService(primary, secondary domain.TranscriptProvider, cfg config.TranscriptConfig) *TranscriptService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &TranscriptService{
		primary:        primary,
		secondary:      secondary,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		sleep:          sleepContext,
	}
}

var _ domain.TranscriptSource = (*TranscriptService)(nil)

// Acquire returns the normalized transcript of videoID. When neither provider
// yields text it fails with TRANSCRIPT_UNAVAILABLE carrying both causes.
// Context cancellation is returned unwrapped.
func (s *TranscriptService) Acquire(ctx context.Context, videoID string) (*domain.Transcript, error) {
	transcript, primaryErr := s.fromPrimary(ctx, videoID)
	if primaryErr == nil {
		return transcript, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	logger.Get().Warn("TranscriptService: primary provider failed, trying secondary",
		zap.String("videoID", videoID), zap.Error(primaryErr))

	transcript, secondaryErr := s.fromProvider(ctx, s.secondary, videoID)
	if secondaryErr == nil {
		return transcript, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	logger.Get().Warn("TranscriptService: no provider produced a transcript",
		zap.String("videoID", videoID), zap.Error(secondaryErr))
	return nil, domain.NewTranscriptUnavailableError(videoID, http.StatusNotFound, errors.Join(primaryErr, secondaryErr))
}

func (s *TranscriptService) fromPrimary(ctx context.Context, videoID string) (*domain.Transcript, error) {
	for attempt := 1; ; attempt++ {
		fragments, err := s.primary.FetchCaptions(ctx, videoID)
		if err == nil {
			return normalizeTranscript(videoID, s.primary.Name(), fragments)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !isRetryable(err) || attempt >= s.maxAttempts {
			return nil, fmt.Errorf("%s provider failed after %d attempt(s): %w", s.primary.Name(), attempt, err)
		}

		delay := retryDelay(err, s.initialBackoff, attempt)
		logger.Get().Info("TranscriptService: retrying primary provider",
			zap.String("videoID", videoID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (s *TranscriptService) fromProvider(ctx context.Context, provider domain.TranscriptProvider, videoID string) (*domain.Transcript, error) {
	fragments, err := provider.FetchCaptions(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%s provider failed: %w", provider.Name(), err)
	}
	return normalizeTranscript(videoID, provider.Name(), fragments)
}

// isRetryable treats provider-classified statuses by their own verdict and any
// transport failure as transient.
func isRetryable(err error) bool {
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func retryDelay(err error, base time.Duration, attempt int) time.Duration {
	var hinted interface{ RetryDelay() time.Duration }
	if errors.As(err, &hinted) {
		if d := hinted.RetryDelay(); d > 0 {
			return d
		}
	}
	return backoff(base, attempt)
}

var errEmptyTranscript = errors.New("transcript is empty")

// normalizeTranscript joins trimmed fragments into plain text and a "[m:ss]"
// rendering. The rendering is kept only when it adds timing information.
func normalizeTranscript(videoID, source string, fragments []domain.CaptionFragment) (*domain.Transcript, error) {
	plain := make([]string, 0, len(fragments))
	timed := make([]string, 0, len(fragments))
	segments := make([]domain.TranscriptSegment, 0, len(fragments))

	for _, f := range fragments {
		text := strings.Join(strings.Fields(f.Text), " ")
		if text == "" {
			continue
		}
		plain = append(plain, text)
		if f.StartSeconds == nil {
			timed = append(timed, text)
			continue
		}
		start := int(*f.StartSeconds)
		if start < 0 {
			start = 0
		}
		timed = append(timed, textmatch.FormatTimestamp(start)+" "+text)
		segments = append(segments, domain.TranscriptSegment{StartSeconds: start, Text: text})
	}

	if len(plain) == 0 {
		return nil, fmt.Errorf("%s provider: %w", source, errEmptyTranscript)
	}

	t := &domain.Transcript{
		VideoID:   videoID,
		PlainText: strings.Join(plain, " "),
		Segments:  segments,
		Source:    source,
	}
	if timedText := strings.Join(timed, " "); timedText != t.PlainText {
		t.TimestampedText = timedText
	}
	return t, nil
}
