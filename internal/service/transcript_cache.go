package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tubequiz/internal/cache"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SourceCache marks a transcript served from the cache.
const SourceCache = "cache"

// DefaultFetchTimeout bounds a shared upstream acquisition when none is configured.
const DefaultFetchTimeout = 2 * time.Minute

// CachedTranscriptSource stores successful acquisitions and collapses concurrent
// misses for the same video into one upstream call.
type CachedTranscriptSource struct {
	next     domain.TranscriptSource
	cache    domain.Cache
	ttl          time.Duration
	language     string
	fetchTimeout time.Duration
	group        singleflight.Group
}

// NewCachedTranscriptSource wraps next. A nil cache disables caching. The
// upstream fetch shared by concurrent callers is bounded by fetchTimeout rather
// than by any one caller's context.
func NewCachedTranscriptSource(next domain.TranscriptSource, c domain.Cache, ttl, fetchTimeout time.Duration, language string) *CachedTranscriptSource {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &CachedTranscriptSource{next: next, cache: c, ttl: ttl, language: language, fetchTimeout: fetchTimeout}
}

var _ domain.TranscriptSource = (*CachedTranscriptSource)(nil)

func (s *CachedTranscriptSource) Acquire(ctx context.Context, videoID string) (*domain.Transcript, error) {
	if s.cache == nil {
		return s.next.Acquire(ctx, videoID)
	}

	key := cache.TranscriptKey(videoID, s.language)
	if cached := s.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		t, err := s.next.Acquire(fetchCtx, videoID)
		if err != nil {
			return nil, err
		}
		s.store(fetchCtx, key, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Get().Debug("CachedTranscriptSource: shared in-flight acquisition", zap.String("videoID", videoID))
		}
		return res.Val.(*domain.Transcript), nil
	}
}

func (s *CachedTranscriptSource) lookup(ctx context.Context, key string) *domain.Transcript {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("CachedTranscriptSource: cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}

	var t domain.Transcript
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.PlainText == "" {
		logger.Get().Warn("CachedTranscriptSource: discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	t.Source = SourceCache
	return &t
}

func (s *CachedTranscriptSource) store(ctx context.Context, key string, t *domain.Transcript) {
	data, err := json.Marshal(t)
	if err != nil {
		logger.Get().Warn("CachedTranscriptSource: failed to marshal transcript", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		logger.Get().Warn("CachedTranscriptSource: cache set failed", zap.String("key", key), zap.Error(err))
	}
}
