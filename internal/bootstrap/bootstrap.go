// Package bootstrap wires the quiz pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tubequiz/internal/adapter"
	"tubequiz/internal/adapter/llm"
	"tubequiz/internal/adapter/transcript"
	"tubequiz/internal/cache"
	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"
	"tubequiz/internal/metrics"
	"tubequiz/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Components are the long-lived objects shared by the entrypoints.
type Components struct {
	QuizService service.QuizService
	Cache       domain.Cache // nil when Redis is not configured

	redisClient *redis.Client
}

// Close releases the Redis connection, if any.
func (c *Components) Close() error {
	if c.redisClient == nil {
		return nil
	}
	return c.redisClient.Close()
}

// Build creates the text-generation client, the transcript providers and the
// Redis-backed adapters, and assembles the QuizService.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	log := logger.Get()
	components := &Components{}

	// Redis is optional; without it transcripts are not cached and submissions are not handed off.
	var publisher domain.ReviewPublisher
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		components.redisClient = redisClient
		components.Cache = adapter.NewRedisCacheAdapter(redisClient)
		publisher = adapter.NewRedisReviewPublisher(redisClient, cfg.Redis.ReviewChannel)
		log.Info("Redis initialized", zap.String("address", cfg.Redis.Address))
	} else {
		log.Warn("Redis is not configured. Running without transcript cache and review handoff.")
	}

	usage := newUsageCollector(cfg.Metrics, components.redisClient)

	model, err := llm.NewModel(cfg.LLM)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("create text generation client: %w", err)
	}
	generator := llm.NewGenerator(model, cfg.LLM.Model, cfg.LLM.Temperature)
	log.Info("Text generation client initialized",
		zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))

	httpClient := &http.Client{Timeout: cfg.Transcript.HTTPTimeout}
	primary := transcript.NewPrimaryProvider(cfg.Transcript.PrimaryBaseURL, cfg.Transcript.PrimaryAPIKey, cfg.Transcript.Language, httpClient)
	secondary := transcript.NewSecondaryProvider(cfg.Transcript.SecondaryBaseURL, cfg.Transcript.Language, httpClient)
	if cfg.Transcript.PrimaryAPIKey == "" {
		log.Warn("Primary transcript provider has no API key; only the secondary provider will be used.")
	}

	var source domain.TranscriptSource = service.NewTranscriptService(primary, secondary, cfg.Transcript)
	if components.Cache != nil {
		source = service.NewCachedTranscriptSource(source, components.Cache, cfg.Transcript.CacheTTL, cfg.Transcript.FetchTimeout, cfg.Transcript.Language)
	}

	components.QuizService = service.NewQuizService(
		source,
		service.NewQuizSynthesizer(generator, usage, cfg.Quiz),
		service.NewAnswerGrader(generator, usage),
		service.NewScheduler(time.Now),
		publisher,
	)
	return components, nil
}

func newUsageCollector(cfg config.MetricsConfig, redisClient *redis.Client) domain.UsageCollector {
	if cfg.Sink == "redis" {
		if redisClient != nil {
			return metrics.NewRedisCollector(redisClient)
		}
		logger.Get().Warn("metrics.sink is redis but Redis is not configured; logging usage instead")
	}
	return metrics.NewLogCollector()
}
