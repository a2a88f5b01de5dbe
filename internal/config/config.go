package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	LLM        LLMConfig
	Transcript TranscriptConfig
	Quiz       QuizConfig
	Redis      RedisConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

// LLMConfig selects and configures the text-generation backend.
type LLMConfig struct {
	Provider    string // "ollama" or "openai"
	ServerURL   string // empty selects the provider's default endpoint
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

type TranscriptConfig struct {
	PrimaryBaseURL   string
	PrimaryAPIKey    string
	SecondaryBaseURL string
	Language         string
	HTTPTimeout      time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	CacheTTL         time.Duration
	FetchTimeout     time.Duration
}

// QuizConfig holds the generation and grading policy knobs.
type QuizConfig struct {
	DefaultQuestionCount  int
	MaxTranscriptChars    int
	OverlapThreshold      float64
	MaxGenerationAttempts int
	GenerationBackoff     time.Duration
}

type RedisConfig struct {
	Address       string
	Password      string
	DB            int
	ReviewChannel string
}

type MetricsConfig struct {
	Sink string // "log" or "redis"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "20s")
	v.SetDefault("server.write_timeout", "20s")
	v.SetDefault("server.request_timeout", "3m")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.env", "development")

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.server_url", "")
	v.SetDefault("llm.model", "qwen3:0.6b")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("transcript.primary_base_url", "https://api.supadata.ai/v1")
	v.SetDefault("transcript.secondary_base_url", "https://www.youtube.com")
	v.SetDefault("transcript.language", "en")
	v.SetDefault("transcript.http_timeout", "15s")
	v.SetDefault("transcript.max_attempts", 3)
	v.SetDefault("transcript.initial_backoff", "500ms")
	v.SetDefault("transcript.cache_ttl", "24h")
	v.SetDefault("transcript.fetch_timeout", "2m")

	v.SetDefault("quiz.default_question_count", 5)
	v.SetDefault("quiz.max_transcript_chars", 15000)
	v.SetDefault("quiz.overlap_threshold", 0.5)
	v.SetDefault("quiz.max_generation_attempts", 4)
	v.SetDefault("quiz.generation_backoff", "4s")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.review_channel", "tubequiz:reviews")

	v.SetDefault("metrics.sink", "log")
}

// LoadConfig reads config.yaml (optional) and the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Add config paths based on environment
	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	cfg := fromViper(v)

	// Well-known credentials are also honored under their conventional names
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("TRANSCRIPT_API_KEY"); key != "" {
		cfg.Transcript.PrimaryAPIKey = key
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		cfg.Redis.Address = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Logger: LoggerConfig{
			Level: v.GetString("logger.level"),
			Env:   v.GetString("logger.env"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			ServerURL:   v.GetString("llm.server_url"),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			Temperature: v.GetFloat64("llm.temperature"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Transcript: TranscriptConfig{
			PrimaryBaseURL:   v.GetString("transcript.primary_base_url"),
			PrimaryAPIKey:    v.GetString("transcript.primary_api_key"),
			SecondaryBaseURL: v.GetString("transcript.secondary_base_url"),
			Language:         v.GetString("transcript.language"),
			HTTPTimeout:      v.GetDuration("transcript.http_timeout"),
			MaxAttempts:      v.GetInt("transcript.max_attempts"),
			InitialBackoff:   v.GetDuration("transcript.initial_backoff"),
			CacheTTL:         v.GetDuration("transcript.cache_ttl"),
			FetchTimeout:     v.GetDuration("transcript.fetch_timeout"),
		},
		Quiz: QuizConfig{
			DefaultQuestionCount:  v.GetInt("quiz.default_question_count"),
			MaxTranscriptChars:    v.GetInt("quiz.max_transcript_chars"),
			OverlapThreshold:      v.GetFloat64("quiz.overlap_threshold"),
			MaxGenerationAttempts: v.GetInt("quiz.max_generation_attempts"),
			GenerationBackoff:     v.GetDuration("quiz.generation_backoff"),
		},
		Redis: RedisConfig{
			Address:       v.GetString("redis.address"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			ReviewChannel: v.GetString("redis.review_channel"),
		},
		Metrics: MetricsConfig{
			Sink: strings.ToLower(v.GetString("metrics.sink")),
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key (or OPENAI_API_KEY) is required for the openai provider")
	}
	if c.Transcript.MaxAttempts < 1 {
		return fmt.Errorf("transcript.max_attempts must be at least 1")
	}
	if c.Quiz.MaxGenerationAttempts < 1 {
		return fmt.Errorf("quiz.max_generation_attempts must be at least 1")
	}
	if c.Quiz.OverlapThreshold <= 0 || c.Quiz.OverlapThreshold > 1 {
		return fmt.Errorf("quiz.overlap_threshold must be in (0, 1]")
	}
	if c.Quiz.MaxTranscriptChars <= 0 {
		return fmt.Errorf("quiz.max_transcript_chars must be positive")
	}
	switch c.Metrics.Sink {
	case "log", "redis":
	default:
		return fmt.Errorf("unsupported metrics.sink %q", c.Metrics.Sink)
	}
	return nil
}
