package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

// DefaultOllamaURL is the local Ollama endpoint used when no server URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// NewModel builds the langchaingo client for the configured provider. It is
// called once at startup and the result shared by every pipeline stage.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case "ollama":
		serverURL := cfg.ServerURL
		if serverURL == "" {
			serverURL = DefaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithServerURL(serverURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Generator implements domain.TextGenerator on top of a langchaingo model.
type Generator struct {
	model       llms.Model
	modelName   string
	temperature float64
}

func NewGenerator(model llms.Model, modelName string, temperature float64) *Generator {
	return &Generator{model: model, modelName: modelName, temperature: temperature}
}

var _ domain.TextGenerator = (*Generator)(nil)

// Generate sends prompt as a single human turn. Throttling errors wrap
// domain.ErrRateLimited.
func (g *Generator) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	l := logger.Get()

	resp, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			l.Error("LLM request timed out", zap.Error(err))
			return nil, fmt.Errorf("LLM request timed out: %w", err)
		}
		if IsRateLimit(err) {
			l.Warn("LLM request rate limited", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		l.Error("Failed to get response from LLM", zap.Error(err))
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("LLM returned no choices")
	}

	choice := resp.Choices[0]
	gen := &domain.Generation{Text: choice.Content, Model: g.modelName}
	gen.PromptTokens = intInfo(choice.GenerationInfo, "PromptTokens", "prompt_tokens")
	gen.CompletionTokens = intInfo(choice.GenerationInfo, "CompletionTokens", "completion_tokens")
	return gen, nil
}

var statusCodeText = regexp.MustCompile(`status code:? (\d{3})\b`)

var rateLimitPhrases = []string{"rate limit", "ratelimit", "too many requests", "resource_exhausted", "exceeded your current quota"}

// IsRateLimit recognizes throttling. A status code carried by the error chain
// decides first; text matching is the fallback for providers that only
// report it in the message.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	if code, ok := statusCode(err); ok {
		return code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeText.FindStringSubmatch(msg); m != nil {
		return m[1] == "429"
	}
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// statusCode walks the error chain for an HTTPStatusCode method or an
// exported integer StatusCode field, as ollama's client error carries.
func statusCode(err error) (int, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if h, ok := e.(interface{ HTTPStatusCode() int }); ok {
			return h.HTTPStatusCode(), true
		}
		v := reflect.ValueOf(e)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			continue
		}
		if f := v.FieldByName("StatusCode"); f.IsValid() && f.CanInt() && f.Int() > 0 {
			return int(f.Int()), true
		}
	}
	return 0, false
}

func intInfo(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
