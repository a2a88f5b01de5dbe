package main

import (
	"context"
	"encoding/json"
	"fmt" // For initial error printing before logger is up
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tubequiz/internal/bootstrap"
	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"
	"tubequiz/internal/service"
	"tubequiz/internal/validation"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	videoIDs      []string
	outDir        string
	questionCount int
	difficulty    string
	weakConcepts  []string
}

func parseFlags(args []string) (*options, error) {
	fs := pflag.NewFlagSet("batch_generate", pflag.ContinueOnError)
	opts := &options{}
	fs.StringSliceVarP(&opts.videoIDs, "videos", "v", nil, "comma-separated video IDs")
	fs.StringVarP(&opts.outDir, "out", "o", "quizzes", "directory the quiz JSON files are written to")
	fs.IntVarP(&opts.questionCount, "count", "n", 0, "questions per quiz (3-15, 0 uses the configured default)")
	fs.StringVarP(&opts.difficulty, "difficulty", "d", string(domain.DifficultyIntermediate), "easy, intermediate or boss")
	fs.StringSliceVar(&opts.weakConcepts, "reinforce", nil, "concepts to interleave into every quiz")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	validator := validation.NewValidator()
	var videoIDs []string
	for _, id := range append(opts.videoIDs, fs.Args()...) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if errs := validator.ValidateVideoID("videos", id); len(errs) > 0 {
			return nil, fmt.Errorf("invalid video ID %q: %w", id, errs)
		}
		videoIDs = append(videoIDs, id)
	}
	if len(videoIDs) == 0 {
		return nil, fmt.Errorf("no video IDs given")
	}
	opts.videoIDs = videoIDs
	if _, ok := domain.ParseDifficulty(opts.difficulty); !ok {
		return nil, fmt.Errorf("unknown difficulty %q", opts.difficulty)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch_generate: %v\n", err)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		logger.Get().Fatal("Failed to initialize quiz pipeline", zap.Error(err))
	}
	defer components.Close()

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		logger.Get().Fatal("Failed to create output directory", zap.String("dir", opts.outDir), zap.Error(err))
	}

	logger.Get().Info("Batch generation starting", zap.Int("videos", len(opts.videoIDs)))
	failed := runBatch(ctx, components.QuizService, opts)
	if failed > 0 {
		logger.Get().Error("Batch generation finished with failures", zap.Int("failed", failed))
		os.Exit(1)
	}
	logger.Get().Info("Batch generation completed successfully.")
}

// runBatch generates one quiz per video sequentially and returns the failure count.
func runBatch(ctx context.Context, quizzes service.QuizService, opts *options) int {
	difficulty, _ := domain.ParseDifficulty(opts.difficulty)
	failed := 0
	for _, videoID := range opts.videoIDs {
		videoID = strings.TrimSpace(videoID)
		if videoID == "" {
			continue
		}
		if ctx.Err() != nil {
			logger.Get().Warn("Batch generation interrupted", zap.Error(ctx.Err()))
			return failed + 1
		}

		quiz, err := quizzes.Generate(ctx, service.GenerateRequest{
			VideoID:           videoID,
			QuestionCount:     opts.questionCount,
			Difficulty:        difficulty,
			PriorWeakConcepts: opts.weakConcepts,
		})
		if err != nil {
			failed++
			logger.Get().Error("Quiz generation failed", zap.String("videoID", videoID), zap.Error(err))
			continue
		}

		path, err := writeQuiz(opts.outDir, quiz)
		if err != nil {
			failed++
			logger.Get().Error("Failed to write quiz", zap.String("videoID", videoID), zap.Error(err))
			continue
		}
		logger.Get().Info("Quiz written", zap.String("videoID", videoID), zap.String("path", path),
			zap.Int("questions", len(quiz.Questions)))
	}
	return failed
}

func writeQuiz(dir string, quiz *domain.Quiz) (string, error) {
	data, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, quiz.VideoID+".json")
	return path, os.WriteFile(path, data, 0o644)
}
