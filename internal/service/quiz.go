package service

import (
	"context"
	"fmt"

	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

// GenerateRequest asks for a quiz about one video.
type GenerateRequest struct {
	VideoID           string
	Title             string
	QuestionCount     int
	Difficulty        domain.Difficulty
	PriorWeakConcepts []string
}

// QuizService defines the interface for quiz pipeline operations
type QuizService interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.Quiz, error)
	Submit(ctx context.Context, videoID string, quiz *domain.Quiz, answers []domain.UserAnswer) (*domain.Submission, error)
	Transcript(ctx context.Context, videoID string) (*domain.Transcript, error)
}

// quizService implements QuizService
type quizService struct {
	transcripts domain.TranscriptSource
	synthesizer *QuizSynthesizer
	grader      *AnswerGrader
	scheduler   *Scheduler
	publisher   domain.ReviewPublisher
}

// NewQuizService creates a new instance of quizService. publisher may be nil.
func NewQuizService(
	transcripts domain.TranscriptSource,
	synthesizer *QuizSynthesizer,
	grader *AnswerGrader,
	scheduler *Scheduler,
	publisher domain.ReviewPublisher,
) QuizService {
	return &quizService{
		transcripts: transcripts,
		synthesizer: synthesizer,
		grader:      grader,
		scheduler:   scheduler,
		publisher:   publisher,
	}
}

// Generate implements QuizService
func (s *quizService) Generate(ctx context.Context, req GenerateRequest) (*domain.Quiz, error) {
	transcript, err := s.transcripts.Acquire(ctx, req.VideoID)
	if err != nil {
		return nil, err
	}

	quiz, err := s.synthesizer.Synthesize(ctx, SynthesisRequest{
		VideoID:           req.VideoID,
		Title:             req.Title,
		Transcript:        transcript,
		QuestionCount:     req.QuestionCount,
		Difficulty:        req.Difficulty,
		PriorWeakConcepts: req.PriorWeakConcepts,
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("QuizService: quiz generated",
		zap.String("videoID", req.VideoID),
		zap.String("transcriptSource", transcript.Source),
		zap.String("difficulty", string(quiz.Difficulty)),
		zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// Submit implements QuizService
func (s *quizService) Submit(ctx context.Context, videoID string, quiz *domain.Quiz, answers []domain.UserAnswer) (*domain.Submission, error) {
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, domain.NewInvalidInputError("quiz with at least one question is required")
	}
	if videoID != "" && quiz.VideoID != "" && videoID != quiz.VideoID {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("quiz belongs to video %s, not %s", quiz.VideoID, videoID))
	}
	if videoID == "" {
		videoID = quiz.VideoID
	}

	result := s.grader.Grade(ctx, quiz, answers)
	submission := &domain.Submission{
		VideoID:  videoID,
		Result:   *result,
		Schedule: s.scheduler.Schedule(result.WeakConcepts),
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSubmission(ctx, submission); err != nil {
			logger.Get().Error("QuizService: failed to hand off submission",
				zap.String("videoID", videoID), zap.Error(err))
		}
	}
	return submission, nil
}

// Transcript implements QuizService
func (s *quizService) Transcript(ctx context.Context, videoID string) (*domain.Transcript, error) {
	return s.transcripts.Acquire(ctx, videoID)
}
