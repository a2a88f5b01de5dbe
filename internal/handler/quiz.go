package handler

import (
	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/logger"
	"tubequiz/internal/middleware"
	"tubequiz/internal/service"
	"tubequiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// GenerateQuiz handles POST /api/quizzes
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	var req dto.GenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be valid JSON")
	}

	if errs := h.validator.ValidateGenerateRequest(&req); len(errs) > 0 {
		return errs
	}

	genReq := service.GenerateRequest{
		VideoID:           req.VideoID,
		Title:             req.Title,
		PriorWeakConcepts: req.PriorWeakConcepts,
	}
	if req.QuestionCount != nil {
		genReq.QuestionCount = *req.QuestionCount
	}
	if d, ok := domain.ParseDifficulty(req.Difficulty); ok {
		genReq.Difficulty = d
	}

	quiz, err := h.service.Generate(c.UserContext(), genReq)
	if err != nil {
		return err
	}

	logger.Get().Debug("Quiz generated",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("video_id", req.VideoID),
		zap.Int("questions", len(quiz.Questions)))
	return c.Status(fiber.StatusCreated).JSON(quiz)
}

// SubmitQuiz handles POST /api/quizzes/submit
func (h *QuizHandler) SubmitQuiz(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be valid JSON")
	}

	if errs := h.validator.ValidateSubmitRequest(&req); len(errs) > 0 {
		return errs
	}

	submission, err := h.service.Submit(c.UserContext(), req.VideoID, req.Quiz, req.Answers)
	if err != nil {
		return err
	}

	return c.JSON(dto.SubmitQuizResponse{
		Result:         submission.Result,
		ReviewSchedule: submission.Schedule,
	})
}

// GetTranscript handles GET /api/transcripts/:videoId
func (h *QuizHandler) GetTranscript(c *fiber.Ctx) error {
	videoID, _ := c.Locals(middleware.ValidatedVideoIDKey).(string)
	if videoID == "" {
		videoID = c.Params("videoId")
	}

	transcript, err := h.service.Transcript(c.UserContext(), videoID)
	if err != nil {
		return err
	}
	return c.JSON(transcript)
}
