package handler

import (
	"time"

	"tubequiz/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the fiber application with the shared middleware stack and routes.
func NewApp(quizHandler *QuizHandler, healthHandler *HealthHandler, readTimeout, writeTimeout, requestTimeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader, MaxAge: 300}))

	app.Get("/healthz", healthHandler.Health)

	validationMiddleware := middleware.NewValidationMiddleware()
	apiGroup := app.Group("/api", middleware.Timeout(requestTimeout))
	apiGroup.Post("/quizzes", quizHandler.GenerateQuiz)
	apiGroup.Post("/quizzes/submit", quizHandler.SubmitQuiz)
	apiGroup.Get("/transcripts/:videoId", validationMiddleware.ValidateVideoIDParam(), quizHandler.GetTranscript)

	return app
}
