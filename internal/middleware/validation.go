package middleware

import (
	"tubequiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidatedVideoIDKey holds the validated :videoId path parameter.
const ValidatedVideoIDKey = "validated_video_id"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateVideoIDParam validates the videoId path parameter
func (vm *ValidationMiddleware) ValidateVideoIDParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		videoID := c.Params("videoId")

		if errors := vm.validator.ValidateVideoID("videoId", videoID); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}

		c.Locals(ValidatedVideoIDKey, videoID)
		return c.Next()
	}
}
