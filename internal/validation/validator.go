package validation

import (
	"regexp"
	"strings"

	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
)

const (
	MinQuestionCount     = 3
	MaxQuestionCount     = 15
	MaxTitleLength       = 300
	MaxWeakConcepts      = 20
	MaxAnswerLength      = 2000
	MaxSubmittedAnswers  = 100
	maxConceptNameLength = 100
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateVideoID checks the 11-character video id format.
func (v *Validator) ValidateVideoID(field, videoID string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(videoID) == "" {
		errors = append(errors, domain.NewMissingFieldError(field))
	} else if !videoIDPattern.MatchString(videoID) {
		errors = append(errors, domain.NewInvalidFormatError(field, videoID))
	}

	return errors
}

// ValidateGenerateRequest validates the quiz generation request
func (v *Validator) ValidateGenerateRequest(req *dto.GenerateQuizRequest) domain.ValidationErrors {
	errors := v.ValidateVideoID("video_id", req.VideoID)

	if len(req.Title) > MaxTitleLength {
		errors = append(errors, domain.NewOutOfRangeError("title", len(req.Title), 0, MaxTitleLength))
	}

	if req.QuestionCount != nil {
		if n := *req.QuestionCount; n < MinQuestionCount || n > MaxQuestionCount {
			errors = append(errors, domain.NewOutOfRangeError("question_count", n, MinQuestionCount, MaxQuestionCount))
		}
	}

	if req.Difficulty != "" {
		if _, ok := domain.ParseDifficulty(req.Difficulty); !ok {
			errors = append(errors, domain.NewInvalidFormatError("difficulty", req.Difficulty))
		}
	}

	if len(req.PriorWeakConcepts) > MaxWeakConcepts {
		errors = append(errors, domain.NewOutOfRangeError("prior_weak_concepts", len(req.PriorWeakConcepts), 0, MaxWeakConcepts))
	}
	for _, c := range req.PriorWeakConcepts {
		if len(c) > maxConceptNameLength {
			errors = append(errors, domain.NewOutOfRangeError("prior_weak_concepts", len(c), 1, maxConceptNameLength))
			break
		}
	}

	return errors
}

// ValidateSubmitRequest validates a quiz submission
func (v *Validator) ValidateSubmitRequest(req *dto.SubmitQuizRequest) domain.ValidationErrors {
	errors := v.ValidateVideoID("video_id", req.VideoID)

	if req.Quiz == nil {
		return append(errors, domain.NewMissingFieldError("quiz"))
	}
	total := len(req.Quiz.Questions)
	if total == 0 {
		errors = append(errors, domain.NewMissingFieldError("quiz.questions"))
	}
	if req.Quiz.VideoID != "" && req.Quiz.VideoID != req.VideoID {
		errors = append(errors, domain.ValidationError{
			Field:   "quiz.video_id",
			Message: "must match video_id",
			Value:   req.Quiz.VideoID,
		})
	}

	if len(req.Answers) > MaxSubmittedAnswers {
		return append(errors, domain.NewOutOfRangeError("answers", len(req.Answers), 0, MaxSubmittedAnswers))
	}
	for _, a := range req.Answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= total {
			errors = append(errors, domain.NewOutOfRangeError("answers.question_index", a.QuestionIndex, 0, max(total-1, 0)))
		}
		if len(a.AnswerText) > MaxAnswerLength {
			errors = append(errors, domain.NewOutOfRangeError("answers.answer_text", len(a.AnswerText), 0, MaxAnswerLength))
		}
		switch a.Confidence {
		case "", domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
		default:
			errors = append(errors, domain.NewInvalidFormatError("answers.confidence", a.Confidence))
		}
	}

	return errors
}
