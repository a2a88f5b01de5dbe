package dto

import "tubequiz/internal/domain"

// GenerateQuizRequest is the body of POST /api/quizzes.
type GenerateQuizRequest struct {
	VideoID           string   `json:"video_id"`
	Title             string   `json:"title"`
	QuestionCount     *int     `json:"question_count,omitempty"`
	Difficulty        string   `json:"difficulty,omitempty"`
	PriorWeakConcepts []string `json:"prior_weak_concepts,omitempty"`
}

// SubmitQuizRequest is the body of POST /api/quizzes/submit.
type SubmitQuizRequest struct {
	VideoID string              `json:"video_id"`
	Quiz    *domain.Quiz        `json:"quiz"`
	Answers []domain.UserAnswer `json:"answers"`
}

// SubmitQuizResponse carries the graded result and the review schedule.
type SubmitQuizResponse struct {
	Result         domain.GradedResult   `json:"result"`
	ReviewSchedule []domain.SpacingEntry `json:"review_schedule"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}
