package domain

import (
	"strings"
	"time"
)

// QuestionKind is the answer format of a question.
type QuestionKind string

const (
	KindFreeRecall     QuestionKind = "free_recall"
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindShortAnswer    QuestionKind = "short_answer"
)

// ParseQuestionKind maps loose spellings ("Multiple Choice", "short-answer") to a kind.
func ParseQuestionKind(s string) (QuestionKind, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch QuestionKind(k) {
	case KindFreeRecall, KindMultipleChoice, KindShortAnswer:
		return QuestionKind(k), true
	case "mcq", "multiplechoice":
		return KindMultipleChoice, true
	}
	return "", false
}

// Difficulty selects the generation policy.
type Difficulty string

const (
	DifficultyEasy         Difficulty = "easy"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyBoss         Difficulty = "boss"
)

// ParseDifficulty returns the difficulty for s, or false when unknown.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyIntermediate, DifficultyBoss:
		return d, true
	}
	return "", false
}

// Confidence is the learner's self-reported certainty.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// MultipleChoiceOptions is the exact option count a multiple_choice question carries.
const MultipleChoiceOptions = 4

// GeneralReviewConcept stands in for the weak-concept list when a learner missed
// points but no specific concept could be attributed.
const GeneralReviewConcept = "General review"

// Option is one labelled multiple-choice answer.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionDraft is a generated question before publication. It still carries the
// citation quote used to locate the question in the video.
type QuestionDraft struct {
	Kind          QuestionKind
	Prompt        string
	Options       []Option
	CorrectAnswer string
	Concept       string
	CitationQuote string
}

// Validate checks the question invariants.
func (d *QuestionDraft) Validate() error {
	if strings.TrimSpace(d.Prompt) == "" {
		return NewInvalidInputError("question prompt is required")
	}
	if strings.TrimSpace(d.CorrectAnswer) == "" {
		return NewInvalidInputError("correct answer is required")
	}
	switch d.Kind {
	case KindMultipleChoice:
		if len(d.Options) != MultipleChoiceOptions {
			return NewInvalidInputError("multiple choice question needs exactly 4 options")
		}
		labels := make(map[string]struct{}, len(d.Options))
		for _, opt := range d.Options {
			if strings.TrimSpace(opt.Label) == "" {
				return NewInvalidInputError("option label is required")
			}
			if _, dup := labels[opt.Label]; dup {
				return NewInvalidInputError("option labels must be distinct")
			}
			labels[opt.Label] = struct{}{}
		}
		if _, ok := labels[d.CorrectAnswer]; !ok {
			return NewInvalidInputError("correct answer must be one of the option labels")
		}
		return nil
	case KindFreeRecall, KindShortAnswer:
		return nil
	default:
		return NewInvalidInputError("unknown question kind: " + string(d.Kind))
	}
}

// Publish drops the citation and attaches the resolved timestamp, if any.
func (d *QuestionDraft) Publish(timestampSeconds *int) Question {
	return Question{
		Kind:             d.Kind,
		Prompt:           d.Prompt,
		Options:          d.Options,
		CorrectAnswer:    d.CorrectAnswer,
		Concept:          d.Concept,
		TimestampSeconds: timestampSeconds,
	}
}

// Question is the public question shape handed to learners.
type Question struct {
	Kind             QuestionKind `json:"kind"`
	Prompt           string       `json:"prompt"`
	Options          []Option     `json:"options,omitempty"`
	CorrectAnswer    string       `json:"correct_answer"`
	Concept          string       `json:"concept"`
	TimestampSeconds *int         `json:"timestamp_seconds,omitempty"`
}

// Quiz is immutable once generated.
type Quiz struct {
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   []Question `json:"questions"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// UserAnswer is a learner's answer to the question at QuestionIndex.
type UserAnswer struct {
	QuestionIndex int        `json:"question_index"`
	AnswerText    string     `json:"answer_text"`
	Confidence    Confidence `json:"confidence"`
}

// QuestionFeedback is the verdict for one question.
type QuestionFeedback struct {
	QuestionIndex int    `json:"question_index"`
	IsCorrect     bool   `json:"is_correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// GradedResult is derived once per submission.
type GradedResult struct {
	ScorePercent   int                `json:"score_percent"`
	CorrectCount   int                `json:"correct_count"`
	TotalQuestions int                `json:"total_questions"`
	Feedback       []QuestionFeedback `json:"feedback"`
	WeakConcepts   []string           `json:"weak_concepts"`
}

// SpacingEntry schedules the next review of a concept.
type SpacingEntry struct {
	Concept        string    `json:"concept"`
	NextReviewDate time.Time `json:"next_review_date"`
	IntervalDays   int       `json:"interval_days"`
}

// Submission bundles a graded attempt with its review schedule.
type Submission struct {
	VideoID  string         `json:"video_id"`
	Result   GradedResult   `json:"result"`
	Schedule []SpacingEntry `json:"review_schedule"`
}
