package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tubequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func gradingQuiz() *domain.Quiz {
	return &domain.Quiz{
		VideoID: "vid",
		Questions: []domain.Question{
			{
				Kind:   domain.KindMultipleChoice,
				Prompt: "What order does a queue use?",
				Options: []domain.Option{
					{Label: "A", Text: "LIFO"}, {Label: "B", Text: "FIFO"},
					{Label: "C", Text: "Random"}, {Label: "D", Text: "Priority"},
				},
				CorrectAnswer: "B",
				Concept:       "queues",
			},
			{Kind: domain.KindShortAnswer, Prompt: "Which structure is LIFO?", CorrectAnswer: "stack", Concept: "stacks"},
			{Kind: domain.KindFreeRecall, Prompt: "What does FIFO stand for?", CorrectAnswer: "first in first out", Concept: " Queues "},
		},
	}
}

func gradingAnswers() []domain.UserAnswer {
	return []domain.UserAnswer{
		{QuestionIndex: 0, AnswerText: "b", Confidence: domain.ConfidenceHigh},
		{QuestionIndex: 1, AnswerText: "a heap", Confidence: domain.ConfidenceLow},
		{QuestionIndex: 2, AnswerText: "First-in, first-out!", Confidence: domain.ConfidenceMedium},
	}
}

func assertFeedbackCoversAll(t *testing.T, result *domain.GradedResult) {
	t.Helper()
	require.Len(t, result.Feedback, result.TotalQuestions)
	for i, f := range result.Feedback {
		assert.Equal(t, i, f.QuestionIndex)
	}
}

func TestAnswerGrader_PrimaryVerdicts(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "Question 0 (multiple_choice)", "Learner answer: a heap", "Learner confidence: low", "B) FIFO")
	})).Return(&domain.Generation{Text: `{
		"results": [
			{"questionIndex": 0, "isCorrect": true, "explanation": "Right."},
			{"questionIndex": 1, "isCorrect": false, "explanation": "A heap is not LIFO."},
			{"questionIndex": 2, "isCorrect": false, "explanation": "Close, but incomplete."}
		],
		"weakConcepts": ["Stacks", "stacks ", "", "queue ordering"]
	}`, PromptTokens: 50}, nil)
	usage := &usageRecorder{}
	grader := NewAnswerGrader(gen, usage)

	result := grader.Grade(context.Background(), gradingQuiz(), gradingAnswers())

	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 33, result.ScorePercent)
	assert.Equal(t, []string{"Stacks", "queue ordering"}, result.WeakConcepts)
	assert.Equal(t, "Close, but incomplete.", result.Feedback[2].Explanation)
	assert.Equal(t, "a heap", result.Feedback[1].UserAnswer)
	assert.Equal(t, "stack", result.Feedback[1].CorrectAnswer)
	assertFeedbackCoversAll(t, result)

	require.Len(t, usage.events, 1)
	assert.False(t, usage.events[0].Degraded)
	assert.Equal(t, domain.StageGrade, usage.events[0].Stage)
	assert.Equal(t, 50, usage.events[0].PromptTokens)
}

func TestAnswerGrader_NetworkErrorFallsBackCompletely(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused")).Once()
	usage := &usageRecorder{}
	grader := NewAnswerGrader(gen, usage)

	result := grader.Grade(context.Background(), gradingQuiz(), gradingAnswers())

	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 67, result.ScorePercent)
	assert.True(t, result.Feedback[0].IsCorrect)
	assert.False(t, result.Feedback[1].IsCorrect)
	assert.True(t, result.Feedback[2].IsCorrect)
	assert.Equal(t, []string{"stacks"}, result.WeakConcepts)
	assertFeedbackCoversAll(t, result)

	gen.AssertNumberOfCalls(t, "Generate", 1)
	require.Len(t, usage.events, 1)
	assert.True(t, usage.events[0].Degraded)
	assert.Error(t, usage.events[0].Err)
}

func TestAnswerGrader_MalformedResponseFallsBack(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: `{"results": [{"questionIndex": 0, "isCorrect": fals`}, nil)
	grader := NewAnswerGrader(gen, &usageRecorder{})

	result := grader.Grade(context.Background(), gradingQuiz(), gradingAnswers())
	assert.Equal(t, 2, result.CorrectCount)
	assertFeedbackCoversAll(t, result)
}

func TestAnswerGrader_PatchesMissingIndices(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: `{
		"results": [
			{"questionIndex": 0, "isCorrect": false, "explanation": "first"},
			{"questionIndex": 0, "isCorrect": true, "explanation": "duplicate"},
			{"questionIndex": 7, "isCorrect": true},
			{"questionIndex": -1, "isCorrect": true},
			{"isCorrect": true}
		],
		"weakConcepts": []
	}`}, nil)
	usage := &usageRecorder{}
	grader := NewAnswerGrader(gen, usage)

	result := grader.Grade(context.Background(), gradingQuiz(), gradingAnswers())

	assertFeedbackCoversAll(t, result)
	assert.False(t, result.Feedback[0].IsCorrect)
	assert.Equal(t, "first", result.Feedback[0].Explanation)
	// Indices 1 and 2 come from the offline checker.
	assert.False(t, result.Feedback[1].IsCorrect)
	assert.True(t, result.Feedback[2].IsCorrect)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, []string{"queues", "stacks"}, result.WeakConcepts)
	assert.True(t, usage.events[0].Degraded)
}

func TestAnswerGrader_EntryWithoutVerdictIsRegraded(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: `{
		"results": [
			{"questionIndex": 0, "isCorrect": true, "explanation": "Right."},
			{"questionIndex": 1, "isCorrect": false, "explanation": "A heap is not LIFO."},
			{"questionIndex": 2, "explanation": "no verdict given"}
		],
		"weakConcepts": []
	}`}, nil)
	usage := &usageRecorder{}
	grader := NewAnswerGrader(gen, usage)

	result := grader.Grade(context.Background(), gradingQuiz(), gradingAnswers())

	assertFeedbackCoversAll(t, result)
	assert.True(t, result.Feedback[2].IsCorrect)
	assert.Equal(t, offlineCorrectExplanation, result.Feedback[2].Explanation)
	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, 67, result.ScorePercent)
	require.Len(t, usage.events, 1)
	assert.True(t, usage.events[0].Degraded)
}

func TestAnswerGrader_MissingAnswersGradeAsEmpty(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))
	grader := NewAnswerGrader(gen, &usageRecorder{})

	result := grader.Grade(context.Background(), gradingQuiz(), []domain.UserAnswer{
		{QuestionIndex: 0, AnswerText: "B"},
		{QuestionIndex: 0, AnswerText: "A"},
		{QuestionIndex: 9, AnswerText: "stack"},
	})

	assertFeedbackCoversAll(t, result)
	assert.True(t, result.Feedback[0].IsCorrect)
	assert.Equal(t, "B", result.Feedback[0].UserAnswer)
	assert.Equal(t, "", result.Feedback[1].UserAnswer)
	assert.False(t, result.Feedback[1].IsCorrect)
	assert.Equal(t, 33, result.ScorePercent)
}

func TestAnswerGrader_SentinelWeakConcept(t *testing.T) {
	quiz := &domain.Quiz{VideoID: "vid", Questions: []domain.Question{
		{Kind: domain.KindShortAnswer, Prompt: "p", CorrectAnswer: "stack"},
		{Kind: domain.KindShortAnswer, Prompt: "q", CorrectAnswer: "queue"},
	}}
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))
	grader := NewAnswerGrader(gen, &usageRecorder{})

	result := grader.Grade(context.Background(), quiz, []domain.UserAnswer{{QuestionIndex: 0, AnswerText: "stack"}})
	assert.Equal(t, 50, result.ScorePercent)
	assert.Equal(t, []string{domain.GeneralReviewConcept}, result.WeakConcepts)

	perfect := grader.Grade(context.Background(), quiz, []domain.UserAnswer{
		{QuestionIndex: 0, AnswerText: "stack"}, {QuestionIndex: 1, AnswerText: "queue"},
	})
	assert.Equal(t, 100, perfect.ScorePercent)
	assert.Empty(t, perfect.WeakConcepts)
}

func TestAnswerGrader_EmptyQuiz(t *testing.T) {
	gen := new(MockTextGenerator)
	grader := NewAnswerGrader(gen, &usageRecorder{})

	result := grader.Grade(context.Background(), &domain.Quiz{}, nil)
	assert.Equal(t, 0, result.ScorePercent)
	assert.Equal(t, 0, result.TotalQuestions)
	assert.Empty(t, result.Feedback)
	assert.Empty(t, result.WeakConcepts)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnswerGrader_FeedbackAlwaysCoversEveryIndex(t *testing.T) {
	responses := []string{
		`{"results": []}`,
		`{"results": [{"questionIndex": 2, "isCorrect": true}]}`,
		`{"results": [{"questionIndex": 1, "isCorrect": true}, {"questionIndex": 1, "isCorrect": false}, {"questionIndex": 3, "isCorrect": true}]}`,
		`{"weakConcepts": ["x"]}`,
		`not json at all`,
	}
	for _, text := range responses {
		gen := new(MockTextGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: text}, nil)
		result := NewAnswerGrader(gen, &usageRecorder{}).Grade(context.Background(), gradingQuiz(), gradingAnswers())
		assertFeedbackCoversAll(t, result)
		assert.LessOrEqual(t, result.CorrectCount, result.TotalQuestions)
	}
}

func TestDedupeConcepts(t *testing.T) {
	assert.Equal(t, []string{"Queues", "stacks"}, dedupeConcepts([]string{" Queues", "queues ", "", "stacks", "STACKS"}))
	assert.Empty(t, dedupeConcepts(nil))
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
