package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const queueTranscript = "[0:00] intro to queues [0:05] a queue is FIFO [0:09] unlike a stack"

var fencedQuizResponse = "<think>let me plan the quiz</think>Here is your quiz:\n```json\n" + `{
  "title": "Queues 101",
  "questions": [
    {"kind": "multiple_choice", "prompt": "What order does a queue use?", "options": ["LIFO", "FIFO", "Random", "Priority",], "correctAnswer": "FIFO", "concept": "queues", "citationQuote": "a queue is FIFO",},
    {"kind": "short answer", "prompt": "Which structure is LIFO?", "correctAnswer": "stack", "concept": "stacks", "citationQuote": "nothing like this appears"},
    {"kind": "multiple_choice", "prompt": "Broken question", "options": ["a", "b"], "correctAnswer": "A"},
  ],
}` + "\n```"

func testQuizConfig() config.QuizConfig {
	return config.QuizConfig{
		DefaultQuestionCount:  5,
		MaxTranscriptChars:    15000,
		OverlapThreshold:      0.5,
		MaxGenerationAttempts: 4,
		GenerationBackoff:     4 * time.Second,
	}
}

func newTestSynthesizer(gen domain.TextGenerator) (*QuizSynthesizer, *sleepRecorder, *usageRecorder) {
	usage := &usageRecorder{}
	s := NewQuizSynthesizer(gen, usage, testQuizConfig())
	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	s.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return s, rec, usage
}

func queueRequest() SynthesisRequest {
	return SynthesisRequest{
		VideoID: "vid",
		Title:   "Data structures",
		Transcript: &domain.Transcript{
			VideoID:         "vid",
			PlainText:       "intro to queues a queue is FIFO unlike a stack",
			TimestampedText: queueTranscript,
		},
		QuestionCount: 5,
		Difficulty:    domain.DifficultyEasy,
	}
}

func TestQuizSynthesizer_ParsesFencedResponseWithTrailingCommas(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return(&domain.Generation{Text: fencedQuizResponse, Model: "test-model", PromptTokens: 900, CompletionTokens: 300}, nil)
	s, rec, usage := newTestSynthesizer(gen)

	quiz, err := s.Synthesize(context.Background(), queueRequest())
	require.NoError(t, err)

	assert.Equal(t, "vid", quiz.VideoID)
	assert.Equal(t, "Data structures", quiz.Title)
	assert.Equal(t, domain.DifficultyEasy, quiz.Difficulty)
	assert.Equal(t, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC), quiz.GeneratedAt)
	require.Len(t, quiz.Questions, 2)

	mc := quiz.Questions[0]
	assert.Equal(t, domain.KindMultipleChoice, mc.Kind)
	assert.Equal(t, []domain.Option{
		{Label: "A", Text: "LIFO"}, {Label: "B", Text: "FIFO"},
		{Label: "C", Text: "Random"}, {Label: "D", Text: "Priority"},
	}, mc.Options)
	assert.Equal(t, "B", mc.CorrectAnswer)
	require.NotNil(t, mc.TimestampSeconds)
	assert.Equal(t, 5, *mc.TimestampSeconds)

	short := quiz.Questions[1]
	assert.Equal(t, domain.KindShortAnswer, short.Kind)
	assert.Empty(t, short.Options)
	assert.Nil(t, short.TimestampSeconds)

	assert.Empty(t, rec.delays)
	require.Len(t, usage.events, 1)
	assert.Equal(t, domain.StageSynthesize, usage.events[0].Stage)
	assert.Equal(t, 1, usage.events[0].Attempts)
	assert.Equal(t, 900, usage.events[0].PromptTokens)
	assert.Equal(t, "test-model", usage.events[0].Model)
}

func TestQuizSynthesizer_RetriesRateLimits(t *testing.T) {
	rateLimited := fmt.Errorf("%w: 429 too many requests", domain.ErrRateLimited)
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, rateLimited).Twice()
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: fencedQuizResponse}, nil).Once()
	s, rec, usage := newTestSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), queueRequest())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, rec.delays)
	require.Len(t, usage.events, 1)
	assert.Equal(t, 3, usage.events[0].Attempts)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestQuizSynthesizer_GivesUpAfterFourAttempts(t *testing.T) {
	rateLimited := fmt.Errorf("%w: quota", domain.ErrRateLimited)
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, rateLimited)
	s, rec, usage := newTestSynthesizer(gen)

	quiz, err := s.Synthesize(context.Background(), queueRequest())
	assert.Nil(t, quiz)
	assert.True(t, domain.IsCode(err, domain.CodeGenerationFailure))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second, 16 * time.Second}, rec.delays)
	gen.AssertNumberOfCalls(t, "Generate", 4)
	assert.Equal(t, 4, usage.events[0].Attempts)
	assert.Error(t, usage.events[0].Err)
}

func TestQuizSynthesizer_OtherErrorsAreNotRetried(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("model not found"))
	s, rec, _ := newTestSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), queueRequest())
	assert.True(t, domain.IsCode(err, domain.CodeGenerationFailure))
	assert.Empty(t, rec.delays)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestQuizSynthesizer_UnparseableResponse(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{Text: "Sorry, I can't help with that."}, nil)
	s, _, _ := newTestSynthesizer(gen)

	quiz, err := s.Synthesize(context.Background(), queueRequest())
	assert.Nil(t, quiz)
	assert.True(t, domain.IsCode(err, domain.CodeGenerationFailure))
}

func TestQuizSynthesizer_NoValidQuestions(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{
		Text: `{"questions": [{"kind": "multiple_choice", "prompt": "?", "options": ["a"], "correctAnswer": "A"}, {"prompt": "", "correctAnswer": "x"}]}`,
	}, nil)
	s, _, _ := newTestSynthesizer(gen)

	_, err := s.Synthesize(context.Background(), queueRequest())
	assert.True(t, domain.IsCode(err, domain.CodeGenerationFailure))
}

func TestQuizSynthesizer_KeepsAtMostQuestionCount(t *testing.T) {
	var qs []string
	for i := 0; i < 6; i++ {
		qs = append(qs, fmt.Sprintf(`{"prompt": "q%d", "correctAnswer": "a%d", "concept": "c%d"}`, i, i, i))
	}
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&domain.Generation{
		Text: `{"questions": [` + strings.Join(qs, ",") + `]}`,
	}, nil)
	s, _, _ := newTestSynthesizer(gen)

	req := queueRequest()
	req.QuestionCount = 3
	quiz, err := s.Synthesize(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 3)
	assert.Equal(t, "q0", quiz.Questions[0].Prompt)
}

func TestQuizSynthesizer_PromptShaping(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		difficulty domain.Difficulty
		weak       []string
		contains   []string
		absent     []string
	}{
		{
			name:       "clamps low count",
			count:      1,
			difficulty: domain.DifficultyBoss,
			contains:   []string{"exactly 3 questions", "Difficulty: BOSS"},
			absent:     []string{"struggled"},
		},
		{
			name:       "clamps high count",
			count:      40,
			difficulty: domain.DifficultyEasy,
			contains:   []string{"exactly 15 questions", "Difficulty: EASY"},
		},
		{
			name:       "default count and unknown difficulty",
			count:      0,
			difficulty: "nightmare",
			contains:   []string{"exactly 5 questions", "Difficulty: INTERMEDIATE"},
		},
		{
			name:       "interleaving hint",
			count:      5,
			difficulty: domain.DifficultyIntermediate,
			weak:       []string{"recursion", "big-O"},
			contains:   []string{"struggled with: recursion, big-O", "1-2 questions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt string
			gen := new(MockTextGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { prompt = args.String(1) }).
				Return(&domain.Generation{Text: fencedQuizResponse}, nil)
			s, _, _ := newTestSynthesizer(gen)

			req := queueRequest()
			req.QuestionCount = tt.count
			req.Difficulty = tt.difficulty
			req.PriorWeakConcepts = tt.weak
			quiz, err := s.Synthesize(context.Background(), req)
			require.NoError(t, err)

			for _, want := range tt.contains {
				assert.Contains(t, prompt, want)
			}
			for _, notWant := range tt.absent {
				assert.NotContains(t, prompt, notWant)
			}
			if tt.difficulty == "nightmare" {
				assert.Equal(t, domain.DifficultyIntermediate, quiz.Difficulty)
			}
		})
	}
}

func TestQuizSynthesizer_TruncatesTranscript(t *testing.T) {
	var prompt string
	gen := new(MockTextGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return(&domain.Generation{Text: fencedQuizResponse}, nil)
	cfg := testQuizConfig()
	cfg.MaxTranscriptChars = 22
	s := NewQuizSynthesizer(gen, &usageRecorder{}, cfg)

	quiz, err := s.Synthesize(context.Background(), queueRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(prompt, "[0:00] intro to queues"))
	assert.NotContains(t, prompt, "a queue is FIFO [0:09]")
	// Resolution still sees the full transcript.
	require.NotNil(t, quiz.Questions[0].TimestampSeconds)
	assert.Equal(t, 5, *quiz.Questions[0].TimestampSeconds)
}

func TestQuizSynthesizer_RequiresTranscript(t *testing.T) {
	s, _, _ := newTestSynthesizer(new(MockTextGenerator))
	req := queueRequest()
	req.Transcript = &domain.Transcript{PlainText: "   "}

	_, err := s.Synthesize(context.Background(), req)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidInput))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
}

func TestRawQuestion_ToDraft(t *testing.T) {
	t.Run("infers multiple choice and maps labelled answer", func(t *testing.T) {
		q := rawQuestion{
			Prompt:        "Pick one",
			Options:       []rawOption{{Label: "a)", Text: "x"}, {Label: "b)", Text: "y"}, {Label: "c)", Text: "z"}, {Label: "d)", Text: "w"}},
			CorrectAnswer: "c)",
		}
		draft, err := q.toDraft()
		require.NoError(t, err)
		assert.Equal(t, domain.KindMultipleChoice, draft.Kind)
		assert.Equal(t, "C", draft.CorrectAnswer)
	})

	t.Run("rejects answer outside options", func(t *testing.T) {
		q := rawQuestion{
			Kind:          "mcq",
			Prompt:        "Pick one",
			Options:       []rawOption{{Text: "x"}, {Text: "y"}, {Text: "z"}, {Text: "w"}},
			CorrectAnswer: "none of these",
		}
		_, err := q.toDraft()
		assert.Error(t, err)
	})

	t.Run("free recall drops options", func(t *testing.T) {
		q := rawQuestion{Kind: "free_recall", Prompt: "Explain", Options: []rawOption{{Text: "x"}}, CorrectAnswer: "because"}
		draft, err := q.toDraft()
		require.NoError(t, err)
		assert.Nil(t, draft.Options)
	})
}
