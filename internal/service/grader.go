package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/llmjson"
	"tubequiz/internal/logger"
	"tubequiz/internal/textmatch"

	"go.uber.org/zap"
)

const (
	offlineCorrectExplanation   = "Your answer matches the expected answer."
	offlineIncorrectExplanation = "Your answer does not match the expected answer."
)

// AnswerGrader grades a submission with the text generator and patches or
// replaces its verdicts with the rule-based checker when needed.
type AnswerGrader struct {
	generator domain.TextGenerator
	usage     domain.UsageCollector
}

// NewAnswerGrader creates a new instance of AnswerGrader.
func NewAnswerGrader(generator domain.TextGenerator, usage domain.UsageCollector) *AnswerGrader {
	return &AnswerGrader{generator: generator, usage: usage}
}

type rawGrading struct {
	Results []struct {
		QuestionIndex *int   `json:"questionIndex"`
		IsCorrect     *bool  `json:"isCorrect"`
		Explanation   string `json:"explanation"`
	} `json:"results"`
	WeakConcepts []string `json:"weakConcepts"`
}

// Grade never fails. A generator or parse error regrades every question
// offline; questions the generator skipped are graded offline one by one.
func (g *AnswerGrader) Grade(ctx context.Context, quiz *domain.Quiz, answers []domain.UserAnswer) *domain.GradedResult {
	total := len(quiz.Questions)
	answerText := answersByIndex(answers, total)

	start := time.Now()
	event := domain.UsageEvent{Stage: domain.StageGrade, VideoID: quiz.VideoID, Attempts: 1}
	defer func() {
		event.Duration = time.Since(start)
		g.usage.RecordUsage(ctx, event)
	}()

	if total == 0 {
		event.Attempts = 0
		return finalizeResult(quiz, nil, nil)
	}

	gen, err := g.generator.Generate(ctx, buildGradingPrompt(quiz, answers, answerText))
	var parsed rawGrading
	if err == nil {
		event.Model = gen.Model
		event.PromptTokens = gen.PromptTokens
		event.CompletionTokens = gen.CompletionTokens
		err = llmjson.Decode(gen.Text, &parsed)
	}
	if err != nil {
		event.Degraded = true
		event.Err = err
		logger.Get().Warn("AnswerGrader: grading degraded to offline checker",
			zap.String("videoID", quiz.VideoID), zap.Error(err))
		return finalizeResult(quiz, offlineFeedback(quiz, answerText, nil), nil)
	}

	verdicts := make([]*domain.QuestionFeedback, total)
	for _, r := range parsed.Results {
		if r.QuestionIndex == nil || r.IsCorrect == nil {
			continue
		}
		i := *r.QuestionIndex
		if i < 0 || i >= total || verdicts[i] != nil {
			continue
		}
		verdicts[i] = &domain.QuestionFeedback{
			QuestionIndex: i,
			IsCorrect:     *r.IsCorrect,
			UserAnswer:    answerText[i],
			CorrectAnswer: quiz.Questions[i].CorrectAnswer,
			Explanation:   strings.TrimSpace(r.Explanation),
		}
	}

	missing := 0
	for _, v := range verdicts {
		if v == nil {
			missing++
		}
	}
	if missing > 0 {
		event.Degraded = true
		logger.Get().Warn("AnswerGrader: patching questions missing from grading response",
			zap.String("videoID", quiz.VideoID), zap.Int("missing", missing))
	}

	return finalizeResult(quiz, offlineFeedback(quiz, answerText, verdicts), parsed.WeakConcepts)
}

// answersByIndex returns the answer text per question; the first answer for an
// index wins and unanswered questions get empty text.
func answersByIndex(answers []domain.UserAnswer, total int) []string {
	text := make([]string, total)
	seen := make([]bool, total)
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= total || seen[a.QuestionIndex] {
			continue
		}
		seen[a.QuestionIndex] = true
		text[a.QuestionIndex] = a.AnswerText
	}
	return text
}

// offlineFeedback fills every nil verdict with the rule-based checker.
func offlineFeedback(quiz *domain.Quiz, answerText []string, verdicts []*domain.QuestionFeedback) []domain.QuestionFeedback {
	feedback := make([]domain.QuestionFeedback, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if verdicts != nil && verdicts[i] != nil {
			feedback[i] = *verdicts[i]
			continue
		}
		correct := textmatch.IsCorrect(q, answerText[i])
		explanation := offlineIncorrectExplanation
		if correct {
			explanation = offlineCorrectExplanation
		}
		feedback[i] = domain.QuestionFeedback{
			QuestionIndex: i,
			IsCorrect:     correct,
			UserAnswer:    answerText[i],
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   explanation,
		}
	}
	return feedback
}

func finalizeResult(quiz *domain.Quiz, feedback []domain.QuestionFeedback, reported []string) *domain.GradedResult {
	total := len(quiz.Questions)
	if feedback == nil {
		feedback = []domain.QuestionFeedback{}
	}

	correct := 0
	var missed []string
	for _, f := range feedback {
		if f.IsCorrect {
			correct++
		} else {
			missed = append(missed, quiz.Questions[f.QuestionIndex].Concept)
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(100 * float64(correct) / float64(total)))
	}

	weak := dedupeConcepts(reported)
	if len(weak) == 0 {
		weak = dedupeConcepts(missed)
	}
	if len(weak) == 0 && total > 0 && score < 100 {
		weak = []string{domain.GeneralReviewConcept}
	}

	return &domain.GradedResult{
		ScorePercent:   score,
		CorrectCount:   correct,
		TotalQuestions: total,
		Feedback:       feedback,
		WeakConcepts:   weak,
	}
}

// dedupeConcepts trims concepts and drops empty and case-insensitive duplicates,
// keeping first-seen order and spelling.
func dedupeConcepts(concepts []string) []string {
	out := make([]string, 0, len(concepts))
	seen := make(map[string]struct{}, len(concepts))
	for _, c := range concepts {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func buildGradingPrompt(quiz *domain.Quiz, answers []domain.UserAnswer, answerText []string) string {
	confidence := make(map[int]domain.Confidence, len(answers))
	for _, a := range answers {
		if _, ok := confidence[a.QuestionIndex]; !ok {
			confidence[a.QuestionIndex] = a.Confidence
		}
	}

	var b strings.Builder
	b.WriteString("You grade a learner's quiz answers. Judge meaning, not wording. ")
	b.WriteString("For multiple_choice questions the answer must be the correct option label.\n\n")
	for i, q := range quiz.Questions {
		fmt.Fprintf(&b, "Question %d (%s): %s\n", i, q.Kind, q.Prompt)
		for _, o := range q.Options {
			fmt.Fprintf(&b, "  %s) %s\n", o.Label, o.Text)
		}
		fmt.Fprintf(&b, "Expected answer: %s\n", q.CorrectAnswer)
		fmt.Fprintf(&b, "Learner answer: %s\n", answerText[i])
		if c := confidence[i]; c != "" {
			fmt.Fprintf(&b, "Learner confidence: %s\n", c)
		}
		b.WriteString("\n")
	}
	b.WriteString(`Respond with one JSON object only, in this shape:
{"results": [{"questionIndex": 0, "isCorrect": true, "explanation": "..."}], "weakConcepts": ["..."]}
Include one result per question. "weakConcepts" lists the concepts the learner should review.`)
	return b.String()
}
