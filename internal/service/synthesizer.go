package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/llmjson"
	"tubequiz/internal/logger"
	"tubequiz/internal/textmatch"

	"go.uber.org/zap"
)

const (
	MinQuestionCount = 3
	MaxQuestionCount = 15
)

// SynthesisRequest is the input of one quiz generation.
type SynthesisRequest struct {
	VideoID           string
	Title             string
	Transcript        *domain.Transcript
	QuestionCount     int
	Difficulty        domain.Difficulty
	PriorWeakConcepts []string
}

// QuizSynthesizer turns a transcript into a quiz through the text generator.
type QuizSynthesizer struct {
	generator domain.TextGenerator
	resolver  *textmatch.Resolver
	usage     domain.UsageCollector
	cfg       config.QuizConfig
	sleep     sleepFunc
	now       func() time.Time
}

// NewQuizSynthesizer creates a new instance of QuizSynthesizer.
func NewQuizSynthesizer(generator domain.TextGenerator, usage domain.UsageCollector, cfg config.QuizConfig) *QuizSynthesizer {
	if cfg.MaxGenerationAttempts < 1 {
		cfg.MaxGenerationAttempts = 1
	}
	if cfg.DefaultQuestionCount == 0 {
		cfg.DefaultQuestionCount = 5
	}
	return &QuizSynthesizer{
		generator: generator,
		resolver:  textmatch.NewResolver(cfg.OverlapThreshold),
		usage:     usage,
		cfg:       cfg,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Synthesize generates a quiz. It fails with GENERATION_FAILURE when the
// generator keeps failing or returns nothing usable.
func (s *QuizSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Quiz, error) {
	if req.Transcript == nil || strings.TrimSpace(req.Transcript.PlainText) == "" {
		return nil, domain.NewInvalidInputError("transcript text is required")
	}

	count := clampQuestionCount(req.QuestionCount, s.cfg.DefaultQuestionCount)
	difficulty, ok := domain.ParseDifficulty(string(req.Difficulty))
	if !ok {
		difficulty = domain.DifficultyIntermediate
	}

	source := truncateRunes(req.Transcript.TimedText(), s.cfg.MaxTranscriptChars)
	prompt := buildSynthesisPrompt(req.Title, source, count, difficulty, req.PriorWeakConcepts)

	gen, err := s.generate(ctx, req.VideoID, prompt)
	if err != nil {
		return nil, err
	}

	var raw rawQuiz
	if err := llmjson.Decode(gen.Text, &raw); err != nil {
		logger.Get().Warn("QuizSynthesizer: unparseable generation", zap.String("videoID", req.VideoID), zap.Error(err))
		return nil, domain.NewGenerationFailureError("Quiz generation returned no parseable quiz", err)
	}

	drafts := make([]domain.QuestionDraft, 0, len(raw.Questions))
	for i, rq := range raw.Questions {
		draft, err := rq.toDraft()
		if err != nil {
			logger.Get().Debug("QuizSynthesizer: dropping invalid question",
				zap.String("videoID", req.VideoID), zap.Int("index", i), zap.Error(err))
			continue
		}
		drafts = append(drafts, draft)
		if len(drafts) == count {
			break
		}
	}
	if len(drafts) == 0 {
		return nil, domain.NewGenerationFailureError("Quiz generation returned no valid questions", nil)
	}

	questions := make([]domain.Question, 0, len(drafts))
	for i := range drafts {
		var ts *int
		if seconds, ok := s.resolver.Resolve(drafts[i].CitationQuote, req.Transcript.TimestampedText); ok {
			ts = &seconds
		}
		questions = append(questions, drafts[i].Publish(ts))
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(raw.Title)
	}

	return &domain.Quiz{
		VideoID:     req.VideoID,
		Title:       title,
		Difficulty:  difficulty,
		Questions:   questions,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// generate calls the generator, retrying only on rate limits.
func (s *QuizSynthesizer) generate(ctx context.Context, videoID, prompt string) (gen *domain.Generation, err error) {
	start := time.Now()
	attempt := 0
	defer func() {
		event := domain.UsageEvent{
			Stage:    domain.StageSynthesize,
			VideoID:  videoID,
			Attempts: attempt,
			Duration: time.Since(start),
			Err:      err,
		}
		if gen != nil {
			event.Model = gen.Model
			event.PromptTokens = gen.PromptTokens
			event.CompletionTokens = gen.CompletionTokens
		}
		s.usage.RecordUsage(ctx, event)
	}()

	for attempt = 1; ; attempt++ {
		gen, err = s.generator.Generate(ctx, prompt)
		if err == nil {
			return gen, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, domain.ErrRateLimited) || attempt >= s.cfg.MaxGenerationAttempts {
			return nil, domain.NewGenerationFailureError(
				fmt.Sprintf("Quiz generation failed after %d attempt(s)", attempt), err)
		}

		delay := backoff(s.cfg.GenerationBackoff, attempt)
		logger.Get().Info("QuizSynthesizer: rate limited, backing off",
			zap.String("videoID", videoID), zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func clampQuestionCount(n, def int) int {
	if n == 0 {
		n = def
	}
	if n < MinQuestionCount {
		return MinQuestionCount
	}
	if n > MaxQuestionCount {
		return MaxQuestionCount
	}
	return n
}

// truncateRunes keeps at most max runes of s.
func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

var difficultyPolicies = map[domain.Difficulty]string{
	domain.DifficultyEasy: `Difficulty: EASY.
- Most questions test direct recall of facts stated in the transcript.
- Include at least one genuinely tricky question.
- Multiple-choice distractors must be plausible and come from the same domain as the correct answer.`,
	domain.DifficultyIntermediate: `Difficulty: INTERMEDIATE.
- Roughly 40% recall questions and 60% reasoning questions.
- At least two questions must require connecting ideas from different parts of the transcript.`,
	domain.DifficultyBoss: `Difficulty: BOSS.
- Mix question kinds: about 40% multiple_choice, 30% short_answer, 30% free_recall.
- Questions require synthesis and inference, not lookup.
- Build distractors from partial truths and reversed cause and effect.
- Calibrate so a casual viewer scores 50% or less.`,
}

func buildSynthesisPrompt(title, transcript string, count int, difficulty domain.Difficulty, weak []string) string {
	var b strings.Builder
	b.WriteString("You write study quizzes from video transcripts.\n\n")
	if title = strings.TrimSpace(title); title != "" {
		fmt.Fprintf(&b, "Video title: %s\n", title)
	}
	fmt.Fprintf(&b, "Write exactly %d questions about the transcript below.\n\n", count)
	b.WriteString(difficultyPolicies[difficulty])
	b.WriteString("\n\n")

	if len(weak) > 0 {
		fmt.Fprintf(&b, "The learner previously struggled with: %s. Include 1-2 questions that reinforce these concepts when the transcript covers them.\n\n",
			strings.Join(weak, ", "))
	}

	b.WriteString(`Rules:
- "kind" is one of "multiple_choice", "short_answer", "free_recall".
- multiple_choice questions have exactly 4 options labelled A, B, C, D and "correctAnswer" is the label.
- Other kinds have no options and "correctAnswer" is a short reference answer.
- "concept" names the idea the question tests in a few words.
- "citationQuote" is a short quote copied word for word from the transcript that supports the answer.

Respond with one JSON object only, in this shape:
{"title": "...", "questions": [{"kind": "multiple_choice", "prompt": "...", "options": [{"label": "A", "text": "..."}], "correctAnswer": "A", "concept": "...", "citationQuote": "..."}]}

Transcript:
`)
	b.WriteString(transcript)
	return b.String()
}

type rawQuiz struct {
	Title     string        `json:"title"`
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Kind          string      `json:"kind"`
	Prompt        string      `json:"prompt"`
	Options       []rawOption `json:"options"`
	CorrectAnswer string      `json:"correctAnswer"`
	Concept       string      `json:"concept"`
	CitationQuote string      `json:"citationQuote"`
}

// rawOption accepts {"label","text"} objects as well as bare strings.
type rawOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

func (o *rawOption) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		o.Text = text
		return nil
	}
	type plain rawOption
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = rawOption(p)
	return nil
}

func (q rawQuestion) toDraft() (domain.QuestionDraft, error) {
	options := make([]domain.Option, 0, len(q.Options))
	for i, o := range q.Options {
		label := textmatch.NormalizeLabel(o.Label)
		if label == "" {
			label = string(rune('A' + i))
		}
		options = append(options, domain.Option{Label: label, Text: strings.TrimSpace(o.Text)})
	}

	kind, ok := domain.ParseQuestionKind(q.Kind)
	if !ok {
		if len(options) == domain.MultipleChoiceOptions {
			kind = domain.KindMultipleChoice
		} else {
			kind = domain.KindShortAnswer
		}
	}

	draft := domain.QuestionDraft{
		Kind:          kind,
		Prompt:        strings.TrimSpace(q.Prompt),
		CorrectAnswer: strings.TrimSpace(q.CorrectAnswer),
		Concept:       strings.TrimSpace(q.Concept),
		CitationQuote: strings.TrimSpace(q.CitationQuote),
	}
	if kind == domain.KindMultipleChoice {
		draft.Options = options
		draft.CorrectAnswer = answerLabel(options, draft.CorrectAnswer)
	}
	return draft, draft.Validate()
}

// answerLabel maps an answer given as a label or as option text to its label.
func answerLabel(options []domain.Option, answer string) string {
	label := textmatch.NormalizeLabel(answer)
	for _, o := range options {
		if o.Label == label {
			return o.Label
		}
	}
	want := textmatch.NormalizeWords(answer)
	for _, o := range options {
		if want != "" && textmatch.NormalizeWords(o.Text) == want {
			return o.Label
		}
	}
	return answer
}
