package textmatch

import (
	"strings"

	"tubequiz/internal/domain"
)

// IsCorrect checks an answer without any external call.
//
// Multiple choice compares normalized labels for equality. Free-form kinds
// accept an exact normalized match or containment in either direction.
func IsCorrect(q domain.Question, answerText string) bool {
	if q.Kind == domain.KindMultipleChoice {
		want := NormalizeLabel(q.CorrectAnswer)
		return want != "" && NormalizeLabel(answerText) == want
	}

	want := NormalizeWords(q.CorrectAnswer)
	got := NormalizeWords(answerText)
	if got == want {
		return true
	}
	if got == "" || want == "" {
		return false
	}
	return strings.Contains(got, want) || strings.Contains(want, got)
}
