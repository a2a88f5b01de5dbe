package textmatch

import "strings"

// DefaultOverlapThreshold is the minimum share of quote words a segment must
// contain before its timestamp is trusted.
const DefaultOverlapThreshold = 0.5

// Resolver locates a citation quote inside a timestamped transcript.
type Resolver struct {
	threshold float64
}

// NewResolver returns a Resolver; a non-positive threshold selects the default.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}
	return &Resolver{threshold: threshold}
}

type normSegment struct {
	seconds int
	text    string
	words   map[string]struct{}
}

func newNormSegment(seconds int, text string) normSegment {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		words[w] = struct{}{}
	}
	return normSegment{seconds: seconds, text: text, words: words}
}

// Resolve returns the start second of the segment that best matches quote.
// ok is false when nothing reaches the overlap threshold.
func (r *Resolver) Resolve(quote, timestamped string) (seconds int, ok bool) {
	q := NormalizeWords(quote)
	quoteWords := strings.Fields(q)
	if len(quoteWords) == 0 {
		return 0, false
	}

	parsed := ParseSegments(timestamped)
	segments := make([]normSegment, 0, len(parsed))
	for _, s := range parsed {
		segments = append(segments, newNormSegment(s.StartSeconds, NormalizeWords(s.Text)))
	}

	for _, s := range segments {
		if strings.Contains(s.text, q) {
			return s.seconds, true
		}
	}

	best, bestAt := 0.0, -1
	for _, s := range segments {
		if score := overlap(quoteWords, s.words); score > best {
			best, bestAt = score, s.seconds
		}
	}

	// Quotes may straddle a caption boundary.
	for i := 0; i+1 < len(segments); i++ {
		pair := newNormSegment(segments[i].seconds, segments[i].text+" "+segments[i+1].text)
		score := overlap(quoteWords, pair.words)
		if strings.Contains(pair.text, q) {
			score = 1
		}
		if score > best {
			best, bestAt = score, pair.seconds
		}
	}

	if bestAt < 0 || best < r.threshold {
		return 0, false
	}
	return bestAt, true
}

func overlap(quoteWords []string, words map[string]struct{}) float64 {
	hits := 0
	for _, w := range quoteWords {
		if _, found := words[w]; found {
			hits++
		}
	}
	return float64(hits) / float64(len(quoteWords))
}

// ResolveTimestamp resolves quote with the default overlap threshold.
func ResolveTimestamp(quote, timestamped string) (int, bool) {
	return NewResolver(DefaultOverlapThreshold).Resolve(quote, timestamped)
}
