package textmatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tubequiz/internal/domain"
)

var marker = regexp.MustCompile(`\[(\d+):(\d{2})\]`)

// FormatTimestamp renders whole seconds as a "[m:ss]" marker. Minutes are not
// wrapped into hours.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("[%d:%02d]", seconds/60, seconds%60)
}

// ParseSegments scans "[m:ss]" markers and returns the text following each one,
// in order. Text before the first marker is ignored.
func ParseSegments(timestamped string) []domain.TranscriptSegment {
	locs := marker.FindAllStringSubmatchIndex(timestamped, -1)
	segments := make([]domain.TranscriptSegment, 0, len(locs))
	for i, loc := range locs {
		minutes, _ := strconv.Atoi(timestamped[loc[2]:loc[3]])
		seconds, _ := strconv.Atoi(timestamped[loc[4]:loc[5]])

		end := len(timestamped)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, domain.TranscriptSegment{
			StartSeconds: minutes*60 + seconds,
			Text:         strings.TrimSpace(timestamped[loc[1]:end]),
		})
	}
	return segments
}
