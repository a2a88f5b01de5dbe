package domain

import "context"

// CaptionFragment is one caption cue as returned by a transcript provider.
// StartSeconds is nil when the provider gave no offset.
type CaptionFragment struct {
	Text         string
	StartSeconds *float64
}

// TranscriptSegment is a caption cue with its integer start second.
type TranscriptSegment struct {
	StartSeconds int    `json:"start_seconds"`
	Text         string `json:"text"`
}

// Transcript is the normalized transcript of one video.
// TimestampedText is empty when it would equal PlainText.
type Transcript struct {
	VideoID         string              `json:"video_id"`
	PlainText       string              `json:"plain_text"`
	TimestampedText string              `json:"timestamped_text,omitempty"`
	Segments        []TranscriptSegment `json:"segments"`
	Source          string              `json:"source"`
}

// TimedText returns the timestamped rendering when present, else the plain text.
func (t *Transcript) TimedText() string {
	if t.TimestampedText != "" {
		return t.TimestampedText
	}
	return t.PlainText
}

// TranscriptProvider fetches raw caption fragments for a video.
type TranscriptProvider interface {
	Name() string
	FetchCaptions(ctx context.Context, videoID string) ([]CaptionFragment, error)
}

// TranscriptSource yields a normalized transcript or a TRANSCRIPT_UNAVAILABLE error.
type TranscriptSource interface {
	Acquire(ctx context.Context, videoID string) (*Transcript, error)
}
