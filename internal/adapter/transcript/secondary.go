package transcript

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"tubequiz/internal/domain"
)

// SecondaryProvider reads the public timed-text caption track. It needs no credential.
type SecondaryProvider struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewSecondaryProvider(baseURL, language string, client *http.Client) *SecondaryProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SecondaryProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   client,
	}
}

func (p *SecondaryProvider) Name() string { return "secondary" }

// json3 caption format
type timedTextResponse struct {
	Events []struct {
		StartMs *float64 `json:"tStartMs"`
		Segs    []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (p *SecondaryProvider) FetchCaptions(ctx context.Context, videoID string) ([]domain.CaptionFragment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("fmt", "json3")
	if p.language != "" {
		q.Set("lang", p.language)
	}

	var body timedTextResponse
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/api/timedtext?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}

	fragments := make([]domain.CaptionFragment, 0, len(body.Events))
	for _, ev := range body.Events {
		var b strings.Builder
		for _, s := range ev.Segs {
			b.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		f := domain.CaptionFragment{Text: text}
		if ev.StartMs != nil {
			secs := *ev.StartMs / 1000
			f.StartSeconds = &secs
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}
