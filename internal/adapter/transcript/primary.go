package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"tubequiz/internal/domain"
)

// ErrMissingCredential is returned by the primary provider when no API key is configured.
var ErrMissingCredential = errors.New("primary transcript provider has no API key")

// PrimaryProvider is the credentialed transcript API.
type PrimaryProvider struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

// NewPrimaryProvider builds the credentialed provider. An empty apiKey is allowed;
// FetchCaptions then fails with ErrMissingCredential.
func NewPrimaryProvider(baseURL, apiKey, language string, client *http.Client) *PrimaryProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &PrimaryProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		client:   client,
	}
}

func (p *PrimaryProvider) Name() string { return "primary" }

type primaryResponse struct {
	Content []struct {
		Text     string   `json:"text"`
		Offset   *float64 `json:"offset"` // milliseconds
		Duration float64  `json:"duration"`
		Lang     string   `json:"lang"`
	} `json:"content"`
	Lang string `json:"lang"`
}

// FetchCaptions performs a single request; retries belong to the caller.
func (p *PrimaryProvider) FetchCaptions(ctx context.Context, videoID string) ([]domain.CaptionFragment, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("videoId", videoID)
	if p.language != "" {
		q.Set("lang", p.language)
	}

	var body primaryResponse
	err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/youtube/transcript?"+q.Encode(),
		map[string]string{"x-api-key": p.apiKey}, &body)
	if err != nil {
		return nil, err
	}

	fragments := make([]domain.CaptionFragment, 0, len(body.Content))
	for _, c := range body.Content {
		f := domain.CaptionFragment{Text: c.Text}
		if c.Offset != nil {
			secs := *c.Offset / 1000
			f.StartSeconds = &secs
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}
