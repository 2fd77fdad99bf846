package album

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mirrorhub/pkg/utils"
)

// ErrUpstreamUnavailable covers both transport failures and non-2xx
// answers from the album host. Callers get no finer distinction and no
// retry; a failed attempt is a definitive miss for that request.
var ErrUpstreamUnavailable = errors.New("album: upstream unavailable")

// Fetcher retrieves album pages from the upstream host. Yupoo serves
// different (or no) content without a browser user-agent and an on-site
// referrer, so every request wears both.
type Fetcher struct {
	Client    *http.Client
	BaseURL   string // e.g. https://rmqc.x.yupoo.com
	Referer   string
	UserAgent string
}

func NewFetcher(cfg utils.UpstreamConfig) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: cfg.Timeout},
		BaseURL:   "https://" + cfg.AlbumHost,
		Referer:   "https://" + cfg.AlbumHost + "/",
		UserAgent: cfg.UserAgent,
	}
}

// FetchPage returns the raw HTML of the album page for albumID.
func (f *Fetcher) FetchPage(ctx context.Context, albumID string) (string, error) {
	url := fmt.Sprintf("%s/albums/%s?uid=1", f.BaseURL, albumID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("album: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Referer", f.Referer)

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", ErrUpstreamUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrUpstreamUnavailable
	}
	return string(body), nil
}
