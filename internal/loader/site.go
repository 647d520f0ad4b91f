// ABOUTME: Site loader: fetches a URL and extracts its readable text
// ABOUTME: Responses are capped in size; HTTP failures map to ErrServiceUnavailable
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harper/datachat/internal/models"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; datachat/1.0)"
	maxPageBytes     = 2 << 20
)

// Fetcher downloads pages over HTTP
type Fetcher struct {
	client    *http.Client
	UserAgent string
}

// NewFetcher creates a Fetcher whose requests time out after timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

// Fetch downloads rawURL and returns its readable text. The document name is
// the URL host and path, which keeps pages of one site in separate namespaces.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", models.ErrUnsupportedInput, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", models.ErrUnsupportedInput, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", models.ErrServiceUnavailable, u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", models.ErrServiceUnavailable, resp.StatusCode, u)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", models.ErrServiceUnavailable, u, err)
	}

	text, err := HTMLText(body, u)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrUnsupportedInput, u, err)
	}
	text = Normalize(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s has no readable text", models.ErrUnsupportedInput, u)
	}

	return &Document{
		Name: u.Host + strings.TrimSuffix(u.Path, "/"),
		Path: u.String(),
		Text: text,
	}, nil
}
