package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/common"
	"github.com/sanjeevkumarraob/pdf-extraction-service/pkg/stream"
)

// Fetcher downloads remote documents.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a fetcher with a whole-request timeout and a body cap.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

// Fetch performs a GET on rawURL and returns the body. Every failure to obtain
// a complete 2xx body is a network error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: no document URL supplied", common.ErrInput)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: unsupported document URL %q", common.ErrNetwork, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", common.ErrNetwork, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", common.ErrNetwork, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: fetch %s: status %d", common.ErrNetwork, rawURL, resp.StatusCode)
	}

	body, err := stream.NewChunkedReader(resp.Body, 64*1024).ReadLimited(f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", common.ErrNetwork, rawURL, err)
	}
	return body, nil
}
