// Package fetch downloads externally referenced images over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps a single image body.
	DefaultMaxBytes int64 = 32 << 20

	// DefaultRate is the default number of requests per second across
	// all concurrent fetches.
	DefaultRate = 20
)

// ErrTooLarge indicates a response body above the configured limit.
var ErrTooLarge = errors.New("response exceeds size limit")

// Options configures an HTTPFetcher. Zero values select the defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64

	// RequestsPerSecond throttles fetches. Negative disables throttling.
	RequestsPerSecond float64

	UserAgent string

	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Ensure HTTPFetcher implements the interface.
var _ driven.ImageFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher is a throttled, size-limited image downloader. It is safe
// for concurrent use.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxBytes  int64
	userAgent string
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRate
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mspec"
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &HTTPFetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// Fetch downloads u. Transport failures, non-2xx statuses and oversized
// bodies are all reported as *domain.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*driven.FetchedImage, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil url", domain.ErrInvalidInput)
	}
	target := u.String()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, &domain.FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &domain.FetchError{URL: target, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &domain.FetchError{URL: target, Err: ErrTooLarge}
	}

	return &driven.FetchedImage{
		Content:   body,
		MediaType: MediaType(resp.Header.Get("Content-Type")),
	}, nil
}

// MediaType strips parameters from a Content-Type header value and
// lowercases it. Missing or unparseable headers yield "".
func MediaType(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
