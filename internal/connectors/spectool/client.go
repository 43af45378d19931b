package spectool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRate is the default number of requests per second.
	DefaultRate = 5

	// AuthCookie is the session cookie issued on login.
	AuthCookie = ".ASPXAUTH"

	pathLogin      = "api/spectool/user/login"
	pathWorkAreas  = "api/spectool/workarea/getworkareas"
	pathDocuments  = "api/spectool/workarea/getdocuments"
	pathDocument   = "api/spectool/workarea/getdocument"
	maxErrorLength = 512
)

// Options tunes the HTTP behaviour of a Client. Zero values select defaults.
type Options struct {
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Negative disables throttling.
	RequestsPerSecond float64

	// HTTPClient overrides the underlying client in login mode.
	HTTPClient *http.Client
}

// Ensure Client implements the interface.
var _ driven.DocumentSource = (*Client)(nil)

// Client talks to the spec tool API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	cookie  *http.Cookie
}

func newClient(baseURL string, httpClient *http.Client, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: spec tool url %q", domain.ErrInvalidInput, baseURL)
	}

	limit := rate.Limit(DefaultRate)
	switch {
	case opts.RequestsPerSecond > 0:
		limit = rate.Limit(opts.RequestsPerSecond)
	case opts.RequestsPerSecond < 0:
		limit = rate.Inf
	}

	return &Client{
		baseURL: u,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func timeoutOf(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return DefaultTimeout
}

// Login authenticates with a username and password and returns a client
// carrying the session cookie. A response without the cookie means the
// credentials were rejected.
func Login(ctx context.Context, baseURL, username, password string, opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeoutOf(opts)}
	}

	c, err := newClient(baseURL, httpClient, opts)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, pathLogin, nil, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	for _, cookie := range resp.Cookies() {
		if cookie.Name == AuthCookie && cookie.Value != "" {
			c.cookie = &http.Cookie{Name: cookie.Name, Value: cookie.Value}
			logger.Debug("Logged in to %s as %s", c.baseURL.Host, username)
			return c, nil
		}
	}
	return nil, fmt.Errorf("login as %s: %w", username, domain.ErrAuthInvalid)
}

// NewClientWithToken creates a client authenticating with a static bearer
// token.
func NewClientWithToken(ctx context.Context, baseURL, token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeoutOf(opts)
	return newClient(baseURL, tc, opts)
}

// WorkAreas lists the work areas visible to the user.
func (c *Client) WorkAreas(ctx context.Context) ([]domain.WorkArea, error) {
	var areas []domain.WorkArea
	if err := c.getJSON(ctx, pathWorkAreas, nil, &areas); err != nil {
		return nil, fmt.Errorf("get work areas: %w", err)
	}
	return areas, nil
}

// Documents lists the documents of a work area.
func (c *Client) Documents(ctx context.Context, workAreaID string) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	if err := c.getJSON(ctx, pathDocuments, url.Values{"id": {workAreaID}}, &refs); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("work area %s: %w: %w", workAreaID, domain.ErrNotFound, err)
		}
		return nil, fmt.Errorf("get documents: %w", err)
	}
	return refs, nil
}

// Document retrieves a document with its section tree.
func (c *Client) Document(ctx context.Context, id string) (*domain.RemoteDocument, error) {
	var doc *domain.RemoteDocument
	if err := c.getJSON(ctx, pathDocument, url.Values{"id": {id}}, &doc); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("document %s: %w: %w", id, domain.ErrNotFound, err)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// do sends one throttled request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	target := c.baseURL.JoinPath(path)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	logger.Debug("%s %s", method, target.Redacted())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: target.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorLength))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        target.String(),
		}
	}
	return resp, nil
}
