package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHTTPFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mspec", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/PNG; charset=binary")
		w.Write([]byte("png-bytes")) //nolint:errcheck
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{RequestsPerSecond: -1})
	img, err := f.Fetch(context.Background(), mustURL(t, server.URL+"/a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img.Content)
	assert.Equal(t, "image/png", img.MediaType)
}

func TestHTTPFetcher_NoContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0x00, 0x01}) //nolint:errcheck
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{RequestsPerSecond: -1})
	img, err := f.Fetch(context.Background(), mustURL(t, server.URL+"/x.gif"))
	require.NoError(t, err)
	assert.Empty(t, img.MediaType)
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{RequestsPerSecond: -1})
	_, err := f.Fetch(context.Background(), mustURL(t, server.URL+"/missing.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestHTTPFetcher_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte(strings.Repeat("x", 100))) //nolint:errcheck
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{MaxBytes: 10, RequestsPerSecond: -1})
	_, err := f.Fetch(context.Background(), mustURL(t, server.URL))
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	f := NewHTTPFetcher(Options{Timeout: time.Second, RequestsPerSecond: -1})
	_, err := f.Fetch(context.Background(), mustURL(t, addr+"/a.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	f := NewHTTPFetcher(Options{RequestsPerSecond: -1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, mustURL(t, "http://example.invalid/a.png"))
	assert.Error(t, err)
}

func TestHTTPFetcher_NilURL(t *testing.T) {
	f := NewHTTPFetcher(Options{})
	_, err := f.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"image/png", "image/png"},
		{"Image/JPEG; q=0.9", "image/jpeg"},
		{"application/octet-stream", "application/octet-stream"},
		{";;;", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaType(tt.header))
		})
	}
}
