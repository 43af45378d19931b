package driven

import (
	"context"
	"net/url"
)

// ImageFetcher retrieves externally referenced images.
type ImageFetcher interface {
	// Fetch downloads the resource at u. Any non-success response is
	// reported as a *domain.FetchError.
	Fetch(ctx context.Context, u *url.URL) (*FetchedImage, error)
}

// FetchedImage is the body and metadata of a successful fetch.
type FetchedImage struct {
	// Content is the raw response body.
	Content []byte

	// MediaType is the response's content type without parameters,
	// empty when the header was absent.
	MediaType string
}
