package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Valid section identifiers for mapped fixtures.
const (
	guidA = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f60"
	guidB = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f61"
	guidC = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f62"
	guidD = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f63"
	guidE = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f64"
	guidF = "6f1c9a52-3c1e-4c5f-9a8e-1b2c3d4e5f65"
)

// pngBytes is a minimal PNG signature followed by a marker byte.
func pngBytes(marker byte) []byte {
	return []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', marker}
}

type fakeSource struct {
	areas     []domain.WorkArea
	documents map[string][]domain.DocumentRef
	remote    map[string]*domain.RemoteDocument
	err       error
}

var _ driven.DocumentSource = (*fakeSource)(nil)

func (s *fakeSource) WorkAreas(_ context.Context) ([]domain.WorkArea, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.areas, nil
}

func (s *fakeSource) Documents(_ context.Context, workAreaID string) ([]domain.DocumentRef, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.documents[workAreaID], nil
}

func (s *fakeSource) Document(_ context.Context, id string) (*domain.RemoteDocument, error) {
	doc, ok := s.remote[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

type fakeResponse struct {
	content   []byte
	mediaType string
	status    int
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	gate        chan struct{}
}

var _ driven.ImageFetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]fakeResponse),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) serve(rawURL string, content []byte, mediaType string) *fakeFetcher {
	f.responses[rawURL] = fakeResponse{content: content, mediaType: mediaType}
	return f
}

func (f *fakeFetcher) fail(rawURL string, status int) *fakeFetcher {
	f.responses[rawURL] = fakeResponse{status: status}
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, u *url.URL) (*driven.FetchedImage, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.calls[u.String()]++
	resp, ok := f.responses[u.String()]
	f.mu.Unlock()

	if !ok {
		return nil, &domain.FetchError{URL: u.String(), StatusCode: 404}
	}
	if resp.status != 0 {
		return nil, &domain.FetchError{URL: u.String(), StatusCode: resp.status}
	}
	return &driven.FetchedImage{Content: resp.content, MediaType: resp.mediaType}, nil
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// fakeSigner wraps claims in a trivially checkable envelope.
type fakeSigner struct {
	signed []map[string]any
}

var _ driven.ManifestSigner = (*fakeSigner)(nil)

func (s *fakeSigner) Sign(claims map[string]any) ([]byte, error) {
	s.signed = append(s.signed, claims)
	return []byte(fmt.Sprintf("signed:%d", len(s.signed))), nil
}

func (s *fakeSigner) Verify(token []byte) (map[string]any, error) {
	var n int
	if _, err := fmt.Sscanf(string(token), "signed:%d", &n); err != nil || n < 1 || n > len(s.signed) {
		return nil, fmt.Errorf("bad token %q", token)
	}
	return s.signed[n-1], nil
}
