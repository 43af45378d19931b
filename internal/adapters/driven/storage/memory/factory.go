package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ArchiveStoreFactory = (*Factory)(nil)

// Factory hands out in-memory archives and remembers them by path, so
// tests can look inside an archive after the pipeline closed it.
// Create touches an empty file at path to stand in for the database.
type Factory struct {
	mu       sync.Mutex
	archives map[string]*Archive
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{archives: make(map[string]*Archive)}
}

// Create returns a fresh archive registered under path.
func (f *Factory) Create(_ context.Context, path string) (driven.ArchiveStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.archives[path]; ok {
		return nil, fmt.Errorf("%w: %s already exists", domain.ErrInvalidInput, path)
	}
	if err := os.WriteFile(path, nil, 0600); err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	a := NewArchive(path)
	f.archives[path] = a
	return a, nil
}

// Open reopens the archive created under path.
func (f *Factory) Open(_ context.Context, path string) (driven.ArchiveStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.archives[path]
	if !ok {
		return nil, fmt.Errorf("store %s: %w", path, domain.ErrNotFound)
	}
	a.mu.Lock()
	a.closed = false
	a.mu.Unlock()
	return a, nil
}

// Archives returns every archive created so far.
func (f *Factory) Archives() []*Archive {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Archive, 0, len(f.archives))
	for _, a := range f.archives {
		out = append(out, a)
	}
	return out
}
