// Package artifact writes the final archive file atomically under an
// exclusive file lock.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// LockSuffix is appended to the output path to name its lock file.
const LockSuffix = ".lock"

// Ensure Publisher implements the interface.
var _ driven.ArtifactPublisher = (*Publisher)(nil)

// Publisher claims output paths with an advisory flock on <output>.lock.
type Publisher struct {
	// FileMode is applied to published files. Defaults to 0644.
	FileMode os.FileMode
}

// NewPublisher creates a publisher with default file permissions.
func NewPublisher() *Publisher {
	return &Publisher{FileMode: 0644}
}

// Acquire locks outputPath for this process. A lock held by another run
// yields domain.ErrArchiveLocked.
func (p *Publisher) Acquire(ctx context.Context, outputPath string) (driven.Artifact, error) {
	if outputPath == "" {
		return nil, fmt.Errorf("%w: empty output path", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	lock := flock.New(outputPath + LockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", outputPath, domain.ErrArchiveLocked)
	}

	mode := p.FileMode
	if mode == 0 {
		mode = 0644
	}
	return &fileArtifact{path: outputPath, lock: lock, mode: mode}, nil
}

type fileArtifact struct {
	path string
	lock *flock.Flock
	mode os.FileMode

	mu       sync.Mutex
	released bool
}

// Publish streams into a hidden temp file beside the output, syncs it
// and renames it into place. On failure the temp file is removed and the
// previous output, if any, is left as it was.
func (a *fileArtifact) Publish(write func(w io.Writer) error) (written int64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return 0, fmt.Errorf("%w: artifact already released", domain.ErrInvalidInput)
	}

	dir, base := filepath.Split(a.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{w: tmp}
	if err = write(cw); err != nil {
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return 0, fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, a.mode); err != nil {
		return 0, fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmpPath, a.path); err != nil {
		return 0, fmt.Errorf("renaming into place: %w", err)
	}
	syncDir(dir)

	return cw.n, nil
}

// Release unlocks the output path. Further calls are no-ops.
func (a *fileArtifact) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	return a.lock.Unlock()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
