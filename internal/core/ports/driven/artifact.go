package driven

import (
	"context"
	"io"
)

// ArtifactPublisher guards and writes the final output file.
type ArtifactPublisher interface {
	// Acquire takes an exclusive claim on outputPath for the duration of
	// a run. A claim held elsewhere yields domain.ErrArchiveLocked.
	Acquire(ctx context.Context, outputPath string) (Artifact, error)
}

// Artifact is a claimed output path.
type Artifact interface {
	// Publish streams write's output into a temporary sibling file and
	// renames it over the output path only when write succeeds. A failed
	// publish leaves any previous output untouched. It returns the number
	// of bytes written.
	Publish(write func(w io.Writer) error) (int64, error)

	// Release drops the claim.
	Release() error
}
