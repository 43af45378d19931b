package driving

import "context"

// Inspector opens a finished archive and checks its integrity.
type Inspector interface {
	// Inspect decompresses and verifies the archive at path.
	Inspect(ctx context.Context, path string) (*InspectReport, error)
}

// InspectReport describes the contents of an archive.
type InspectReport struct {
	Path        string
	Codec       string
	Documents   []DocumentSummary
	Sections    int
	Attachments int
	Links       int

	// CrossReferences counts document to section links.
	CrossReferences int
	CustomKeys      []string

	// ImageReferences counts image elements across all bodies.
	ImageReferences int

	// Problems lists integrity violations: external or dangling image
	// references, duplicate hashes.
	Problems []string

	// Manifest holds the verified manifest claims, nil when absent or
	// when no signer was configured.
	Manifest map[string]any
}

// OK returns true if no problems were found.
func (r *InspectReport) OK() bool {
	return len(r.Problems) == 0
}

// DocumentSummary describes one document in an archive.
type DocumentSummary struct {
	ID       int64
	Kind     string
	Name     string
	GUID     string
	Sections int
}
