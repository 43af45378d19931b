package driving

import (
	"context"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

// Packager runs the packaging pipeline end to end.
type Packager interface {
	// Build ingests a work area and writes one archive to req.OutputPath,
	// or nothing at all on failure.
	Build(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest configures one packaging run.
type BuildRequest struct {
	// WorkArea is the name of the work area to ingest.
	WorkArea string

	// OutputPath is where the compressed archive is written.
	OutputPath string
}

// BuildResult summarises a successful run.
type BuildResult struct {
	// OutputPath is the written archive.
	OutputPath string

	// Codec names the compression used.
	Codec string

	// Documents is the number of documents stored.
	Documents int

	// Sections is the number of sections stored.
	Sections int

	// Attachments is the number of distinct attachments stored.
	Attachments int

	// ImagesRewritten counts image elements rewritten to internal references.
	ImagesRewritten int

	// ManifestWritten is true when a signed manifest was stored.
	ManifestWritten bool

	// DocumentIDs lists the ingested source document identifiers.
	DocumentIDs []string

	// Bytes is the size of the compressed archive.
	Bytes int64
}

// Catalog exposes the document source listings.
type Catalog interface {
	// WorkAreas lists the available work areas.
	WorkAreas(ctx context.Context) ([]domain.WorkArea, error)

	// Documents lists the documents of the named work area.
	Documents(ctx context.Context, workAreaName string) ([]domain.DocumentRef, error)
}
