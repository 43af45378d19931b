package driven

import (
	"context"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

// DocumentSource delivers documents from the remote specification system.
// Authentication happens when the source is constructed.
type DocumentSource interface {
	// WorkAreas lists the work areas visible to the authenticated user.
	WorkAreas(ctx context.Context) ([]domain.WorkArea, error)

	// Documents lists the documents of a work area.
	Documents(ctx context.Context, workAreaID string) ([]domain.DocumentRef, error)

	// Document retrieves one document with its full section tree.
	Document(ctx context.Context, id string) (*domain.RemoteDocument, error)
}
