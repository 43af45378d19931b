package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
)

// Ensure Catalog implements the interface.
var _ driving.Catalog = (*Catalog)(nil)

// Catalog resolves work areas and their document listings.
type Catalog struct {
	source driven.DocumentSource
}

// NewCatalog creates a catalog over a document source.
func NewCatalog(source driven.DocumentSource) *Catalog {
	return &Catalog{source: source}
}

// WorkAreas lists the available work areas.
func (c *Catalog) WorkAreas(ctx context.Context) ([]domain.WorkArea, error) {
	if c.source == nil {
		return nil, fmt.Errorf("%w: no document source configured", domain.ErrInvalidInput)
	}
	areas, err := c.source.WorkAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list work areas: %w", err)
	}
	return areas, nil
}

// WorkArea returns the first work area with the given name.
func (c *Catalog) WorkArea(ctx context.Context, name string) (*domain.WorkArea, error) {
	areas, err := c.WorkAreas(ctx)
	if err != nil {
		return nil, err
	}
	for i := range areas {
		if areas[i].Name == name {
			return &areas[i], nil
		}
	}
	return nil, fmt.Errorf("work area %q: %w", name, domain.ErrNotFound)
}

// Documents lists the documents of the named work area.
func (c *Catalog) Documents(ctx context.Context, workAreaName string) ([]domain.DocumentRef, error) {
	area, err := c.WorkArea(ctx, workAreaName)
	if err != nil {
		return nil, err
	}
	refs, err := c.source.Documents(ctx, area.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %q: %w", workAreaName, err)
	}
	return refs, nil
}
