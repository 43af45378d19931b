package spectool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Ensure DirectorySource implements the interface.
var _ driven.DocumentSource = (*DirectorySource)(nil)

// DirectorySource serves exported API responses from a directory:
//
//	workareas.json                  the work area listing
//	documents-<workAreaId>.json     the document listing of one work area
//	document-<id>.json              one document with its section tree
type DirectorySource struct {
	dir string
}

// NewDirectorySource creates a source reading from dir.
func NewDirectorySource(dir string) (*DirectorySource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &DirectorySource{dir: dir}, nil
}

// WorkAreas reads workareas.json.
func (s *DirectorySource) WorkAreas(_ context.Context) ([]domain.WorkArea, error) {
	var areas []domain.WorkArea
	if err := s.read("workareas.json", &areas); err != nil {
		return nil, err
	}
	return areas, nil
}

// Documents reads documents-<workAreaID>.json.
func (s *DirectorySource) Documents(_ context.Context, workAreaID string) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	if err := s.read("documents-"+workAreaID+".json", &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// Document reads document-<id>.json.
func (s *DirectorySource) Document(_ context.Context, id string) (*domain.RemoteDocument, error) {
	var doc domain.RemoteDocument
	if err := s.read("document-"+id+".json", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DirectorySource) read(name string, out any) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", domain.ErrInvalidInput, name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
