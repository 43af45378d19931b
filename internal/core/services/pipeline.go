package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
	"github.com/custodia-labs/mspec/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Packager = (*Pipeline)(nil)

// ManifestClaim is the claim listing the ingested source document ids.
const ManifestClaim = "workAreaDocIds"

// storeFileName is the name of the working store inside the run's temp dir.
const storeFileName = "archive.db"

// PipelineOptions tunes a packaging run.
type PipelineOptions struct {
	// URNKind is embedded in internal image references. Defaults to "mspec".
	URNKind string

	// Concurrency bounds parallel image fetches per section.
	Concurrency int

	// TempDir hosts the working store. Empty uses the system default.
	TempDir string

	// NewKey mints the work specification key. Defaults to a random UUID.
	NewKey func() string
}

// Pipeline runs ingestion, image embedding and packaging. A run produces
// exactly one archive or none, and removes its working store on every
// exit path.
type Pipeline struct {
	catalog   *Catalog
	source    driven.DocumentSource
	stores    driven.ArchiveStoreFactory
	fetcher   driven.ImageFetcher
	markup    driven.MarkupRewriter
	codec     driven.Codec
	publisher driven.ArtifactPublisher
	signer    driven.ManifestSigner
	mapper    *SectionMapper
	opts      PipelineOptions
}

// NewPipeline creates a packaging pipeline.
// The signer is optional - if nil, no manifest is written.
func NewPipeline(
	source driven.DocumentSource,
	stores driven.ArchiveStoreFactory,
	fetcher driven.ImageFetcher,
	markup driven.MarkupRewriter,
	codec driven.Codec,
	publisher driven.ArtifactPublisher,
	signer driven.ManifestSigner,
	opts PipelineOptions,
) *Pipeline {
	if opts.NewKey == nil {
		opts.NewKey = func() string { return uuid.New().String() }
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultImageConcurrency
	}
	return &Pipeline{
		catalog:   NewCatalog(source),
		source:    source,
		stores:    stores,
		fetcher:   fetcher,
		markup:    markup,
		codec:     codec,
		publisher: publisher,
		signer:    signer,
		mapper:    NewSectionMapper(),
		opts:      opts,
	}
}

// Build runs the whole pipeline for one work area.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) Build(ctx context.Context, req driving.BuildRequest) (*driving.BuildResult, error) {
	if req.WorkArea == "" || req.OutputPath == "" {
		return nil, fmt.Errorf("%w: work area and output path are required", domain.ErrInvalidInput)
	}

	// 1. Claim the output path
	artifact, err := p.publisher.Acquire(ctx, req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("acquire output: %w", err)
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			logger.Warn("Releasing %s: %v", req.OutputPath, err)
		}
	}()

	// 2. Fresh store in a private temp dir, removed on every exit path
	workDir, err := os.MkdirTemp(p.opts.TempDir, "mspec-build-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Error("Removing %s: %v", workDir, err)
		}
	}()

	storePath := filepath.Join(workDir, storeFileName)
	store, err := p.stores.Create(ctx, storePath)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	result := &driving.BuildResult{
		OutputPath: req.OutputPath,
		Codec:      p.codec.Name(),
	}

	// 3. Map documents
	logger.Section("Mapping")
	if err := p.ingest(ctx, store, req.WorkArea, result); err != nil {
		return nil, err
	}

	// 4. Embed images
	logger.Section("Embedding images")
	attachments := NewAttachmentService(store.AttachmentStore())
	externaliser := NewImageExternaliser(p.fetcher, p.markup, attachments, store, p.opts.URNKind, p.opts.Concurrency)
	for _, kind := range []domain.DocumentKind{
		domain.KindConstructionElementSpecification,
		domain.KindWorkSpecification,
	} {
		sections, err := store.SectionStore().ListSections(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s sections: %w", kind, err)
		}
		stats, err := externaliser.Externalise(ctx, sections)
		if err != nil {
			return nil, fmt.Errorf("embed images: %w", err)
		}
		result.ImagesRewritten += stats.Rewritten
		logger.Info("Embedded %d images in %d %s sections", stats.Rewritten, stats.SectionsChanged, kind)
	}
	created, _ := attachments.Counts()
	result.Attachments = created

	// 5. Signed manifest
	if p.signer != nil {
		if err := p.writeManifest(ctx, store, result.DocumentIDs); err != nil {
			return nil, err
		}
		result.ManifestWritten = true
	}

	// 6. Close before reading the store's bytes
	logger.Section("Packaging")
	if err := store.Close(); err != nil {
		return nil, fmt.Errorf("close store: %w", err)
	}

	// 7. Compress into the output path
	written, err := artifact.Publish(func(w io.Writer) error {
		f, err := os.Open(storePath)
		if err != nil {
			return err
		}
		defer f.Close()
		return p.codec.Compress(w, f)
	})
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", req.OutputPath, err)
	}
	result.Bytes = written

	logger.Info("Wrote %s (%d bytes, %s)", req.OutputPath, written, p.codec.Name())
	return result, nil
}

// ingest maps the construction element specifications of the work area,
// then its work specification, and links them.
func (p *Pipeline) ingest(ctx context.Context, store driven.ArchiveStore, workAreaName string, result *driving.BuildResult) error {
	area, err := p.catalog.WorkArea(ctx, workAreaName)
	if err != nil {
		return err
	}
	refs, err := p.source.Documents(ctx, area.ID)
	if err != nil {
		return fmt.Errorf("list documents of %q: %w", workAreaName, err)
	}

	var workSpecRef *domain.DocumentRef
	var elements []domain.Document
	for i := range refs {
		ref := &refs[i]
		result.DocumentIDs = append(result.DocumentIDs, ref.ID)

		switch ref.Type {
		case domain.RemoteTypeConstructionElementSpecification:
			mapped, err := p.fetchAndMap(ctx, ref.ID, domain.KindConstructionElementSpecification)
			if err != nil {
				return err
			}
			if err := p.persist(ctx, store, mapped, result); err != nil {
				return err
			}
			elements = append(elements, mapped.Document)
		case domain.RemoteTypeWorkSpecification:
			if workSpecRef == nil {
				workSpecRef = ref
			}
		}
	}

	if workSpecRef == nil {
		return fmt.Errorf("work specification in %q: %w", workAreaName, domain.ErrNotFound)
	}

	mapped, err := p.fetchAndMap(ctx, workSpecRef.ID, domain.KindWorkSpecification)
	if err != nil {
		return err
	}
	mapped.Document.Name = workSpecRef.WorkAreaName
	mapped.Document.Code = workSpecRef.WorkAreaID
	mapped.Document.Key = p.opts.NewKey()
	if err := p.persist(ctx, store, mapped, result); err != nil {
		return err
	}

	return p.link(ctx, store, mapped, elements)
}

func (p *Pipeline) fetchAndMap(ctx context.Context, id string, kind domain.DocumentKind) (*domain.MappedDocument, error) {
	remote, err := p.source.Document(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	mapped, err := p.mapper.MapDocument(remote, kind)
	if err != nil {
		return nil, err
	}
	logger.Debug("Mapped %s %q: %d sections", kind, remote.Name, mapped.Tree.Len())
	return mapped, nil
}

func (p *Pipeline) persist(ctx context.Context, store driven.ArchiveStore, mapped *domain.MappedDocument, result *driving.BuildResult) error {
	if err := store.DocumentStore().SaveDocument(ctx, &mapped.Document); err != nil {
		return fmt.Errorf("save document %s: %w", mapped.Document.GUID, err)
	}
	if err := store.SectionStore().SaveTree(ctx, &mapped.Document, &mapped.Tree); err != nil {
		return fmt.Errorf("save sections of %s: %w", mapped.Document.GUID, err)
	}
	result.Documents++
	result.Sections += mapped.Tree.Len()
	return nil
}

// link associates every construction element specification with the work
// specification's root section number 1.
func (p *Pipeline) link(ctx context.Context, store driven.ArchiveStore, workSpec *domain.MappedDocument, elements []domain.Document) error {
	if len(elements) == 0 {
		return nil
	}

	var scope *domain.Section
	for _, root := range workSpec.Tree.Roots() {
		if root.SectionNo == 1 {
			scope = root
			break
		}
	}
	if scope == nil {
		logger.Warn("Work specification %q has no section 1; construction elements left unlinked", workSpec.Document.Name)
		return nil
	}

	refs := make([]domain.CrossReference, 0, len(elements))
	for i, element := range elements {
		sectionID := scope.ID
		refs = append(refs, domain.CrossReference{
			FromDocument: workSpec.Document.ID,
			FromSection:  &sectionID,
			ToDocument:   element.ID,
			Position:     i,
		})
	}
	if err := store.DocumentStore().SaveCrossReferences(ctx, refs); err != nil {
		return fmt.Errorf("save cross references: %w", err)
	}
	return nil
}

func (p *Pipeline) writeManifest(ctx context.Context, store driven.ArchiveStore, documentIDs []string) error {
	ids := documentIDs
	if ids == nil {
		ids = []string{}
	}
	token, err := p.signer.Sign(map[string]any{ManifestClaim: ids})
	if err != nil {
		return fmt.Errorf("sign manifest: %w", err)
	}
	err = store.CustomDataStore().Put(ctx, domain.CustomData{Key: domain.ManifestKey, Value: token})
	if err != nil {
		if errors.Is(err, domain.ErrStoreIntegrityViolation) {
			return fmt.Errorf("manifest already present: %w", err)
		}
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}
