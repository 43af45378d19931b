package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
	"github.com/custodia-labs/mspec/internal/core/ports/driving"
	"github.com/custodia-labs/mspec/internal/logger"
)

// Ensure Inspector implements the interface.
var _ driving.Inspector = (*Inspector)(nil)

// Inspector decompresses a finished archive into a temp file and checks it.
type Inspector struct {
	stores   driven.ArchiveStoreFactory
	markup   driven.MarkupRewriter
	codecFor driven.CodecResolver
	signer   driven.ManifestSigner
	tempDir  string
}

// NewInspector creates an inspector. codecFor chooses the codec from the
// archive path. The signer is optional - if nil, the manifest is reported
// as present but not verified.
func NewInspector(
	stores driven.ArchiveStoreFactory,
	markup driven.MarkupRewriter,
	codecFor driven.CodecResolver,
	signer driven.ManifestSigner,
	tempDir string,
) *Inspector {
	return &Inspector{
		stores:   stores,
		markup:   markup,
		codecFor: codecFor,
		signer:   signer,
		tempDir:  tempDir,
	}
}

// Inspect reports the contents of the archive at path and every integrity
// problem found. Problems do not make Inspect fail; I/O errors do.
func (i *Inspector) Inspect(ctx context.Context, path string) (*driving.InspectReport, error) {
	codec, err := i.codec(path)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(i.tempDir, "mspec-inspect-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	storePath := filepath.Join(workDir, storeFileName)
	if err := decompressFile(codec, path, storePath); err != nil {
		return nil, err
	}

	store, err := i.stores.Open(ctx, storePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	report := &driving.InspectReport{Path: path, Codec: codec.Name()}
	if err := i.inspectDocuments(ctx, store, report); err != nil {
		return nil, err
	}
	attachments, err := i.inspectAttachments(ctx, store, report)
	if err != nil {
		return nil, err
	}
	if err := i.inspectBodies(ctx, store, attachments, report); err != nil {
		return nil, err
	}
	if err := i.inspectCustomData(ctx, store, report); err != nil {
		return nil, err
	}

	logger.Debug("Inspected %s: %d documents, %d sections, %d problems",
		path, len(report.Documents), report.Sections, len(report.Problems))
	return report, nil
}

func (i *Inspector) codec(path string) (driven.Codec, error) {
	var c driven.Codec
	if i.codecFor != nil {
		c = i.codecFor(path)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: no codec for %s", domain.ErrInvalidInput, path)
	}
	return c, nil
}

func decompressFile(codec driven.Codec, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive %s: %w", src, domain.ErrNotFound)
		}
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	if err := codec.Decompress(out, in); err != nil {
		out.Close()
		return fmt.Errorf("decompress %s: %w", src, err)
	}
	return out.Close()
}

func (i *Inspector) inspectDocuments(ctx context.Context, store driven.ArchiveStore, report *driving.InspectReport) error {
	docs, err := store.DocumentStore().ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	sections, err := store.SectionStore().ListSections(ctx, "")
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}

	perDoc := make(map[int64]int, len(docs))
	for _, s := range sections {
		perDoc[s.DocumentID]++
	}
	for _, d := range docs {
		report.Documents = append(report.Documents, driving.DocumentSummary{
			ID:       d.ID,
			Kind:     d.Kind.String(),
			Name:     d.Name,
			GUID:     d.GUID,
			Sections: perDoc[d.ID],
		})
	}
	report.Sections = len(sections)

	refs, err := store.DocumentStore().ListCrossReferences(ctx)
	if err != nil {
		return fmt.Errorf("list cross references: %w", err)
	}
	known := make(map[int64]bool, len(docs))
	for _, d := range docs {
		known[d.ID] = true
	}
	for _, r := range refs {
		if !known[r.FromDocument] || !known[r.ToDocument] {
			report.Problems = append(report.Problems,
				fmt.Sprintf("cross reference %d: unknown document", r.ID))
		}
	}
	report.CrossReferences = len(refs)
	return nil
}

func (i *Inspector) inspectAttachments(ctx context.Context, store driven.ArchiveStore, report *driving.InspectReport) (map[int64]bool, error) {
	attachments, err := store.AttachmentStore().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	links, err := store.AttachmentStore().Links(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attachment links: %w", err)
	}
	report.Attachments = len(attachments)
	report.Links = len(links)

	ids := make(map[int64]bool, len(attachments))
	hashes := make(map[string]int64, len(attachments))
	for idx := range attachments {
		a := &attachments[idx]
		ids[a.ID] = true
		if !a.Matches(domain.HashContent(a.Content)) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("attachment %d: hash does not match content", a.ID))
		}
		key := a.HashKey()
		if other, dup := hashes[key]; dup {
			report.Problems = append(report.Problems,
				fmt.Sprintf("attachments %d and %d share hash %s", other, a.ID, key))
			continue
		}
		hashes[key] = a.ID
	}
	for _, l := range links {
		if !ids[l.AttachmentID] {
			report.Problems = append(report.Problems,
				fmt.Sprintf("section %d links missing attachment %d", l.SectionID, l.AttachmentID))
		}
	}
	return ids, nil
}

func (i *Inspector) inspectBodies(ctx context.Context, store driven.ArchiveStore, attachments map[int64]bool, report *driving.InspectReport) error {
	sections, err := store.SectionStore().ListSections(ctx, "")
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	for _, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		sources, err := i.markup.ImageSources(s.Body)
		if err != nil {
			report.Problems = append(report.Problems,
				fmt.Sprintf("section %d: unparseable body: %v", s.ID, err))
			continue
		}
		report.ImageReferences += len(sources)
		for _, src := range sources {
			id, ok := domain.ParseAttachmentURN(src)
			switch {
			case !ok:
				report.Problems = append(report.Problems,
					fmt.Sprintf("section %d: external image reference %q", s.ID, src))
			case !attachments[id]:
				report.Problems = append(report.Problems,
					fmt.Sprintf("section %d: dangling image reference %q", s.ID, src))
			}
		}
	}
	return nil
}

func (i *Inspector) inspectCustomData(ctx context.Context, store driven.ArchiveStore, report *driving.InspectReport) error {
	keys, err := store.CustomDataStore().Keys(ctx)
	if err != nil {
		return fmt.Errorf("list custom data: %w", err)
	}
	report.CustomKeys = keys

	if i.signer == nil {
		return nil
	}
	manifest, err := store.CustomDataStore().Get(ctx, domain.ManifestKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	claims, err := i.signer.Verify(manifest.Value)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("manifest: %v", err))
		return nil
	}
	report.Manifest = claims
	return nil
}
